// Package store declares the contract the engine requires from the external
// document store. The engine never assumes a concrete backend; dbmongo
// provides the production implementation.
package store

import "context"

// Document is one loosely-typed record as the store hands it back. The "id"
// key always carries the store-assigned identifier.
type Document map[string]interface{}

func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// SnapshotFunc receives the complete current set of records in a collection,
// delivered on every change. Delivery is at-least-once; within one
// subscription, snapshots never go back to an older state.
type SnapshotFunc func(docs []Document)

// UnsubscribeFunc tears down one subscription. Safe to call once; the
// session layer guarantees it is not called twice.
type UnsubscribeFunc func()

const (
	CollectionNotifications = "notifications"
	CollectionEvents        = "events"
	CollectionUsers         = "users"
)

type Store interface {
	// Create inserts a record and returns its store-assigned id. The store
	// fills the "timestamp" field when the caller left it unset.
	Create(ctx context.Context, collection string, doc Document) (string, error)

	// Update merges fields into an existing record. Returns NotFoundError
	// when the id no longer exists.
	Update(ctx context.Context, collection, id string, fields Document) error

	// Delete removes a record. Returns NotFoundError when already gone.
	Delete(ctx context.Context, collection, id string) error

	// Get reads one record by id. Returns NotFoundError when absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Subscribe registers fn for full-set snapshots of one collection and
	// delivers the current set promptly after registration.
	Subscribe(collection string, fn SnapshotFunc) (UnsubscribeFunc, error)
}
