package common

import (
	"context"
	"time"
)

// AuditRecorder persists a trail of admin mutations. Recording is best
// effort: callers log failures and carry on with the mutation result.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
	ByCollection(ctx context.Context, collection string, limit, offset int) ([]AuditEntry, error)
}

type AuditEntry struct {
	ID         string
	Collection string
	RecordID   string
	Action     string // created, updated, deleted
	ActorEmail string
	OccurredAt time.Time
}

const (
	AuditActionCreated = "created"
	AuditActionUpdated = "updated"
	AuditActionDeleted = "deleted"
)
