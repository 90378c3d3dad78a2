package dbmongo

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

const queryTimeout = 10 * time.Second

// DocStore implements the document store on MongoDB collections. Every
// subscriber gets the full current contents of its collection after each
// local write and on a poll tick, never a delta; the single broadcaster
// goroutine keeps deliveries to any one subscriber in order.
type DocStore struct {
	db   *mongo.Database
	poll time.Duration

	mu      sync.Mutex
	subs    map[string]map[int]store.SnapshotFunc
	nextSub int

	refresh chan string
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewDocStore(client *MongoClient, pollInterval time.Duration) *DocStore {
	ds := &DocStore{
		db:      client.Database,
		poll:    pollInterval,
		subs:    make(map[string]map[int]store.SnapshotFunc),
		refresh: make(chan string, 16),
		done:    make(chan struct{}),
	}
	ds.wg.Add(1)
	go ds.broadcast()
	return ds
}

// Close stops the broadcaster. Open subscriptions simply stop receiving.
func (ds *DocStore) Close() {
	close(ds.done)
	ds.wg.Wait()
}

func (ds *DocStore) Create(ctx context.Context, collection string, doc store.Document) (string, error) {
	fields := toBSON(doc)
	if _, ok := fields["timestamp"]; !ok {
		fields["timestamp"] = time.Now().UTC()
	}
	res, err := ds.db.Collection(collection).InsertOne(ctx, fields)
	if err != nil {
		return "", &common.WriteError{Op: "create", Collection: collection, Err: err}
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", &common.WriteError{
			Op: "create", Collection: collection,
			Err: fmt.Errorf("unexpected inserted id %T", res.InsertedID),
		}
	}

	ds.notify(collection)
	return oid.Hex(), nil
}

func (ds *DocStore) Update(ctx context.Context, collection, id string, fields store.Document) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return &common.NotFoundError{Collection: collection, ID: id}
	}

	res, err := ds.db.Collection(collection).UpdateByID(ctx, oid, bson.M{"$set": toBSON(fields)})
	if err != nil {
		return &common.WriteError{Op: "update", Collection: collection, Err: err}
	}
	if res.MatchedCount == 0 {
		return &common.NotFoundError{Collection: collection, ID: id}
	}

	ds.notify(collection)
	return nil
}

func (ds *DocStore) Delete(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return &common.NotFoundError{Collection: collection, ID: id}
	}

	res, err := ds.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return &common.WriteError{Op: "delete", Collection: collection, Err: err}
	}
	if res.DeletedCount == 0 {
		return &common.NotFoundError{Collection: collection, ID: id}
	}

	ds.notify(collection)
	return nil
}

func (ds *DocStore) Get(ctx context.Context, collection, id string) (store.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, &common.NotFoundError{Collection: collection, ID: id}
	}

	var raw bson.M
	err = ds.db.Collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, &common.NotFoundError{Collection: collection, ID: id}
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

// Subscribe registers fn and queues an immediate snapshot with the
// broadcaster. Every delivery to one subscriber, the first included, goes
// through that single goroutine, so a subscriber never sees a fresh
// snapshot and then an older one.
func (ds *DocStore) Subscribe(collection string, fn store.SnapshotFunc) (store.UnsubscribeFunc, error) {
	ds.mu.Lock()
	ds.nextSub++
	n := ds.nextSub
	if ds.subs[collection] == nil {
		ds.subs[collection] = make(map[int]store.SnapshotFunc)
	}
	ds.subs[collection][n] = fn
	ds.mu.Unlock()

	// blocking send: the first snapshot must not wait for a poll tick
	select {
	case ds.refresh <- collection:
	case <-ds.done:
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ds.mu.Lock()
			delete(ds.subs[collection], n)
			ds.mu.Unlock()
		})
	}, nil
}

// FindUserByEmail looks an account up in the users collection.
func (ds *DocStore) FindUserByEmail(ctx context.Context, email string) (store.Document, error) {
	var raw bson.M
	err := ds.db.Collection(store.CollectionUsers).FindOne(ctx, bson.M{"email": email}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, &common.NotFoundError{Collection: store.CollectionUsers, ID: email}
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

// notify queues a re-query for the collection. The send never blocks; a
// dropped signal is recovered by the next poll tick.
func (ds *DocStore) notify(collection string) {
	select {
	case ds.refresh <- collection:
	default:
	}
}

func (ds *DocStore) broadcast() {
	defer ds.wg.Done()
	ticker := time.NewTicker(ds.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ds.done:
			return
		case collection := <-ds.refresh:
			ds.deliver(collection)
		case <-ticker.C:
			for _, collection := range ds.subscribedCollections() {
				ds.deliver(collection)
			}
		}
	}
}

func (ds *DocStore) subscribedCollections() []string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	out := make([]string, 0, len(ds.subs))
	for collection, fns := range ds.subs {
		if len(fns) > 0 {
			out = append(out, collection)
		}
	}
	return out
}

func (ds *DocStore) deliver(collection string) {
	snap, err := ds.query(collection)
	if err != nil {
		log.Printf("snapshot query for %s failed: %v", collection, err)
		return
	}

	ds.mu.Lock()
	fns := make([]store.SnapshotFunc, 0, len(ds.subs[collection]))
	for _, fn := range ds.subs[collection] {
		fns = append(fns, fn)
	}
	ds.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (ds *DocStore) query(collection string) ([]store.Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	cursor, err := ds.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []store.Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, fromBSON(raw))
	}
	return out, cursor.Err()
}

// toBSON copies a document for insertion; the id key never persists, the
// collection's _id is the only identity.
func toBSON(doc store.Document) bson.M {
	out := bson.M{}
	for k, v := range doc {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// fromBSON turns a raw document into the map shape sessions decode,
// rewriting _id into the id string.
func fromBSON(raw bson.M) store.Document {
	out := store.Document{}
	for k, v := range raw {
		if k == "_id" {
			if oid, ok := v.(primitive.ObjectID); ok {
				out["id"] = oid.Hex()
			}
			continue
		}
		out[k] = v
	}
	return out
}
