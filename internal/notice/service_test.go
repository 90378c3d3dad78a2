package notice

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/record"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/session"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/view"
)

// memStore is a complete in-memory document store: collections, merge
// semantics and full-set snapshot fan-out, enough to drive the service and
// a live session end to end.
type memStore struct {
	mu   sync.Mutex
	seq  int
	docs map[string]map[string]store.Document
	subs map[string]map[int]store.SnapshotFunc
	subN int

	failCreate error
}

func newMemStore() *memStore {
	return &memStore{
		docs: make(map[string]map[string]store.Document),
		subs: make(map[string]map[int]store.SnapshotFunc),
	}
}

func (m *memStore) Create(_ context.Context, collection string, doc store.Document) (string, error) {
	m.mu.Lock()
	if m.failCreate != nil {
		err := m.failCreate
		m.mu.Unlock()
		return "", &common.WriteError{Op: "create", Collection: collection, Err: err}
	}
	m.seq++
	id := fmt.Sprintf("doc-%d", m.seq)
	if _, ok := doc["timestamp"]; !ok {
		doc["timestamp"] = time.Now()
	}
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]store.Document)
	}
	stored := store.Document{}
	for k, v := range doc {
		stored[k] = v
	}
	m.docs[collection][id] = stored
	m.mu.Unlock()

	m.broadcast(collection)
	return id, nil
}

func (m *memStore) Update(_ context.Context, collection, id string, fields store.Document) error {
	m.mu.Lock()
	doc, ok := m.docs[collection][id]
	if !ok {
		m.mu.Unlock()
		return &common.NotFoundError{Collection: collection, ID: id}
	}
	for k, v := range fields {
		doc[k] = v
	}
	m.mu.Unlock()

	m.broadcast(collection)
	return nil
}

func (m *memStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	if _, ok := m.docs[collection][id]; !ok {
		m.mu.Unlock()
		return &common.NotFoundError{Collection: collection, ID: id}
	}
	delete(m.docs[collection], id)
	m.mu.Unlock()

	m.broadcast(collection)
	return nil
}

func (m *memStore) Get(_ context.Context, collection, id string) (store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, &common.NotFoundError{Collection: collection, ID: id}
	}
	out := store.Document{"id": id}
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Subscribe(collection string, fn store.SnapshotFunc) (store.UnsubscribeFunc, error) {
	m.mu.Lock()
	m.subN++
	n := m.subN
	if m.subs[collection] == nil {
		m.subs[collection] = make(map[int]store.SnapshotFunc)
	}
	m.subs[collection][n] = fn
	m.mu.Unlock()

	fn(m.snapshot(collection))
	return func() {
		m.mu.Lock()
		delete(m.subs[collection], n)
		m.mu.Unlock()
	}, nil
}

func (m *memStore) snapshot(collection string) []store.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Document, 0, len(m.docs[collection]))
	for id, doc := range m.docs[collection] {
		copied := store.Document{"id": id}
		for k, v := range doc {
			copied[k] = v
		}
		out = append(out, copied)
	}
	return out
}

func (m *memStore) broadcast(collection string) {
	snap := m.snapshot(collection)
	m.mu.Lock()
	fns := make([]store.SnapshotFunc, 0, len(m.subs[collection]))
	for _, fn := range m.subs[collection] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (m *memStore) get(collection, id string) store.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[collection][id]
}

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(st store.Store) *Service {
	svc := NewService(st, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func draft() record.NotificationDraft {
	return record.NotificationDraft{
		Title:       "Exam",
		Description: "Room change for sem 4",
		Priority:    record.PriorityHigh,
		Course:      "BCA",
	}
}

func TestCreate_StampsWriteOnceFieldsAndDefaultExpiry(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st)

	id, err := svc.Create(context.Background(), "admin@sau.edu", draft())

	require.NoError(t, err)
	doc := st.get(store.CollectionNotifications, id)
	require.NotNil(t, doc)
	assert.Equal(t, "admin@sau.edu", doc["creatorid"])
	assert.Equal(t, fixedNow, doc["timestamp"])
	assert.Equal(t, fixedNow.AddDate(0, 0, 7), doc["expire_on"])
}

func TestCreate_EmptyPriorityDefaultsHigh(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st)

	d := draft()
	d.Priority = ""
	id, err := svc.Create(context.Background(), "admin@sau.edu", d)

	require.NoError(t, err)
	assert.Equal(t, "high", st.get(store.CollectionNotifications, id)["priority"])
}

func TestCreate_ValidationFailureWritesNothing(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st)

	d := draft()
	d.Title = ""
	_, err := svc.Create(context.Background(), "admin@sau.edu", d)

	assert.True(t, common.IsValidation(err))
	assert.Empty(t, st.docs[store.CollectionNotifications])
}

func TestEditRoundTrip_PreservesImmutableFields(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st)
	ctx := context.Background()

	id, err := svc.Create(ctx, "admin@sau.edu", draft())
	require.NoError(t, err)

	snap := st.snapshot(store.CollectionNotifications)
	require.Len(t, snap, 1)
	n, err := record.DecodeNotification(snap[0])
	require.NoError(t, err)

	d := svc.BeginEdit(n)
	d.Title = "Exam (updated)"
	d.Priority = record.PriorityMedium
	d.ExpireOn = "2025-03-25"

	require.NoError(t, svc.CommitEdit(ctx, "admin@sau.edu", id, d))

	doc := st.get(store.CollectionNotifications, id)
	assert.Equal(t, "Exam (updated)", doc["title"])
	assert.Equal(t, "medium", doc["priority"])
	assert.Equal(t, time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC), doc["expire_on"])
	// write-once fields untouched by the merge
	assert.Equal(t, "admin@sau.edu", doc["creatorid"])
	assert.Equal(t, fixedNow, doc["timestamp"])

	_, stillEditing := svc.EditingID()
	assert.False(t, stillEditing, "editing state clears on successful commit")
}

func TestBeginEdit_LastSelectionWins(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st)
	ctx := context.Background()

	a := record.Notification{ID: "a", Title: "A", Description: "x", Priority: record.PriorityHigh, CreatedAt: fixedNow}
	b := record.Notification{ID: "b", Title: "B", Description: "y", Priority: record.PriorityLow, CreatedAt: fixedNow}

	draftA := svc.BeginEdit(a)
	_ = draftA
	_ = svc.BeginEdit(b) // supersedes the edit of a, no merge

	editingID, ok := svc.EditingID()
	require.True(t, ok)
	assert.Equal(t, "b", editingID)

	err := svc.CommitEdit(ctx, "admin@sau.edu", "a", record.DraftFromNotification(a))
	assert.True(t, common.IsValidation(err), "committing the discarded edit must fail")
}

func TestCommitEdit_WithoutBeginFails(t *testing.T) {
	svc := newTestService(newMemStore())

	err := svc.CommitEdit(context.Background(), "admin@sau.edu", "nope", draft())
	assert.True(t, common.IsValidation(err))
}

func TestCommitEdit_VanishedRecordIsNotFound(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st)

	n := record.Notification{
		ID: "gone", Title: "T", Description: "D",
		Priority:  record.PriorityHigh,
		CreatedAt: fixedNow,
		ExpiresAt: fixedNow.AddDate(0, 0, 7),
	}
	d := svc.BeginEdit(n)

	err := svc.CommitEdit(context.Background(), "admin@sau.edu", "gone", d)
	assert.True(t, common.IsNotFound(err))

	_, stillEditing := svc.EditingID()
	assert.True(t, stillEditing, "failed commit keeps the edit open for retry")
}

func TestRemove_RequiresConfirmation(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st)
	ctx := context.Background()

	id, err := svc.Create(ctx, "admin@sau.edu", draft())
	require.NoError(t, err)

	err = svc.Remove(ctx, "admin@sau.edu", id, false)
	assert.True(t, common.IsValidation(err))
	assert.NotNil(t, st.get(store.CollectionNotifications, id))

	require.NoError(t, svc.Remove(ctx, "admin@sau.edu", id, true))
	assert.Nil(t, st.get(store.CollectionNotifications, id))
}

func TestRemove_MissingRecord(t *testing.T) {
	svc := newTestService(newMemStore())

	err := svc.Remove(context.Background(), "admin@sau.edu", "ghost", true)
	assert.True(t, common.IsNotFound(err))
}

func TestCreate_WriteErrorSurfaces(t *testing.T) {
	st := newMemStore()
	st.failCreate = fmt.Errorf("transport down")
	svc := newTestService(st)

	_, err := svc.Create(context.Background(), "admin@sau.edu", draft())

	var we *common.WriteError
	assert.ErrorAs(t, err, &we)
}

// An untargeted notification reaches every student view, whatever the
// student's course, year or batch.
func TestEndToEnd_BroadcastReachesEveryStudent(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st)
	ctx := context.Background()

	viewers := []view.Viewer{
		{Course: "BCA", Year: "1", Batch: "A"},
		{Course: "BBA", Year: "3", Batch: "C"},
		{Course: "BVOC", Year: "2", Batch: "B"},
	}

	latest := make([][]record.Notification, len(viewers))
	for i, v := range viewers {
		i := i
		feed, err := session.OpenNotificationFeed(st, v, func(view []record.Notification) {
			latest[i] = view
		}, nil)
		require.NoError(t, err)
		defer feed.Close()
	}

	_, err := svc.Create(ctx, "admin@sau.edu", record.NotificationDraft{
		Title:       "Exam",
		Description: "All students",
		Priority:    record.PriorityHigh,
	})
	require.NoError(t, err)

	for i := range viewers {
		require.Len(t, latest[i], 1, "viewer %d", i)
		assert.Equal(t, "Exam", latest[i][0].Title)
	}
}

func TestEditState_ConcurrentPublishers(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st)
	ctx := context.Background()

	const publishers = 100
	ids := make([]string, publishers)
	for i := range ids {
		id, err := svc.Create(ctx, "admin@sau.edu", draft())
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	committed := make(chan string, publishers)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			n := record.Notification{
				ID: id, Title: "Exam", Description: "Room change",
				Priority:  record.PriorityHigh,
				CreatedAt: fixedNow,
				ExpiresAt: fixedNow.AddDate(0, 0, 7),
			}
			d := svc.BeginEdit(n)
			d.Title = fmt.Sprintf("Exam %d", i)
			err := svc.CommitEdit(ctx, "admin@sau.edu", id, d)
			if err == nil {
				committed <- id
				return
			}
			// another publisher claimed the edit slot in between; any
			// other failure mode is a bug
			assert.True(t, common.IsValidation(err))
		}(i, id)
	}
	wg.Wait()

	assert.NotZero(t, len(committed), "at least one commit must win")
	for len(committed) > 0 {
		id := <-committed
		assert.Contains(t, st.get(store.CollectionNotifications, id)["title"], "Exam ")
	}
}
