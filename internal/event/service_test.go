package event

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/record"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

type memStore struct {
	mu   sync.Mutex
	seq  int
	docs map[string]map[string]store.Document
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]map[string]store.Document)}
}

func (m *memStore) Create(_ context.Context, collection string, doc store.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("doc-%d", m.seq)
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]store.Document)
	}
	stored := store.Document{}
	for k, v := range doc {
		stored[k] = v
	}
	m.docs[collection][id] = stored
	return id, nil
}

func (m *memStore) Update(_ context.Context, collection, id string, fields store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[collection][id]
	if !ok {
		return &common.NotFoundError{Collection: collection, ID: id}
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[collection][id]; !ok {
		return &common.NotFoundError{Collection: collection, ID: id}
	}
	delete(m.docs[collection], id)
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

func (m *memStore) Subscribe(string, store.SnapshotFunc) (store.UnsubscribeFunc, error) {
	return func() {}, nil
}

func (m *memStore) get(collection, id string) store.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[collection][id]
}

func (m *memStore) count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}

// fakeUploader records upload calls and hands back deterministic refs.
type fakeUploader struct {
	refs  []string
	paths []string
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, pathHint string, content io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	_, _ = io.Copy(io.Discard, content)
	ref := fmt.Sprintf("file-%d", len(u.refs)+1)
	u.refs = append(u.refs, ref)
	u.paths = append(u.paths, pathHint)
	return ref, nil
}

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(st store.Store, up *fakeUploader) *Service {
	svc := NewService(st, up, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func draft() record.EventDraft {
	return record.EventDraft{
		Title:            "Tech Fest",
		Description:      "Annual fest",
		Category:         "Cultural",
		Location:         "Main Auditorium",
		RegistrationLink: "https://forms.example/fest",
		StartDate:        time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreate_WithoutImage(t *testing.T) {
	st := newMemStore()
	up := &fakeUploader{}
	svc := newTestService(st, up)

	id, err := svc.Create(context.Background(), "admin@sau.edu", draft(), nil)

	require.NoError(t, err)
	doc := st.get(store.CollectionEvents, id)
	require.NotNil(t, doc)
	assert.Equal(t, "admin@sau.edu", doc["creatorid"])
	assert.Equal(t, fixedNow, doc["timestamp"])
	assert.Nil(t, doc["image"])
	assert.Empty(t, up.refs, "no picked file means no upload")
}

func TestCreate_UploadsImageBeforeWrite(t *testing.T) {
	st := newMemStore()
	up := &fakeUploader{}
	svc := newTestService(st, up)

	id, err := svc.Create(context.Background(), "admin@sau.edu", draft(), strings.NewReader("png-bytes"))

	require.NoError(t, err)
	require.Len(t, up.refs, 1)
	assert.Equal(t, "events/admin@sau.edu", up.paths[0])
	assert.Equal(t, "file-1", st.get(store.CollectionEvents, id)["image"])
}

func TestCreate_UploadFailureAbortsWrite(t *testing.T) {
	st := newMemStore()
	up := &fakeUploader{err: fmt.Errorf("bucket unreachable")}
	svc := newTestService(st, up)

	_, err := svc.Create(context.Background(), "admin@sau.edu", draft(), strings.NewReader("png-bytes"))

	var ue *common.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 0, st.count(store.CollectionEvents), "aborted create must not write")
}

func TestCreate_ValidationRequiresBothDates(t *testing.T) {
	svc := newTestService(newMemStore(), &fakeUploader{})

	d := draft()
	d.EndDate = time.Time{}
	_, err := svc.Create(context.Background(), "admin@sau.edu", d, nil)

	assert.True(t, common.IsValidation(err))
}

func TestCommitEdit_KeepsImageWhenFileUnchanged(t *testing.T) {
	st := newMemStore()
	up := &fakeUploader{}
	svc := newTestService(st, up)
	ctx := context.Background()

	id, err := svc.Create(ctx, "admin@sau.edu", draft(), strings.NewReader("png-bytes"))
	require.NoError(t, err)

	ref := "file-1"
	e := record.Event{
		ID: id, Title: "Tech Fest", Description: "Annual fest",
		Category: "Cultural", Location: "Main Auditorium",
		RegistrationLink: "https://forms.example/fest",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
		Image: &ref, CreatedAt: fixedNow,
	}
	d := svc.BeginEdit(e)
	d.Location = "Open Air Theatre"

	require.NoError(t, svc.CommitEdit(ctx, "admin@sau.edu", id, d, nil))

	doc := st.get(store.CollectionEvents, id)
	assert.Equal(t, "Open Air Theatre", doc["location"])
	assert.Equal(t, "file-1", doc["image"], "unchanged file keeps the persisted reference")
	assert.Len(t, up.refs, 1, "no re-upload for an unchanged file")
	assert.Equal(t, "admin@sau.edu", doc["creatorid"])
	assert.Equal(t, fixedNow, doc["timestamp"])
}

func TestCommitEdit_NewImageUploadsAndSubstitutes(t *testing.T) {
	st := newMemStore()
	up := &fakeUploader{}
	svc := newTestService(st, up)
	ctx := context.Background()

	id, err := svc.Create(ctx, "admin@sau.edu", draft(), strings.NewReader("old"))
	require.NoError(t, err)

	ref := "file-1"
	e := record.Event{
		ID: id, Title: "Tech Fest", Description: "Annual fest",
		Category: "Cultural", Location: "Main Auditorium",
		RegistrationLink: "https://forms.example/fest",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
		Image: &ref, CreatedAt: fixedNow,
	}
	d := svc.BeginEdit(e)

	require.NoError(t, svc.CommitEdit(ctx, "admin@sau.edu", id, d, strings.NewReader("new")))

	assert.Len(t, up.refs, 2)
	assert.Equal(t, "file-2", st.get(store.CollectionEvents, id)["image"])
}

func TestCommitEdit_UploadFailureLeavesRecordUntouched(t *testing.T) {
	st := newMemStore()
	up := &fakeUploader{}
	svc := newTestService(st, up)
	ctx := context.Background()

	id, err := svc.Create(ctx, "admin@sau.edu", draft(), nil)
	require.NoError(t, err)

	e := record.Event{
		ID: id, Title: "Tech Fest", Description: "Annual fest",
		Category: "Cultural", Location: "Main Auditorium",
		RegistrationLink: "https://forms.example/fest",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
		CreatedAt: fixedNow,
	}
	d := svc.BeginEdit(e)
	d.Title = "Tech Fest 2.0"

	up.err = fmt.Errorf("bucket unreachable")
	err = svc.CommitEdit(ctx, "admin@sau.edu", id, d, strings.NewReader("new"))

	var ue *common.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "Tech Fest", st.get(store.CollectionEvents, id)["title"])

	_, stillEditing := svc.EditingID()
	assert.True(t, stillEditing, "failed commit keeps the edit open")
}

func TestCommitEdit_WithoutBeginFails(t *testing.T) {
	svc := newTestService(newMemStore(), &fakeUploader{})

	err := svc.CommitEdit(context.Background(), "admin@sau.edu", "nope", draft(), nil)
	assert.True(t, common.IsValidation(err))
}

func TestBeginEdit_LastSelectionWins(t *testing.T) {
	svc := newTestService(newMemStore(), &fakeUploader{})

	a := record.Event{ID: "a", CreatedAt: fixedNow}
	b := record.Event{ID: "b", CreatedAt: fixedNow}
	_ = svc.BeginEdit(a)
	_ = svc.BeginEdit(b)

	id, ok := svc.EditingID()
	require.True(t, ok)
	assert.Equal(t, "b", id)

	err := svc.CommitEdit(context.Background(), "admin@sau.edu", "a", draft(), nil)
	assert.True(t, common.IsValidation(err))
}

func TestRemove_RequiresConfirmation(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st, &fakeUploader{})
	ctx := context.Background()

	id, err := svc.Create(ctx, "admin@sau.edu", draft(), nil)
	require.NoError(t, err)

	err = svc.Remove(ctx, "admin@sau.edu", id, false)
	assert.True(t, common.IsValidation(err))
	assert.NotNil(t, st.get(store.CollectionEvents, id))

	require.NoError(t, svc.Remove(ctx, "admin@sau.edu", id, true))
	assert.Nil(t, st.get(store.CollectionEvents, id))
}

func TestRemove_ClearsMatchingEdit(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st, &fakeUploader{})
	ctx := context.Background()

	id, err := svc.Create(ctx, "admin@sau.edu", draft(), nil)
	require.NoError(t, err)

	e := record.Event{ID: id, CreatedAt: fixedNow}
	_ = svc.BeginEdit(e)

	require.NoError(t, svc.Remove(ctx, "admin@sau.edu", id, true))
	_, editing := svc.EditingID()
	assert.False(t, editing)
}

func TestEditState_ConcurrentPublishers(t *testing.T) {
	st := newMemStore()
	svc := newTestService(st, &fakeUploader{})
	ctx := context.Background()

	const publishers = 50
	ids := make([]string, publishers)
	for i := range ids {
		id, err := svc.Create(ctx, "admin@sau.edu", draft(), nil)
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	committed := make(chan string, publishers)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			e := record.Event{
				ID:               id,
				Title:            "Tech Fest",
				Description:      "Annual fest",
				Category:         "Cultural",
				Location:         "Main Auditorium",
				RegistrationLink: "https://forms.example/fest",
				StartDate:        time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
				EndDate:          time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
				CreatedAt:        fixedNow,
			}
			d := svc.BeginEdit(e)
			d.Location = fmt.Sprintf("Hall %d", i)
			err := svc.CommitEdit(ctx, "admin@sau.edu", id, d, nil)
			if err == nil {
				committed <- id
				return
			}
			// another publisher claimed the edit slot in between
			assert.True(t, common.IsValidation(err))
		}(i, id)
	}
	wg.Wait()

	assert.NotZero(t, len(committed), "at least one commit must win")
	for len(committed) > 0 {
		id := <-committed
		assert.Contains(t, st.get(store.CollectionEvents, id)["location"], "Hall ")
	}
}
