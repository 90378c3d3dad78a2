// Package event is the mutation service for events. It mirrors the notice
// service, plus the blob-first image flow: a changed image is uploaded
// before any document write, and an upload failure aborts the whole
// mutation so the store never sees a half-applied edit.
package event

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/blob"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/metrics"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/record"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

type Service struct {
	store    store.Store
	uploader blob.Uploader
	audit    common.AuditRecorder
	now      func() time.Time

	// mu keeps concurrent publishers from tearing the single edit slot
	mu      sync.Mutex
	editing *editState
}

type editState struct {
	id        string
	createdAt time.Time
	image     *string // persisted reference at edit start
}

func NewService(st store.Store, uploader blob.Uploader, audit common.AuditRecorder) *Service {
	return &Service{
		store:    st,
		uploader: uploader,
		audit:    audit,
		now:      time.Now,
	}
}

// Create validates the draft, uploads the image when one was picked, and
// writes the record. image may be nil; events without a poster are fine.
func (s *Service) Create(ctx context.Context, creator string, d record.EventDraft, image io.Reader) (string, error) {
	if err := record.ValidateEvent(d); err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionEvents, common.AuditActionCreated).Inc()
		return "", err
	}

	if image != nil {
		ref, err := s.upload(ctx, creator, image)
		if err != nil {
			metrics.MutationFailures.WithLabelValues(store.CollectionEvents, common.AuditActionCreated).Inc()
			return "", err
		}
		d.Image = &ref
	}

	doc := record.EventFields(d)
	doc["creatorid"] = creator
	doc["timestamp"] = s.now()

	id, err := s.store.Create(ctx, store.CollectionEvents, doc)
	if err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionEvents, common.AuditActionCreated).Inc()
		return "", err
	}

	metrics.Mutations.WithLabelValues(store.CollectionEvents, common.AuditActionCreated).Inc()
	s.recordAudit(ctx, id, common.AuditActionCreated, creator)
	return id, nil
}

// BeginEdit copies the record into a scratch draft; any prior in-progress
// edit is discarded.
func (s *Service) BeginEdit(e record.Event) record.EventDraft {
	s.mu.Lock()
	s.editing = &editState{id: e.ID, createdAt: e.CreatedAt, image: e.Image}
	s.mu.Unlock()
	return record.DraftFromEvent(e)
}

func (s *Service) EditingID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == nil {
		return "", false
	}
	return s.editing.id, true
}

func (s *Service) CancelEdit() {
	s.mu.Lock()
	s.editing = nil
	s.mu.Unlock()
}

// CommitEdit updates the editable fields. A non-nil newImage means the
// publisher picked a file that differs from the persisted reference; it is
// uploaded first and the returned reference substituted. id, creatorid and
// timestamp never change. The lock is held across the upload and write so
// a competing BeginEdit cannot slip between the guard and the update.
func (s *Service) CommitEdit(ctx context.Context, actor, id string, d record.EventDraft, newImage io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing == nil || s.editing.id != id {
		return &common.ValidationError{Reason: "no edit in progress for this record"}
	}

	if err := record.ValidateEvent(d); err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionEvents, common.AuditActionUpdated).Inc()
		return err
	}

	if newImage != nil {
		ref, err := s.upload(ctx, actor, newImage)
		if err != nil {
			metrics.MutationFailures.WithLabelValues(store.CollectionEvents, common.AuditActionUpdated).Inc()
			return err
		}
		d.Image = &ref
	}

	if err := s.store.Update(ctx, store.CollectionEvents, id, record.EventFields(d)); err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionEvents, common.AuditActionUpdated).Inc()
		return err
	}

	s.editing = nil
	metrics.Mutations.WithLabelValues(store.CollectionEvents, common.AuditActionUpdated).Inc()
	s.recordAudit(ctx, id, common.AuditActionUpdated, actor)
	return nil
}

// Remove deletes an event after the caller confirmed with the publisher.
func (s *Service) Remove(ctx context.Context, actor, id string, confirmed bool) error {
	if !confirmed {
		return &common.ValidationError{Reason: "delete requires confirmation"}
	}

	if err := s.store.Delete(ctx, store.CollectionEvents, id); err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionEvents, common.AuditActionDeleted).Inc()
		return err
	}

	s.mu.Lock()
	if s.editing != nil && s.editing.id == id {
		s.editing = nil
	}
	s.mu.Unlock()
	metrics.Mutations.WithLabelValues(store.CollectionEvents, common.AuditActionDeleted).Inc()
	s.recordAudit(ctx, id, common.AuditActionDeleted, actor)
	return nil
}

func (s *Service) upload(ctx context.Context, uploader string, content io.Reader) (string, error) {
	pathHint := fmt.Sprintf("%s/%s", store.CollectionEvents, uploader)
	ref, err := s.uploader.Upload(ctx, pathHint, content)
	if err != nil {
		return "", &common.UploadError{Path: pathHint, Err: err}
	}
	return ref, nil
}

func (s *Service) recordAudit(ctx context.Context, id, action, actor string) {
	if s.audit == nil {
		return
	}
	entry := common.AuditEntry{
		Collection: store.CollectionEvents,
		RecordID:   id,
		Action:     action,
		ActorEmail: actor,
		OccurredAt: s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		log.Printf("audit record failed for %s/%s: %v", store.CollectionEvents, id, err)
	}
}
