// Package notice is the mutation service for notifications: validation,
// expiry derivation, and the one-at-a-time edit state machine. It never
// touches any in-memory view; open sessions observe the resulting snapshot.
package notice

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/metrics"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/record"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

type Service struct {
	store store.Store
	audit common.AuditRecorder
	now   func() time.Time

	// at most one record is being edited per service instance; mu keeps
	// concurrent publishers from tearing that slot
	mu      sync.Mutex
	editing *editState
}

type editState struct {
	id        string
	createdAt time.Time
}

func NewService(st store.Store, audit common.AuditRecorder) *Service {
	return &Service{
		store: st,
		audit: audit,
		now:   time.Now,
	}
}

// Create validates the draft, stamps the write-once fields and writes
// through the adapter. An empty priority falls back to high before
// validation, matching how drafts arrive from the publisher form.
func (s *Service) Create(ctx context.Context, creator string, d record.NotificationDraft) (string, error) {
	if d.Priority == "" {
		d.Priority = record.PriorityHigh
	}

	createdAt := s.now()
	expiresAt, err := record.ValidateNotification(d, createdAt)
	if err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionNotifications, common.AuditActionCreated).Inc()
		return "", err
	}

	doc := record.NotificationFields(d, expiresAt)
	doc["creatorid"] = creator
	doc["timestamp"] = createdAt

	id, err := s.store.Create(ctx, store.CollectionNotifications, doc)
	if err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionNotifications, common.AuditActionCreated).Inc()
		return "", err
	}

	metrics.Mutations.WithLabelValues(store.CollectionNotifications, common.AuditActionCreated).Inc()
	s.recordAudit(ctx, id, common.AuditActionCreated, creator)
	return id, nil
}

// BeginEdit copies the record's current values into a scratch draft and
// makes it the one in-progress edit. A prior unfinished edit is discarded:
// last selection wins, nothing merges.
func (s *Service) BeginEdit(n record.Notification) record.NotificationDraft {
	s.mu.Lock()
	s.editing = &editState{id: n.ID, createdAt: n.CreatedAt}
	s.mu.Unlock()
	return record.DraftFromNotification(n)
}

// EditingID reports which record is currently being edited, if any.
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

// CommitEdit validates the draft and updates the editable fields only;
// id, creatorid and timestamp can never change. The expiry check is
// anchored to the record's original creation date, not to now. Editing
// state clears only on success. The lock is held across the write so a
// competing BeginEdit cannot slip between the guard and the update.
func (s *Service) CommitEdit(ctx context.Context, actor, id string, d record.NotificationDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing == nil || s.editing.id != id {
		return &common.ValidationError{Reason: "no edit in progress for this record"}
	}

	expiresAt, err := record.ValidateNotification(d, s.editing.createdAt)
	if err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionNotifications, common.AuditActionUpdated).Inc()
		return err
	}

	if err := s.store.Update(ctx, store.CollectionNotifications, id, record.NotificationFields(d, expiresAt)); err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionNotifications, common.AuditActionUpdated).Inc()
		return err
	}

	s.editing = nil
	metrics.Mutations.WithLabelValues(store.CollectionNotifications, common.AuditActionUpdated).Inc()
	s.recordAudit(ctx, id, common.AuditActionUpdated, actor)
	return nil
}

// Remove deletes a record. The confirmation flag is the human-in-the-loop
// guard: callers pass true only after the publisher confirmed.
func (s *Service) Remove(ctx context.Context, actor, id string, confirmed bool) error {
	if !confirmed {
		return &common.ValidationError{Reason: "delete requires confirmation"}
	}

	if err := s.store.Delete(ctx, store.CollectionNotifications, id); err != nil {
		metrics.MutationFailures.WithLabelValues(store.CollectionNotifications, common.AuditActionDeleted).Inc()
		return err
	}

	s.mu.Lock()
	if s.editing != nil && s.editing.id == id {
		s.editing = nil
	}
	s.mu.Unlock()
	metrics.Mutations.WithLabelValues(store.CollectionNotifications, common.AuditActionDeleted).Inc()
	s.recordAudit(ctx, id, common.AuditActionDeleted, actor)
	return nil
}

// audit is best effort; a failed trail write never fails the mutation
func (s *Service) recordAudit(ctx context.Context, id, action, actor string) {
	if s.audit == nil {
		return
	}
	entry := common.AuditEntry{
		Collection: store.CollectionNotifications,
		RecordID:   id,
		Action:     action,
		ActorEmail: actor,
		OccurredAt: s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		log.Printf("audit record failed for %s/%s: %v", store.CollectionNotifications, id, err)
	}
}
