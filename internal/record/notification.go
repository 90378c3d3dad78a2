package record

import (
	"time"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority onto its sort position. Anything unrecognized sorts
// after the three known values.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

func (p Priority) Known() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Notification is one targeted announcement. Course/Year/Batch empty means
// "matches any value", not "matches empty". ID, CreatorID and CreatedAt are
// write-once.
type Notification struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Course      string    `json:"course"`
	Year        string    `json:"year"`
	Batch       string    `json:"batch"`
	CreatorID   string    `json:"creatorid"`
	CreatedAt   time.Time `json:"timestamp"`
	ExpiresAt   time.Time `json:"expire_on"`
}

func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt.Before(now)
}

// NotificationDraft carries the editable fields of a notification, the way
// a publisher types them in. ExpireOn is a calendar date (YYYY-MM-DD);
// empty means the default of seven days after creation.
type NotificationDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Course      string   `json:"course"`
	Year        string   `json:"year"`
	Batch       string   `json:"batch"`
	ExpireOn    string   `json:"expire_on"`
}

const (
	expireOnLayout    = "2006-01-02"
	defaultExpiryDays = 7
)

// ValidateNotification checks a draft against the record schema and resolves
// its expiry instant. createdAt anchors the "not in the past" check: the
// expiry date must fall on or after createdAt's calendar date.
func ValidateNotification(d NotificationDraft, createdAt time.Time) (time.Time, error) {
	if d.Title == "" {
		return time.Time{}, &common.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if d.Description == "" {
		return time.Time{}, &common.ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if !d.Priority.Known() {
		return time.Time{}, &common.ValidationError{Field: "priority", Reason: "must be high, medium or low"}
	}

	if d.ExpireOn == "" {
		return createdAt.AddDate(0, 0, defaultExpiryDays), nil
	}

	expiry, err := time.ParseInLocation(expireOnLayout, d.ExpireOn, time.UTC)
	if err != nil {
		return time.Time{}, &common.ValidationError{Field: "expire_on", Reason: "must be a YYYY-MM-DD date"}
	}

	created := createdAt.UTC()
	createdDay := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)
	if expiry.Before(createdDay) {
		return time.Time{}, &common.ValidationError{Field: "expire_on", Reason: "must not be before the creation date"}
	}

	return expiry, nil
}

// NotificationFields builds the store document for the editable fields only.
// Write-once fields (id, creatorid, timestamp) are deliberately absent so an
// update can never touch them.
func NotificationFields(d NotificationDraft, expiresAt time.Time) store.Document {
	return store.Document{
		"title":       d.Title,
		"description": d.Description,
		"priority":    string(d.Priority),
		"course":      d.Course,
		"year":        d.Year,
		"batch":       d.Batch,
		"expire_on":   expiresAt,
	}
}

// DraftFromNotification copies a persisted record back into a scratch draft,
// the starting point of an edit.
func DraftFromNotification(n Notification) NotificationDraft {
	return NotificationDraft{
		Title:       n.Title,
		Description: n.Description,
		Priority:    n.Priority,
		Course:      n.Course,
		Year:        n.Year,
		Batch:       n.Batch,
		ExpireOn:    n.ExpiresAt.UTC().Format(expireOnLayout),
	}
}
