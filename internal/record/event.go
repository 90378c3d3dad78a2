package record

import (
	"time"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

// Event is one campus event. Image points into the blob store and may be
// nil. There is no invariant tying StartDate to EndDate; the store keeps
// whatever the publisher entered.
type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Location         string    `json:"location"`
	RegistrationLink string    `json:"registrationLink"`
	StartDate        time.Time `json:"eventStartDate"`
	EndDate          time.Time `json:"eventEndDate"`
	Image            *string   `json:"image,omitempty"`
	CreatorID        string    `json:"creatorid"`
	CreatedAt        time.Time `json:"timestamp"`
}

// EventDraft carries the editable fields of an event. Image is the
// persisted blob reference carried over from the record being edited; a new
// upload replaces it before the write.
type EventDraft struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Location         string    `json:"location"`
	RegistrationLink string    `json:"registrationLink"`
	StartDate        time.Time `json:"eventStartDate"`
	EndDate          time.Time `json:"eventEndDate"`
	Image            *string   `json:"image,omitempty"`
}

// ValidateEvent rejects a draft with any required field missing. The image
// is the only optional field.
func ValidateEvent(d EventDraft) error {
	required := []struct {
		field, value string
	}{
		{"title", d.Title},
		{"description", d.Description},
		{"category", d.Category},
		{"location", d.Location},
		{"registrationLink", d.RegistrationLink},
	}
	for _, r := range required {
		if r.value == "" {
			return &common.ValidationError{Field: r.field, Reason: "must not be empty"}
		}
	}
	if d.StartDate.IsZero() {
		return &common.ValidationError{Field: "eventStartDate", Reason: "must be set"}
	}
	if d.EndDate.IsZero() {
		return &common.ValidationError{Field: "eventEndDate", Reason: "must be set"}
	}
	return nil
}

// EventFields builds the store document for the editable fields only.
func EventFields(d EventDraft) store.Document {
	doc := store.Document{
		"title":            d.Title,
		"description":      d.Description,
		"category":         d.Category,
		"location":         d.Location,
		"registrationLink": d.RegistrationLink,
		"eventStartDate":   d.StartDate,
		"eventEndDate":     d.EndDate,
	}
	if d.Image != nil {
		doc["image"] = *d.Image
	} else {
		doc["image"] = nil
	}
	return doc
}

func DraftFromEvent(e Event) EventDraft {
	return EventDraft{
		Title:            e.Title,
		Description:      e.Description,
		Category:         e.Category,
		Location:         e.Location,
		RegistrationLink: e.RegistrationLink,
		StartDate:        e.StartDate,
		EndDate:          e.EndDate,
		Image:            e.Image,
	}
}
