package record

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

// The store hands back duck-typed documents. Decoding coerces them into the
// typed shapes right at the adapter boundary and fails fast on a shape
// mismatch instead of letting zero values leak into views.

func DecodeNotification(doc store.Document) (Notification, error) {
	id := doc.ID()
	if id == "" {
		return Notification{}, fmt.Errorf("notification document has no id")
	}

	n := Notification{ID: id}
	var err error
	if n.Title, err = docString(doc, "title"); err != nil {
		return Notification{}, decodeErr("notification", id, err)
	}
	if n.Description, err = docString(doc, "description"); err != nil {
		return Notification{}, decodeErr("notification", id, err)
	}
	priority, err := docString(doc, "priority")
	if err != nil {
		return Notification{}, decodeErr("notification", id, err)
	}
	n.Priority = Priority(priority)

	// Targeting fields are optional; absent means "any".
	n.Course = docOptionalString(doc, "course")
	n.Year = docOptionalString(doc, "year")
	n.Batch = docOptionalString(doc, "batch")
	n.CreatorID = docOptionalString(doc, "creatorid")

	if n.CreatedAt, err = docTime(doc, "timestamp"); err != nil {
		return Notification{}, decodeErr("notification", id, err)
	}
	if n.ExpiresAt, err = docTime(doc, "expire_on"); err != nil {
		return Notification{}, decodeErr("notification", id, err)
	}
	return n, nil
}

func DecodeEvent(doc store.Document) (Event, error) {
	id := doc.ID()
	if id == "" {
		return Event{}, fmt.Errorf("event document has no id")
	}

	e := Event{ID: id}
	var err error
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"title", &e.Title},
		{"description", &e.Description},
		{"category", &e.Category},
		{"location", &e.Location},
		{"registrationLink", &e.RegistrationLink},
	} {
		if *f.dst, err = docString(doc, f.key); err != nil {
			return Event{}, decodeErr("event", id, err)
		}
	}
	if e.StartDate, err = docTime(doc, "eventStartDate"); err != nil {
		return Event{}, decodeErr("event", id, err)
	}
	if e.EndDate, err = docTime(doc, "eventEndDate"); err != nil {
		return Event{}, decodeErr("event", id, err)
	}
	if e.CreatedAt, err = docTime(doc, "timestamp"); err != nil {
		return Event{}, decodeErr("event", id, err)
	}
	e.CreatorID = docOptionalString(doc, "creatorid")
	if img := docOptionalString(doc, "image"); img != "" {
		e.Image = &img
	}
	return e, nil
}

func decodeErr(kind, id string, err error) error {
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

func docString(doc store.Document, key string) (string, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return "", fmt.Errorf("field %q missing", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is %T, want string", key, v)
	}
	return s, nil
}

func docOptionalString(doc store.Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

func docTime(doc store.Document, key string) (time.Time, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return time.Time{}, fmt.Errorf("field %q missing", key)
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case primitive.DateTime:
		return t.Time(), nil
	default:
		return time.Time{}, fmt.Errorf("field %q is %T, want timestamp", key, v)
	}
}
