// Package view derives what one viewer actually sees from a raw snapshot:
// deterministic ordering, audience targeting and display-time expiry.
package view

import (
	"sort"
	"time"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/record"
)

// Viewer is the audience context a derived view is computed for. Admin
// viewers see the whole collection, expired records included, so they can
// manage them; students get the targeted, active subset.
type Viewer struct {
	Admin  bool
	Course string
	Year   string
	Batch  string
}

// DeriveNotifications is pure: the same records and viewer always produce
// the same sequence, whatever order the snapshot arrived in.
func DeriveNotifications(records []record.Notification, v Viewer, now time.Time) []record.Notification {
	out := make([]record.Notification, 0, len(records))
	for _, n := range records {
		if !v.Admin {
			if n.Expired(now) {
				continue
			}
			if !Matches(n, v) {
				continue
			}
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool {
		return notificationLess(out[i], out[j])
	})
	return out
}

// Ordering: priority rank first (unrecognized priorities sink to the
// bottom), then newest first, then id so equal records cannot flip around
// between snapshots.
func notificationLess(a, b record.Notification) bool {
	ra, rb := a.Priority.Rank(), b.Priority.Rank()
	if ra != rb {
		return ra < rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Matches reports whether a notification targets the viewer. Each empty
// record field means "any value"; all three dimensions must agree.
func Matches(n record.Notification, v Viewer) bool {
	if n.Course != "" && n.Course != v.Course {
		return false
	}
	if n.Year != "" && n.Year != v.Year {
		return false
	}
	if n.Batch != "" && n.Batch != v.Batch {
		return false
	}
	return true
}

// DeriveEvents orders events by start date, most recent first. Ties fall
// back to id for determinism.
func DeriveEvents(events []record.Event) []record.Event {
	out := make([]record.Event, len(events))
	copy(out, events)

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.After(b.StartDate)
		}
		return a.ID < b.ID
	})
	return out
}
