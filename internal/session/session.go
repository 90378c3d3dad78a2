// Package session owns one live subscription per open feed: an owned value
// with an explicit open and close, never a process-wide listener.
package session

import (
	"sync"
	"time"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/metrics"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/record"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/view"
)

type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// lifecycle carries the state machine and the unsubscribe bookkeeping shared
// by both feed kinds. The handle is invoked exactly once, even when Close
// races the initial subscribe.
type lifecycle struct {
	mu    sync.Mutex
	state State
	unsub store.UnsubscribeFunc
}

func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// adopt stores the handle obtained from Subscribe. If Close already won the
// race the handle is fired immediately so no subscription dangles.
func (l *lifecycle) adopt(unsub store.UnsubscribeFunc) {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		unsub()
		return
	}
	l.unsub = unsub
	l.mu.Unlock()
}

// Close tears the session down. Calling it again is a no-op.
func (l *lifecycle) Close() {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return
	}
	wasOpen := l.state != StateIdle
	l.state = StateClosed
	unsub := l.unsub
	l.unsub = nil
	l.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if wasOpen {
		metrics.OpenSessions.Dec()
	}
}

// advance moves Subscribing to Live on the first snapshot and reports
// whether the session still wants deliveries.
func (l *lifecycle) advance() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosed {
		return false
	}
	if l.state == StateSubscribing {
		l.state = StateLive
	}
	return true
}

func (l *lifecycle) markSubscribing() {
	l.mu.Lock()
	l.state = StateSubscribing
	l.mu.Unlock()
}

// NotificationFeed keeps one viewer's ordered, filtered notification view in
// step with the store.
type NotificationFeed struct {
	lifecycle
	viewer view.Viewer
	sink   func([]record.Notification)
	fail   func(error)
	now    func() time.Time
}

// OpenNotificationFeed subscribes to the notifications collection and pushes
// every re-derived view into sink. fail fires once on a terminal failure
// (the adapter breaking, or a snapshot that no longer matches the schema);
// after that the consumer has to open a fresh feed, there is no retry here.
func OpenNotificationFeed(st store.Store, viewer view.Viewer, sink func([]record.Notification), fail func(error)) (*NotificationFeed, error) {
	f := &NotificationFeed{
		viewer: viewer,
		sink:   sink,
		fail:   fail,
		now:    time.Now,
	}
	f.markSubscribing()
	metrics.OpenSessions.Inc()

	unsub, err := st.Subscribe(store.CollectionNotifications, f.apply)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.adopt(unsub)
	return f, nil
}

func (f *NotificationFeed) apply(docs []store.Document) {
	if !f.advance() {
		return
	}

	// the snapshot replaces the previous set wholesale; no patching
	records := make([]record.Notification, 0, len(docs))
	for _, doc := range docs {
		n, err := record.DecodeNotification(doc)
		if err != nil {
			f.terminate(err)
			return
		}
		records = append(records, n)
	}

	metrics.SnapshotsApplied.WithLabelValues(store.CollectionNotifications).Inc()
	f.sink(view.DeriveNotifications(records, f.viewer, f.now()))
}

func (f *NotificationFeed) terminate(err error) {
	f.Close()
	if f.fail != nil {
		f.fail(err)
	}
}

// EventFeed mirrors NotificationFeed for the events collection. Events carry
// no targeting, so every viewer derives the same ordering.
type EventFeed struct {
	lifecycle
	sink func([]record.Event)
	fail func(error)
}

func OpenEventFeed(st store.Store, sink func([]record.Event), fail func(error)) (*EventFeed, error) {
	f := &EventFeed{
		sink: sink,
		fail: fail,
	}
	f.markSubscribing()
	metrics.OpenSessions.Inc()

	unsub, err := st.Subscribe(store.CollectionEvents, f.apply)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.adopt(unsub)
	return f, nil
}

func (f *EventFeed) apply(docs []store.Document) {
	if !f.advance() {
		return
	}

	events := make([]record.Event, 0, len(docs))
	for _, doc := range docs {
		e, err := record.DecodeEvent(doc)
		if err != nil {
			f.terminate(err)
			return
		}
		events = append(events, e)
	}

	metrics.SnapshotsApplied.WithLabelValues(store.CollectionEvents).Inc()
	f.sink(view.DeriveEvents(events))
}

func (f *EventFeed) terminate(err error) {
	f.Close()
	if f.fail != nil {
		f.fail(err)
	}
}
