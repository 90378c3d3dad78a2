package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/record"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/session"
)

// wsConn serializes writes; snapshots and a terminal error can race.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) close() {
	c.conn.Close()
}

type streamError struct {
	Error string `json:"error"`
}

// streamNotifications upgrades the request and pushes the viewer's derived
// notification list on every snapshot until the client disconnects.
func (s *Server) streamNotifications(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &wsConn{conn: raw}

	sink := func(view []record.Notification) {
		if err := conn.writeJSON(view); err != nil {
			log.Printf("notification stream write for %s: %v", id.Email, err)
		}
	}
	fail := func(err error) {
		_ = conn.writeJSON(streamError{Error: err.Error()})
		conn.close()
	}

	feed, err := session.OpenNotificationFeed(s.store, id.Viewer(), sink, fail)
	if err != nil {
		_ = conn.writeJSON(streamError{Error: "subscription failed"})
		conn.close()
		return
	}

	go drainUntilClosed(raw, feed.Close)
}

// streamEvents is the event-list analog; events carry no targeting, so
// every viewer receives the same ordering.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &wsConn{conn: raw}

	sink := func(view []record.Event) {
		if err := conn.writeJSON(view); err != nil {
			log.Printf("event stream write for %s: %v", id.Email, err)
		}
	}
	fail := func(err error) {
		_ = conn.writeJSON(streamError{Error: err.Error()})
		conn.close()
	}

	feed, err := session.OpenEventFeed(s.store, sink, fail)
	if err != nil {
		_ = conn.writeJSON(streamError{Error: "subscription failed"})
		conn.close()
		return
	}

	go drainUntilClosed(raw, feed.Close)
}

// drainUntilClosed reads until the peer goes away, then tears the feed
// down. Clients send nothing meaningful; reads only surface disconnects.
func drainUntilClosed(conn *websocket.Conn, closeFeed func()) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	closeFeed()
	conn.Close()
}
