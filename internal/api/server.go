// Package api is the HTTP surface: login, the admin mutation endpoints,
// and the websocket feeds that push each viewer's derived list on every
// snapshot.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/auth"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/event"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/media"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/notice"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

type Server struct {
	auth     *auth.Provider
	notices  *notice.Service
	events   *event.Service
	store    store.Store
	media    *media.Handler
	audit    common.AuditRecorder
	upgrader websocket.Upgrader
}

func NewServer(provider *auth.Provider, notices *notice.Service, events *event.Service,
	st store.Store, mediaHandler *media.Handler, audit common.AuditRecorder) *Server {
	return &Server{
		auth:    provider,
		notices: notices,
		events:  events,
		store:   st,
		media:   mediaHandler,
		audit:   audit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/login", s.login).Methods("POST")
	r.HandleFunc("/logout", s.logout).Methods("POST")

	if s.media != nil {
		s.media.Register(r)
	}

	r.HandleFunc("/ws/notifications", s.requireAuth(s.streamNotifications)).Methods("GET")
	r.HandleFunc("/ws/events", s.requireAuth(s.streamEvents)).Methods("GET")

	r.HandleFunc("/notifications", s.requireAdmin(s.createNotification)).Methods("POST")
	r.HandleFunc("/notifications/{id}", s.requireAdmin(s.updateNotification)).Methods("PUT")
	r.HandleFunc("/notifications/{id}", s.requireAdmin(s.deleteNotification)).Methods("DELETE")

	r.HandleFunc("/events", s.requireAdmin(s.createEvent)).Methods("POST")
	r.HandleFunc("/events/{id}", s.requireAdmin(s.updateEvent)).Methods("PUT")
	r.HandleFunc("/events/{id}", s.requireAdmin(s.deleteEvent)).Methods("DELETE")

	r.HandleFunc("/audit/{collection}", s.requireAdmin(s.listAudit)).Methods("GET")

	return r
}

type ctxKey int

const identityKey ctxKey = 0

func identityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey).(auth.Identity)
	return id
}

// bearerToken pulls the token from the Authorization header, falling back
// to the token query parameter for websocket clients that cannot set
// headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return r.URL.Query().Get("token")
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		id, err := s.auth.CurrentIdentity(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	}
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r.Context()).Role != auth.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the error taxonomy onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case common.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case common.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case common.IsAuthorization(err):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("request failed: %v", err)
		writeError(w, http.StatusBadGateway, "operation failed")
	}
}
