package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/record"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

func (s *Server) createNotification(w http.ResponseWriter, r *http.Request) {
	var draft record.NotificationDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id, err := s.notices.Create(r.Context(), identityFrom(r.Context()).Email, draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) updateNotification(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var draft record.NotificationDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	doc, err := s.store.Get(r.Context(), store.CollectionNotifications, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	current, err := record.DecodeNotification(doc)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.notices.BeginEdit(current)
	if err := s.notices.CommitEdit(r.Context(), identityFrom(r.Context()).Email, id, draft); err != nil {
		s.notices.CancelEdit()
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	confirmed := r.URL.Query().Get("confirm") == "true"

	if err := s.notices.Remove(r.Context(), identityFrom(r.Context()).Email, id, confirmed); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotFound, "audit trail is not configured")
		return
	}

	collection := mux.Vars(r)["collection"]
	limit := intQuery(r, "limit", 50)
	offset := intQuery(r, "offset", 0)

	entries, err := s.audit.ByCollection(r.Context(), collection, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
