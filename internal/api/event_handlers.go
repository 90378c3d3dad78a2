package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/record"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
)

const maxImageMemory = 8 << 20 // parse buffer; larger files spill to disk

// eventPayload extracts the draft and the optional picked image. Clients
// send multipart/form-data with an "event" JSON part and an "image" file
// part, or a plain JSON body when there is no image.
func eventPayload(r *http.Request) (record.EventDraft, io.ReadCloser, error) {
	var draft record.EventDraft

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageMemory); err != nil {
			return draft, nil, err
		}
		if err := json.Unmarshal([]byte(r.FormValue("event")), &draft); err != nil {
			return draft, nil, err
		}
		file, _, err := r.FormFile("image")
		if err == http.ErrMissingFile {
			return draft, nil, nil
		}
		if err != nil {
			return draft, nil, err
		}
		return draft, file, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		return draft, nil, err
	}
	return draft, nil, nil
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	draft, image, err := eventPayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var content io.Reader
	if image != nil {
		defer image.Close()
		content = image
	}

	id, err := s.events.Create(r.Context(), identityFrom(r.Context()).Email, draft, content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	draft, image, err := eventPayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	doc, err := s.store.Get(r.Context(), store.CollectionEvents, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	current, err := record.DecodeEvent(doc)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var content io.Reader
	if image != nil {
		defer image.Close()
		content = image
	}

	persisted := s.events.BeginEdit(current)
	if draft.Image == nil {
		// client did not pick a new file, keep the stored reference
		draft.Image = persisted.Image
	}
	if err := s.events.CommitEdit(r.Context(), identityFrom(r.Context()).Email, id, draft, content); err != nil {
		s.events.CancelEdit()
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	confirmed := r.URL.Query().Get("confirm") == "true"

	if err := s.events.Remove(r.Context(), identityFrom(r.Context()).Email, id, confirmed); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
