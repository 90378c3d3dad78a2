// Package media streams stored event images back out over HTTP.
package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/dbmongo"
)

// BlobReader is the slice of blob storage the handler needs.
type BlobReader interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, *dbmongo.BlobInfo, error)
}

type Handler struct {
	blobs BlobReader
}

func NewHandler(blobs BlobReader) *Handler {
	return &Handler{blobs: blobs}
}

// Register mounts GET /media/{fileId} on the router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/media/{fileId}", h.serveFile).Methods("GET")
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileId"]

	stream, info, err := h.blobs.Download(r.Context(), fileID)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer stream.Close()

	// images are stored without an extension; sniffing is left to the client
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size))

	if _, err := io.Copy(w, stream); err != nil {
		log.Printf("error streaming file %s: %v", fileID, err)
	}
}
