// Package blob declares the binary-object store the event service uploads
// images through. dbmongo backs it with GridFS.
package blob

import (
	"context"
	"io"
)

// Uploader stores one blob and returns the reference to persist in its
// place. pathHint groups uploads (collection + uploader identity); the
// implementation appends a uniqueness token so concurrent uploads never
// collide.
type Uploader interface {
	Upload(ctx context.Context, pathHint string, content io.Reader) (string, error)
}
