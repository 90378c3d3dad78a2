package common

import (
	"errors"
	"fmt"
)

// ValidationError means the input was bad and the caller can re-prompt.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NotFoundError means the target record vanished between read and write.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s/%s not found", e.Collection, e.ID)
}

// WriteError wraps a transport or permission failure from the document store.
type WriteError struct {
	Op         string
	Collection string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// UploadError wraps a blob store failure. The mutation that triggered the
// upload must not reach the document store.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s failed: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// AuthorizationError is fatal to the session: missing user record or a role
// nobody recognizes. The caller has to re-authenticate.
type AuthorizationError struct {
	Email  string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed for %s: %s", e.Email, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}
