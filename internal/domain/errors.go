package domain

import (
	"errors"
)

// Sentinel errors - use with errors.Is()
var (
	// ErrNotFound indicates a document or entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid local input. Validation failures are
	// rejected synchronously and never reach the remote store.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates a failed credential check at the session gate.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates an operation that is illegal in the current
	// session state (e.g. submitting setup when a credential already exists).
	ErrConflict = errors.New("conflict")

	// ErrRemote indicates a failed call against the remote store. The
	// triggering operation is left unresolved; the caller retries manually.
	ErrRemote = errors.New("remote store failure")
)
