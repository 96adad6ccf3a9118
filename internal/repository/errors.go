package repository

import "errors"

// Storage-neutral errors every implementation translates its driver errors into.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
	// ErrUnavailable wraps failures reaching the storage; retrying later may succeed.
	ErrUnavailable = errors.New("storage unavailable")
)
