package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a message does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrConflict is returned when a message with the given ID already exists.
	ErrConflict = errors.New("message already exists")
)
