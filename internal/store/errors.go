package store

import "errors"

var (
	// ErrNotFound is returned when a document does not exist in its collection.
	ErrNotFound = errors.New("store: document not found")

	// ErrNotConfigured is returned when the store has no backing connection.
	// Callers must never treat it as a missing document.
	ErrNotConfigured = errors.New("store: not configured")
)
