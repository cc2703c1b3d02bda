// Package store provides a schemaless collection-of-documents store.
// Documents are opaque JSON objects addressed by (collection, id); the
// Postgres backend keeps them in a single JSONB table.
package store

import (
	"context"
	"encoding/json"
)

// Document is one raw entry of a collection.
type Document struct {
	ID   string
	Data json.RawMessage
}

// OrderUpdate assigns a new sortOrder value to one document.
type OrderUpdate struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// DocumentStore is the boundary the content layer depends on. There are
// no multi-document transactions: every call is an independent
// round trip, except SetOrderBatch which is atomic where the backend
// supports it.
type DocumentStore interface {
	// List returns every document of a collection in stable document-ID
	// order. An empty collection yields an empty slice, not an error.
	List(ctx context.Context, collection string) ([]Document, error)

	// Get returns a single document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)

	// Set overwrites (or creates) the full document.
	Set(ctx context.Context, collection, id string, data json.RawMessage) error

	// UpdateField replaces one top-level field of an existing document.
	// Returns ErrNotFound if the document does not exist.
	UpdateField(ctx context.Context, collection, id, field string, value json.RawMessage) error

	// Delete removes a document. Returns ErrNotFound if absent.
	Delete(ctx context.Context, collection, id string) error

	// SetOrderBatch writes sortOrder values onto many documents of one
	// collection as a single batch.
	SetOrderBatch(ctx context.Context, collection string, items []OrderUpdate) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
