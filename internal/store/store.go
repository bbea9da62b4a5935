// Package store defines the abstract document store the billing engine
// runs on: path-addressed JSON documents with an atomic multi-document
// batch. Production uses the postgres implementation; tests use memory.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrDocNotFound is returned by GetDoc and UpdateDoc for absent paths.
var ErrDocNotFound = errors.New("document not found")

// Document is one stored document: its path and raw JSON body.
type Document struct {
	Path string
	Data []byte
}

// Store is the engine's storage contract. Paths are slash-separated
// (e.g. "clients/marisol/units/101/dues/2026"); data crosses the
// boundary as JSON.
type Store interface {
	// GetDoc returns the document at path or ErrDocNotFound.
	GetDoc(ctx context.Context, path string) ([]byte, error)

	// SetDoc writes the full document at path, creating or replacing it.
	SetDoc(ctx context.Context, path string, data any) error

	// UpdateDoc merges top-level fields into an existing document.
	// Returns ErrDocNotFound when the document does not exist.
	UpdateDoc(ctx context.Context, path string, fields map[string]any) error

	// DeleteDoc removes the document at path. Deleting an absent
	// document is not an error.
	DeleteDoc(ctx context.Context, path string) error

	// ListDocs returns the documents directly under collectionPath,
	// ordered by path.
	ListDocs(ctx context.Context, collectionPath string) ([]Document, error)

	// Batch starts an atomic write batch. Either every staged write
	// commits or none do; partial application is never observable.
	Batch() Batch
}

// Batch accumulates writes for a single atomic commit.
type Batch interface {
	Set(path string, data any)
	Update(path string, fields map[string]any)
	Delete(path string)

	// Len reports the number of staged writes.
	Len() int

	// Commit applies every staged write atomically.
	Commit(ctx context.Context) error
}

// Clock supplies the current time in the engine's configured timezone.
// No operation uses the host's local time.
type Clock interface {
	Now() time.Time
}

// TZClock is the production clock: time.Now anchored to a fixed location.
type TZClock struct {
	Loc *time.Location
}

func (c TZClock) Now() time.Time { return time.Now().In(c.Loc) }
