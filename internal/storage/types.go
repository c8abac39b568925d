package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")

	// ErrNotFound is returned by GetDoc when the named document has never
	// been written. Callers treat it as a cold start, not a failure.
	ErrNotFound = errors.New("document not found")
)

// Config configures storage.
//
// Driver values:
//   - "file": one JSON document per file under Path (a directory)
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store persists named JSON documents durably. PutDoc must be atomic: a
// crash mid-write never leaves a torn document visible to the next GetDoc.
type Store interface {
	GetDoc(ctx context.Context, name string) ([]byte, error)
	PutDoc(ctx context.Context, name string, body []byte) error
	Close() error
}
