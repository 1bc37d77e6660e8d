// Package state provides SQLite-based persistence for Switchboard.
package state

import (
	"io"
	"time"
)

// Store is the key/value persistence collaborator interface. Pattern tables
// and archived sessions are persisted through it; callers never depend on
// the concrete SQLite implementation.
type Store interface {
	io.Closer
	// Get returns the value for key. The bool is false when the key is
	// absent or expired.
	Get(key string) ([]byte, bool, error)
	// Put stores value under key. A ttl of zero means no expiry.
	Put(key string, value []byte, ttl time.Duration) error
	// Delete removes the entry for key.
	Delete(key string) error
	// List returns all unexpired entries whose key starts with prefix.
	List(prefix string) (map[string][]byte, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Compile-time verification that DB implements the interfaces.
var (
	_ Store    = (*DB)(nil)
	_ Migrator = (*DB)(nil)
)
