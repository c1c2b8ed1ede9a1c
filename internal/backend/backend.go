// Package backend selects and constructs the persistence adapter from
// configuration.
package backend

import (
	"context"

	"caixa/internal/store"
)

// Stores bundles the persistence interfaces a backend must provide. Every
// adapter implements all four, so the factory hands them out together.
type Stores struct {
	Snapshots     store.SnapshotStore
	Notifications store.NotificationStore
	Admins        store.AdminRegistry
	Users         store.UserLister
}

// CleanupFunc releases backend resources. May be nil.
type CleanupFunc func() error

// Result contains the constructed stores and optional cleanup function.
type Result struct {
	Stores  Stores
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// Firestore specific
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirestoreCredentialsJSON string
}

// Type represents the kind of persistence backend.
type Type string

const (
	MemoryBackend    Type = "memory"
	SQLiteBackend    Type = "sqlite"
	FirestoreBackend Type = "firestore"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, FirestoreBackend:
		return true
	default:
		return false
	}
}
