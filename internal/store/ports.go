// Package store defines the ports to the document store that persists user
// snapshots, notifications and the admin registry. Adapters live in the
// subpackages; all of them are stateless transports that never retain
// ledger state between calls.
package store

import (
	"context"
	"errors"
	"fmt"

	"caixa/internal/core"
)

// ErrNotFound reports that no snapshot document exists for the user yet.
// First access is a documented transition, not a failure: the caller
// initializes an empty snapshot and the next Save creates the document.
var ErrNotFound = errors.New("snapshot not found")

// SyncError wraps a transport failure with enough context to display.
type SyncError struct {
	Op     string
	UserID string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s for user %s: %v", e.Op, e.UserID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Ports for outbound adapters.
type (
	// SnapshotStore persists one ledger snapshot per user.
	//
	// Save uses merge semantics: fields of the remote document that are
	// not part of the snapshot (identity metadata and the like) must
	// survive a write. Saving an identical snapshot twice leaves the
	// document's entry lists unchanged, so callers may retry at will.
	SnapshotStore interface {
		Save(ctx context.Context, userID string, snap core.Snapshot) error
		// Load returns ErrNotFound when the user has no document yet.
		Load(ctx context.Context, userID string) (core.Snapshot, error)
	}

	// NotificationStore is an append-only alert log per owner.
	NotificationStore interface {
		Append(ctx context.Context, n core.Notification) error
		// ListRecent returns at most limit notifications, newest first.
		ListRecent(ctx context.Context, ownerID string, limit int) ([]core.Notification, error)
		// Exists reports whether a notification with the dedup key was
		// already appended for the owner.
		Exists(ctx context.Context, ownerID, dedupKey string) (bool, error)
	}

	// AdminRegistry answers whether a user has the admin flag.
	AdminRegistry interface {
		IsAdmin(ctx context.Context, userID string) (bool, error)
	}

	// UserLister enumerates users with stored snapshots. Optional; the
	// admin view degrades gracefully when an adapter does not provide it.
	UserLister interface {
		ListUsers(ctx context.Context) ([]UserInfo, error)
	}
)

// UserInfo is a row of the admin user listing.
type UserInfo struct {
	ID         string
	LastUpdate string
}
