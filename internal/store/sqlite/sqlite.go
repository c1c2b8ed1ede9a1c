// Package sqlite persists snapshots and notifications in a local SQLite
// database. It serves single-machine deployments where no cloud project is
// configured; the schema mirrors the remote document layout (one snapshot
// row per user, the encoded document in one column).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"caixa/internal/core"
	"caixa/internal/ledger"
	"caixa/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var (
	_ store.SnapshotStore     = (*Store)(nil)
	_ store.NotificationStore = (*Store)(nil)
	_ store.AdminRegistry     = (*Store)(nil)
	_ store.UserLister        = (*Store)(nil)
)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save upserts the snapshot document. Only the doc and last_update columns
// are written; created_at and any columns added later survive, which is the
// merge guarantee callers rely on.
func (s *Store) Save(ctx context.Context, userID string, snap core.Snapshot) error {
	data, err := ledger.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (user_id, doc, last_update)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			doc = excluded.doc,
			last_update = excluded.last_update`,
		userID, string(data), snap.LastUpdate.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved to SQLite",
		"user_id", userID,
		"incomes", len(snap.Incomes),
		"expenses", len(snap.Expenses))

	return nil
}

func (s *Store) Load(ctx context.Context, userID string) (core.Snapshot, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM snapshots WHERE user_id = ?`, userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return core.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("select snapshot: %w", err)
	}
	snap, err := ledger.DecodeSnapshot([]byte(doc))
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Append inserts a notification. The unique (owner_id, dedup_key) index
// makes duplicate appends a no-op, backing up the scheduler's dedup check.
func (s *Store) Append(ctx context.Context, n core.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications (id, owner_id, title, message, ts, is_read, dedup_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.OwnerID, n.Title, n.Message, n.Timestamp.UTC().Format(time.RFC3339Nano), boolToInt(n.Read), n.DedupKey)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, ownerID string, limit int) ([]core.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, message, ts, is_read, dedup_key
		FROM notifications
		WHERE owner_id = ?
		ORDER BY ts DESC
		LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var n core.Notification
		var ts string
		var read int
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Message, &ts, &read, &n.DedupKey); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse notification timestamp: %w", err)
		}
		n.Timestamp = t
		n.Read = read != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) Exists(ctx context.Context, ownerID, dedupKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM notifications WHERE owner_id = ? AND dedup_key = ?`,
		ownerID, dedupKey).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select notification dedup: %w", err)
	}
	return true, nil
}

func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM admins WHERE user_id = ?`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select admin flag: %w", err)
	}
	return true, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]store.UserInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, last_update FROM snapshots ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var out []store.UserInfo
	for rows.Next() {
		var u store.UserInfo
		if err := rows.Scan(&u.ID, &u.LastUpdate); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
