// Package firestore is the cloud adapter: one document per user in the
// `users` collection, an append-only `notifications` collection and a
// read-only `admins` registry.
//
// Snapshot writes use MergeAll so unrelated fields of the user document
// (identity metadata written by the auth layer) survive every save.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	cloudfs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	goption "google.golang.org/api/option"

	"caixa/internal/core"
	"caixa/internal/store"
)

const (
	usersCollection         = "users"
	notificationsCollection = "notifications"
	adminsCollection        = "admins"
)

type Store struct {
	client *cloudfs.Client
}

var (
	_ store.SnapshotStore     = (*Store)(nil)
	_ store.NotificationStore = (*Store)(nil)
	_ store.AdminRegistry     = (*Store)(nil)
	_ store.UserLister        = (*Store)(nil)
)

// NewFromEnv creates a Firestore client from environment configuration.
// Required: FIRESTORE_PROJECT_ID. Optional: FIRESTORE_CREDENTIALS_FILE or
// FIRESTORE_CREDENTIALS_JSON; without either, application default
// credentials are used.
func NewFromEnv(ctx context.Context) (*Store, error) {
	projectID := strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID"))
	if projectID == "" {
		return nil, errors.New("missing FIRESTORE_PROJECT_ID")
	}
	return New(ctx, projectID,
		strings.TrimSpace(os.Getenv("FIRESTORE_CREDENTIALS_FILE")),
		os.Getenv("FIRESTORE_CREDENTIALS_JSON"))
}

func New(ctx context.Context, projectID, credentialsFile, credentialsJSON string) (*Store, error) {
	var opts []goption.ClientOption
	if credentialsFile != "" {
		opts = append(opts, goption.WithCredentialsFile(credentialsFile))
	} else if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, goption.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	client, err := cloudfs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Save writes the snapshot fields of the user document with MergeAll.
// Re-saving an identical snapshot rewrites the same field values, so the
// entry lists are unchanged after the second call.
func (s *Store) Save(ctx context.Context, userID string, snap core.Snapshot) error {
	entradas := make([]any, 0, len(snap.Incomes))
	for _, e := range snap.Incomes {
		entradas = append(entradas, map[string]any{
			"id":        e.ID,
			"descricao": e.Description,
			"valor":     e.Amount.Units(),
		})
	}
	saidas := make([]any, 0, len(snap.Expenses))
	for _, e := range snap.Expenses {
		due := ""
		if !e.DueDate.IsEmpty() {
			due = e.DueDate.Format("2006-01-02")
		}
		saidas = append(saidas, map[string]any{
			"id":         e.ID,
			"categoria":  e.Category,
			"descricao":  e.Description,
			"valor":      e.Amount.Units(),
			"status":     string(e.Status),
			"vencimento": due,
		})
	}

	_, err := s.client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]any{
		"entradas":   entradas,
		"saidas":     saidas,
		"lastUpdate": snap.LastUpdate,
	}, cloudfs.MergeAll)
	if err != nil {
		return fmt.Errorf("set user document: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved to Firestore",
		"user_id", userID,
		"incomes", len(snap.Incomes),
		"expenses", len(snap.Expenses))

	return nil
}

type (
	fsIncome struct {
		ID        string  `firestore:"id"`
		Descricao string  `firestore:"descricao"`
		Valor     float64 `firestore:"valor"`
	}

	fsExpense struct {
		ID         string  `firestore:"id"`
		Categoria  string  `firestore:"categoria"`
		Descricao  string  `firestore:"descricao"`
		Valor      float64 `firestore:"valor"`
		Status     string  `firestore:"status"`
		Vencimento string  `firestore:"vencimento"`
	}

	fsDocument struct {
		Entradas   []fsIncome  `firestore:"entradas"`
		Saidas     []fsExpense `firestore:"saidas"`
		LastUpdate time.Time   `firestore:"lastUpdate"`
	}
)

func (s *Store) Load(ctx context.Context, userID string) (core.Snapshot, error) {
	docsnap, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if docsnap != nil && !docsnap.Exists() {
			return core.Snapshot{}, store.ErrNotFound
		}
		return core.Snapshot{}, fmt.Errorf("get user document: %w", err)
	}

	var doc fsDocument
	if err := docsnap.DataTo(&doc); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode user document: %w", err)
	}

	snap := core.Snapshot{
		Incomes:    make([]core.IncomeEntry, 0, len(doc.Entradas)),
		Expenses:   make([]core.ExpenseEntry, 0, len(doc.Saidas)),
		LastUpdate: doc.LastUpdate,
	}
	for _, w := range doc.Entradas {
		snap.Incomes = append(snap.Incomes, core.IncomeEntry{
			ID:          w.ID,
			Description: w.Descricao,
			Amount:      centsFromUnits(w.Valor),
		})
	}
	for _, w := range doc.Saidas {
		status := core.Status(w.Status)
		if status == "" {
			status = core.Pending
		}
		var due core.Date
		if w.Vencimento != "" {
			if t, err := time.Parse("2006-01-02", w.Vencimento); err == nil {
				due = core.Date{Time: t}
			}
		}
		snap.Expenses = append(snap.Expenses, core.ExpenseEntry{
			ID:          w.ID,
			Category:    w.Categoria,
			Description: w.Descricao,
			Amount:      centsFromUnits(w.Valor),
			Status:      status,
			DueDate:     due,
		})
	}
	return snap, nil
}

func (s *Store) Append(ctx context.Context, n core.Notification) error {
	_, err := s.client.Collection(notificationsCollection).Doc(n.ID).Set(ctx, map[string]any{
		"userId":    n.OwnerID,
		"title":     n.Title,
		"message":   n.Message,
		"timestamp": n.Timestamp,
		"read":      n.Read,
		"dedupKey":  n.DedupKey,
	})
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, ownerID string, limit int) ([]core.Notification, error) {
	iter := s.client.Collection(notificationsCollection).
		Where("userId", "==", ownerID).
		OrderBy("timestamp", cloudfs.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []core.Notification
	for {
		docsnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate notifications: %w", err)
		}
		var n struct {
			UserID    string    `firestore:"userId"`
			Title     string    `firestore:"title"`
			Message   string    `firestore:"message"`
			Timestamp time.Time `firestore:"timestamp"`
			Read      bool      `firestore:"read"`
			DedupKey  string    `firestore:"dedupKey"`
		}
		if err := docsnap.DataTo(&n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, core.Notification{
			ID:        docsnap.Ref.ID,
			OwnerID:   n.UserID,
			Title:     n.Title,
			Message:   n.Message,
			Timestamp: n.Timestamp,
			Read:      n.Read,
			DedupKey:  n.DedupKey,
		})
	}
	return out, nil
}

func (s *Store) Exists(ctx context.Context, ownerID, dedupKey string) (bool, error) {
	iter := s.client.Collection(notificationsCollection).
		Where("userId", "==", ownerID).
		Where("dedupKey", "==", dedupKey).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query notification dedup: %w", err)
	}
	return true, nil
}

// IsAdmin reports whether an admins/{userID} document exists.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	docsnap, err := s.client.Collection(adminsCollection).Doc(userID).Get(ctx)
	if err != nil {
		if docsnap != nil && !docsnap.Exists() {
			return false, nil
		}
		return false, fmt.Errorf("get admin document: %w", err)
	}
	return docsnap.Exists(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]store.UserInfo, error) {
	iter := s.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var out []store.UserInfo
	for {
		docsnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate users: %w", err)
		}
		info := store.UserInfo{ID: docsnap.Ref.ID}
		if v, err := docsnap.DataAt("lastUpdate"); err == nil {
			if t, ok := v.(time.Time); ok {
				info.LastUpdate = t.UTC().Format(time.RFC3339)
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// centsFromUnits converts a stored double back to exact cents. Half-up on
// the cent keeps values written by other clients (raw JS numbers) stable.
func centsFromUnits(v float64) core.Money {
	return core.Money{Cents: int64(math.Round(v * 100))}
}
