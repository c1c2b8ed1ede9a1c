// Package memory is the in-process store adapter, used for local development
// and as the test double for the other adapters.
package memory

import (
	"context"
	"sort"
	"sync"

	"caixa/internal/core"
	"caixa/internal/ledger"
	"caixa/internal/store"
)

// document mirrors the remote layout: the snapshot fields plus whatever
// unrelated fields the document carries. Save only touches the snapshot
// fields, which is what merge semantics mean here.
type document struct {
	data  []byte // encoded entradas/saidas
	last  string // lastUpdate, RFC3339
	Extra map[string]string
}

type Store struct {
	mu     sync.Mutex
	docs   map[string]*document
	notifs map[string][]core.Notification
	admins map[string]bool
}

func New() *Store {
	return &Store{
		docs:   make(map[string]*document),
		notifs: make(map[string][]core.Notification),
		admins: make(map[string]bool),
	}
}

var (
	_ store.SnapshotStore     = (*Store)(nil)
	_ store.NotificationStore = (*Store)(nil)
	_ store.AdminRegistry     = (*Store)(nil)
	_ store.UserLister        = (*Store)(nil)
)

func (s *Store) Save(_ context.Context, userID string, snap core.Snapshot) error {
	data, err := ledger.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		doc = &document{Extra: make(map[string]string)}
		s.docs[userID] = doc
	}
	doc.data = data
	doc.last = snap.LastUpdate.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	return nil
}

func (s *Store) Load(_ context.Context, userID string) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		return core.Snapshot{}, store.ErrNotFound
	}
	return ledger.DecodeSnapshot(doc.data)
}

func (s *Store) Append(_ context.Context, n core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifs[n.OwnerID] = append(s.notifs[n.OwnerID], n)
	return nil
}

func (s *Store) ListRecent(_ context.Context, ownerID string, limit int) ([]core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := append([]core.Notification(nil), s.notifs[ownerID]...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) Exists(_ context.Context, ownerID, dedupKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifs[ownerID] {
		if n.DedupKey == dedupKey {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) IsAdmin(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admins[userID], nil
}

// GrantAdmin marks a user as admin. Test and dev helper; the real registry
// is maintained out of band.
func (s *Store) GrantAdmin(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[userID] = true
}

func (s *Store) ListUsers(_ context.Context) ([]store.UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.UserInfo, 0, len(s.docs))
	for id, doc := range s.docs {
		out = append(out, store.UserInfo{ID: id, LastUpdate: doc.last})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetExtraField plants an unrelated field on a user document, and RawDocument
// reads the stored bytes back. Both exist so tests can verify merge
// semantics and save idempotence.
func (s *Store) SetExtraField(userID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		doc = &document{Extra: make(map[string]string)}
		s.docs[userID] = doc
	}
	doc.Extra[key] = value
}

func (s *Store) ExtraField(userID, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		return "", false
	}
	v, ok := doc.Extra[key]
	return v, ok
}

func (s *Store) RawDocument(userID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), doc.data...), true
}
