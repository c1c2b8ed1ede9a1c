// Package session ties a logged-in user to their in-memory ledger and keeps
// the remote snapshot in sync.
//
// All remote writes go through a single background drainer per session.
// Mutations overwrite a pending slot instead of queueing, so when edits
// arrive faster than saves complete only the latest snapshot is written and
// writes for the user never interleave.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"caixa/internal/core"
	"caixa/internal/ledger"
	"caixa/internal/store"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSuperseded is returned by Login when a newer login or logout was
	// issued while the snapshot load was in flight. The loaded result is
	// discarded.
	ErrSuperseded = errors.New("login superseded by a newer operation")
)

// DueNotifier schedules due-date reminders. ScheduleAllDue runs the check
// over a full expense set, which Login does after loading a snapshot.
type DueNotifier interface {
	ScheduleDue(ctx context.Context, ownerID string, e core.ExpenseEntry) error
	ScheduleAllDue(ctx context.Context, ownerID string, expenses []core.ExpenseEntry) error
}

const saveTimeout = 15 * time.Second

type pendingSave struct {
	userID string
	snap   core.Snapshot
}

// Session owns the identity and ledger of one user. Methods are safe for
// concurrent use.
type Session struct {
	snapshots store.SnapshotStore
	notifier  DueNotifier
	logger    *slog.Logger

	mu     sync.Mutex
	userID string
	authed bool
	led    *ledger.Ledger
	gen    uint64

	loads singleflight.Group

	saveMu  sync.Mutex
	pending *pendingSave
	saving  bool
	wg      sync.WaitGroup

	errMu   sync.Mutex
	lastErr *store.SyncError
}

// New creates an unauthenticated session. notifier may be nil.
func New(snapshots store.SnapshotStore, notifier DueNotifier, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		snapshots: snapshots,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Login loads the user's snapshot and binds the session to it. A first-time
// user gets an empty ledger and the remote document is created right away.
// If another Login or Logout is issued before the load returns, the load's
// result is discarded and ErrSuperseded is returned.
func (s *Session) Login(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	// Outstanding saves belong to the previous identity. Let them land
	// before the pending slot can be reused.
	s.Wait()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	v, err, _ := s.loads.Do(userID, func() (interface{}, error) {
		return s.snapshots.Load(ctx, userID)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		s.logger.InfoContext(ctx, "Discarding superseded login", "user_id", userID)
		return ErrSuperseded
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		s.led = ledger.New()
		s.userID = userID
		s.authed = true
		// Create the remote document so the next load finds it.
		s.scheduleSaveLocked()
		s.logger.InfoContext(ctx, "First login, initialized empty ledger", "user_id", userID)

	case err != nil:
		s.authed = false
		return &store.SyncError{Op: "load", UserID: userID, Err: err}

	default:
		snap := v.(core.Snapshot)
		s.led = ledger.New()
		s.led.ReplaceAll(snap)
		s.userID = userID
		s.authed = true
		incomes, expenses := s.led.Len()
		s.logger.InfoContext(ctx, "Session started",
			"user_id", userID,
			"incomes", incomes,
			"expenses", expenses)
		// Check the loaded expenses for upcoming due dates.
		if s.notifier != nil {
			if err := s.notifier.ScheduleAllDue(ctx, userID, s.led.Expenses()); err != nil {
				s.logger.WarnContext(ctx, "Failed to schedule due-date reminders on login",
					"user_id", userID,
					"error", err)
			}
		}
	}

	return nil
}

// Logout discards the in-memory ledger. Saves already scheduled still run
// to completion; nothing issued after this point touches the old identity.
func (s *Session) Logout() {
	s.mu.Lock()
	s.gen++
	s.userID = ""
	s.authed = false
	s.led = nil
	s.mu.Unlock()

	s.Wait()
}

func (s *Session) AddIncome(ctx context.Context, e core.IncomeEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return "", ErrNotAuthenticated
	}
	id, err := s.led.AddIncome(e)
	if err != nil {
		return "", err
	}
	s.scheduleSaveLocked()
	return id, nil
}

func (s *Session) AddExpense(ctx context.Context, e core.ExpenseEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return "", ErrNotAuthenticated
	}
	id, err := s.led.AddExpense(e)
	if err != nil {
		return "", err
	}
	e.ID = id
	s.scheduleSaveLocked()
	s.notifyLocked(ctx, e)
	return id, nil
}

func (s *Session) UpdateIncome(ctx context.Context, index int, e core.IncomeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.UpdateIncome(index, e); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	return nil
}

func (s *Session) UpdateExpense(ctx context.Context, index int, e core.ExpenseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.UpdateExpense(index, e); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	// The stored entry keeps its ID; notify with the stored form.
	s.notifyLocked(ctx, s.led.Expenses()[index])
	return nil
}

func (s *Session) UpdateIncomeByID(ctx context.Context, id string, e core.IncomeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.UpdateIncomeByID(id, e); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	return nil
}

func (s *Session) UpdateExpenseByID(ctx context.Context, id string, e core.ExpenseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.UpdateExpenseByID(id, e); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	if i, ok := s.led.ExpenseIndex(id); ok {
		s.notifyLocked(ctx, s.led.Expenses()[i])
	}
	return nil
}

func (s *Session) RemoveIncome(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.RemoveIncome(index); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	return nil
}

func (s *Session) RemoveExpense(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.RemoveExpense(index); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	return nil
}

func (s *Session) RemoveIncomeByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.RemoveIncomeByID(id); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	return nil
}

func (s *Session) RemoveExpenseByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.RemoveExpenseByID(id); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	return nil
}

// Reset clears the ledger. Requires confirm; a false confirm is rejected
// and nothing changes.
func (s *Session) Reset(ctx context.Context, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.Reset(confirm); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	return nil
}

func (s *Session) Totals() (ledger.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ledger.Totals{}, ErrNotAuthenticated
	}
	return s.led.Totals(), nil
}

func (s *Session) Incomes() ([]core.IncomeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return nil, ErrNotAuthenticated
	}
	return s.led.Incomes(), nil
}

func (s *Session) Expenses() ([]core.ExpenseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return nil, ErrNotAuthenticated
	}
	return s.led.Expenses(), nil
}

// Export returns the ledger in the wire document format.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return nil, ErrNotAuthenticated
	}
	return s.led.Serialize()
}

// Import replaces the ledger with a wire document. The document is decoded
// all or nothing; on a format error the ledger is unchanged.
func (s *Session) Import(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	if err := s.led.Deserialize(data); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	for _, e := range s.led.Expenses() {
		s.notifyLocked(ctx, e)
	}
	return nil
}

// Report writes the plain-text ledger report.
func (s *Session) Report(w io.Writer, tag language.Tag, unit currency.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ErrNotAuthenticated
	}
	return ledger.WriteReport(w, s.led, tag, unit)
}

// SaveNow writes the current snapshot synchronously. Scheduled saves are
// drained first so the write is the newest one. Without a logged-in user
// there is nothing to persist and the call is a no-op.
func (s *Session) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	if !s.authed {
		s.mu.Unlock()
		return nil
	}
	userID := s.userID
	snap := s.led.Snapshot()
	s.mu.Unlock()

	s.Wait()

	if err := s.snapshots.Save(ctx, userID, snap); err != nil {
		syncErr := &store.SyncError{Op: "save", UserID: userID, Err: err}
		s.setLastErr(syncErr)
		return syncErr
	}
	s.setLastErr(nil)
	return nil
}

// Wait blocks until every scheduled save has completed.
func (s *Session) Wait() {
	s.wg.Wait()
}

// LastSyncError returns the most recent background save failure, or nil.
// A successful save clears it.
func (s *Session) LastSyncError() *store.SyncError {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

func (s *Session) setLastErr(err *store.SyncError) {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
}

func (s *Session) notifyLocked(ctx context.Context, e core.ExpenseEntry) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ScheduleDue(ctx, s.userID, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to schedule due-date reminder",
			"user_id", s.userID,
			"expense_id", e.ID,
			"error", err)
	}
}

// scheduleSaveLocked snapshots the ledger into the pending slot and makes
// sure a drainer is running. Caller holds s.mu.
func (s *Session) scheduleSaveLocked() {
	p := &pendingSave{userID: s.userID, snap: s.led.Snapshot()}

	s.saveMu.Lock()
	s.pending = p
	if !s.saving {
		s.saving = true
		s.wg.Add(1)
		go s.drain()
	}
	s.saveMu.Unlock()
}

func (s *Session) drain() {
	defer s.wg.Done()
	for {
		s.saveMu.Lock()
		p := s.pending
		s.pending = nil
		if p == nil {
			s.saving = false
			s.saveMu.Unlock()
			return
		}
		s.saveMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := s.snapshots.Save(ctx, p.userID, p.snap)
		cancel()
		if err != nil {
			syncErr := &store.SyncError{Op: "save", UserID: p.userID, Err: err}
			s.setLastErr(syncErr)
			s.logger.Error("Background save failed",
				"user_id", p.userID,
				"error", fmt.Sprintf("%v", err))
			continue
		}
		s.setLastErr(nil)
	}
}
