package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"caixa/internal/core"
	"caixa/internal/store/memory"
)

func salary() core.IncomeEntry {
	return core.IncomeEntry{Description: "Salário", Amount: core.Money{Cents: 500000}}
}

func groceries() core.ExpenseEntry {
	return core.ExpenseEntry{
		Category:    "🛒 Mercado",
		Description: "Mercado",
		Amount:      core.Money{Cents: 45050},
		Status:      core.Pending,
	}
}

func TestUnauthenticatedOperationsFail(t *testing.T) {
	st := memory.New()
	s := New(st, nil, nil)
	ctx := context.Background()

	if _, err := s.AddIncome(ctx, salary()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("AddIncome error = %v, want ErrNotAuthenticated", err)
	}
	if _, err := s.AddExpense(ctx, groceries()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("AddExpense error = %v, want ErrNotAuthenticated", err)
	}
	if _, err := s.Totals(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Totals error = %v, want ErrNotAuthenticated", err)
	}
	// Saving without a user is a no-op, not an error.
	if err := s.SaveNow(ctx); err != nil {
		t.Errorf("SaveNow error = %v, want nil", err)
	}
	if _, ok := st.RawDocument(""); ok {
		t.Error("SaveNow without a user should not write a document")
	}
	if s.IsAuthenticated() {
		t.Error("session should not be authenticated")
	}
}

func TestFirstLoginInitializesAndCreatesDocument(t *testing.T) {
	st := memory.New()
	s := New(st, nil, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if !s.IsAuthenticated() {
		t.Fatal("session should be authenticated after login")
	}

	totals, err := s.Totals()
	if err != nil {
		t.Fatalf("Totals() error: %v", err)
	}
	if totals.TotalIncome.Cents != 0 || totals.TotalExpense.Cents != 0 {
		t.Errorf("fresh ledger should be empty, got %+v", totals)
	}

	s.Wait()
	if _, err := st.Load(ctx, "user-1"); err != nil {
		t.Errorf("remote document should exist after first login: %v", err)
	}
}

func TestLoginLoadsExistingData(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	first := New(st, nil, nil)
	if err := first.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if _, err := first.AddIncome(ctx, salary()); err != nil {
		t.Fatalf("AddIncome() error: %v", err)
	}
	if _, err := first.AddExpense(ctx, groceries()); err != nil {
		t.Fatalf("AddExpense() error: %v", err)
	}
	first.Logout()

	second := New(st, nil, nil)
	if err := second.Login(ctx, "user-1"); err != nil {
		t.Fatalf("re-Login() error: %v", err)
	}
	totals, err := second.Totals()
	if err != nil {
		t.Fatalf("Totals() error: %v", err)
	}
	if totals.TotalIncome.Cents != 500000 {
		t.Errorf("income = %d, want 500000", totals.TotalIncome.Cents)
	}
	if totals.TotalExpense.Cents != 45050 {
		t.Errorf("expense = %d, want 45050", totals.TotalExpense.Cents)
	}
	if totals.Balance.Cents != 454950 {
		t.Errorf("balance = %d, want 454950", totals.Balance.Cents)
	}
}

func TestLogoutDiscardsState(t *testing.T) {
	s := New(memory.New(), nil, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if _, err := s.AddIncome(ctx, salary()); err != nil {
		t.Fatalf("AddIncome() error: %v", err)
	}
	s.Logout()

	if s.IsAuthenticated() {
		t.Error("session should not be authenticated after logout")
	}
	if _, err := s.Totals(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Totals after logout = %v, want ErrNotAuthenticated", err)
	}
}

func TestRepeatedSaveIsIdempotent(t *testing.T) {
	st := memory.New()
	s := New(st, nil, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if _, err := s.AddIncome(ctx, salary()); err != nil {
		t.Fatalf("AddIncome() error: %v", err)
	}

	if err := s.SaveNow(ctx); err != nil {
		t.Fatalf("first SaveNow() error: %v", err)
	}
	doc1, ok := st.RawDocument("user-1")
	if !ok {
		t.Fatal("document missing after save")
	}

	if err := s.SaveNow(ctx); err != nil {
		t.Fatalf("second SaveNow() error: %v", err)
	}
	doc2, _ := st.RawDocument("user-1")

	if !bytes.Equal(doc1, doc2) {
		t.Errorf("repeated save changed the document:\n%s\nvs\n%s", doc1, doc2)
	}
}

func TestRapidMutationsConvergeToFinalState(t *testing.T) {
	st := memory.New()
	s := New(st, nil, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	var lastID string
	for i := 0; i < 50; i++ {
		id, err := s.AddIncome(ctx, salary())
		if err != nil {
			t.Fatalf("AddIncome() run %d error: %v", i, err)
		}
		lastID = id
	}
	for i := 0; i < 49; i++ {
		incomes, _ := s.Incomes()
		if err := s.RemoveIncomeByID(ctx, incomes[0].ID); err != nil {
			t.Fatalf("RemoveIncomeByID() run %d error: %v", i, err)
		}
	}
	s.Wait()

	snap, err := st.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(snap.Incomes) != 1 {
		t.Fatalf("stored incomes = %d, want 1", len(snap.Incomes))
	}
	if snap.Incomes[0].ID != lastID {
		t.Errorf("stored income id = %s, want %s", snap.Incomes[0].ID, lastID)
	}
}

// blockingStore delays Load until released so a login can be superseded
// while its load is in flight.
type blockingStore struct {
	inner   *memory.Store
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		inner:   memory.New(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingStore) Save(ctx context.Context, userID string, snap core.Snapshot) error {
	return b.inner.Save(ctx, userID, snap)
}

func (b *blockingStore) Load(ctx context.Context, userID string) (core.Snapshot, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.inner.Load(ctx, userID)
}

func TestSupersededLoginIsDiscarded(t *testing.T) {
	bs := newBlockingStore()
	s := New(bs, nil, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- s.Login(ctx, "user-1")
	}()

	<-bs.started
	s.Logout()
	close(bs.release)

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("Login() error = %v, want ErrSuperseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Login() did not return")
	}

	if s.IsAuthenticated() {
		t.Error("superseded login must not authenticate the session")
	}
}

func TestImportBadPayloadLeavesStateUnchanged(t *testing.T) {
	s := New(memory.New(), nil, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if _, err := s.AddIncome(ctx, salary()); err != nil {
		t.Fatalf("AddIncome() error: %v", err)
	}

	if err := s.Import(ctx, []byte(`{"entradas": "nope"`)); err == nil {
		t.Fatal("Import() of garbage should fail")
	}

	totals, _ := s.Totals()
	if totals.TotalIncome.Cents != 500000 {
		t.Errorf("income = %d after failed import, want 500000", totals.TotalIncome.Cents)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	st := memory.New()
	s := New(st, nil, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if _, err := s.AddIncome(ctx, salary()); err != nil {
		t.Fatalf("AddIncome() error: %v", err)
	}
	if _, err := s.AddExpense(ctx, groceries()); err != nil {
		t.Fatalf("AddExpense() error: %v", err)
	}

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	other := New(st, nil, nil)
	if err := other.Login(ctx, "user-2"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if err := other.Import(ctx, data); err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	a, _ := s.Totals()
	b, _ := other.Totals()
	if a != b {
		t.Errorf("totals differ after import: %+v vs %+v", a, b)
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []core.ExpenseEntry
}

func (r *recordingNotifier) ScheduleDue(_ context.Context, _ string, e core.ExpenseEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, e)
	return nil
}

func (r *recordingNotifier) ScheduleAllDue(ctx context.Context, ownerID string, expenses []core.ExpenseEntry) error {
	for _, e := range expenses {
		if err := r.ScheduleDue(ctx, ownerID, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestLoginRunsDueCheckOverLoadedExpenses(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	seed := New(st, nil, nil)
	if err := seed.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if _, err := seed.AddExpense(ctx, groceries()); err != nil {
		t.Fatalf("AddExpense() error: %v", err)
	}
	seed.Logout()

	rn := &recordingNotifier{}
	s := New(st, rn, nil)
	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	if rn.count() != 1 {
		t.Fatalf("notifier saw %d expenses on login, want 1", rn.count())
	}
	if rn.calls[0].Description != "Mercado" {
		t.Errorf("notifier saw %q, want the loaded expense", rn.calls[0].Description)
	}
}

func TestExpenseMutationsReachNotifier(t *testing.T) {
	rn := &recordingNotifier{}
	s := New(memory.New(), rn, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	e := groceries()
	e.DueDate = core.Date{Time: time.Now().AddDate(0, 0, 2)}
	id, err := s.AddExpense(ctx, e)
	if err != nil {
		t.Fatalf("AddExpense() error: %v", err)
	}
	if len(rn.calls) != 1 {
		t.Fatalf("notifier calls = %d after add, want 1", len(rn.calls))
	}
	if rn.calls[0].ID != id {
		t.Errorf("notified entry id = %s, want %s", rn.calls[0].ID, id)
	}

	e.ID = id
	e.Description = "Mercado do mês"
	if err := s.UpdateExpenseByID(ctx, id, e); err != nil {
		t.Fatalf("UpdateExpenseByID() error: %v", err)
	}
	if len(rn.calls) != 2 {
		t.Errorf("notifier calls = %d after update, want 2", len(rn.calls))
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	s := New(memory.New(), nil, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if _, err := s.AddIncome(ctx, salary()); err != nil {
		t.Fatalf("AddIncome() error: %v", err)
	}

	if err := s.Reset(ctx, false); err == nil {
		t.Fatal("Reset(false) should fail")
	}
	totals, _ := s.Totals()
	if totals.TotalIncome.Cents != 500000 {
		t.Errorf("income = %d after rejected reset, want 500000", totals.TotalIncome.Cents)
	}

	if err := s.Reset(ctx, true); err != nil {
		t.Fatalf("Reset(true) error: %v", err)
	}
	totals, _ = s.Totals()
	if totals.TotalIncome.Cents != 0 {
		t.Errorf("income = %d after reset, want 0", totals.TotalIncome.Cents)
	}
}

func TestFailedBackgroundSaveIsSurfaced(t *testing.T) {
	fs := &failingStore{inner: memory.New()}
	s := New(fs, nil, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "user-1"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	s.Wait()

	fs.fail = true
	if _, err := s.AddIncome(ctx, salary()); err != nil {
		t.Fatalf("AddIncome() error: %v", err)
	}
	s.Wait()

	syncErr := s.LastSyncError()
	if syncErr == nil {
		t.Fatal("expected a sync error after failed background save")
	}
	if syncErr.Op != "save" || syncErr.UserID != "user-1" {
		t.Errorf("sync error = %+v", syncErr)
	}

	fs.fail = false
	if err := s.SaveNow(ctx); err != nil {
		t.Fatalf("SaveNow() error: %v", err)
	}
	if s.LastSyncError() != nil {
		t.Error("successful save should clear the sync error")
	}
}

type failingStore struct {
	inner *memory.Store
	fail  bool
}

func (f *failingStore) Save(ctx context.Context, userID string, snap core.Snapshot) error {
	if f.fail {
		return errors.New("remote unavailable")
	}
	return f.inner.Save(ctx, userID, snap)
}

func (f *failingStore) Load(ctx context.Context, userID string) (core.Snapshot, error) {
	return f.inner.Load(ctx, userID)
}
