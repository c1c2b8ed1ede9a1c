package ledger

import (
	"errors"
	"testing"

	"caixa/internal/core"
)

func income(desc string, cents int64) core.IncomeEntry {
	return core.IncomeEntry{Description: desc, Amount: core.Money{Cents: cents}}
}

func expense(cat, desc string, cents int64, status core.Status) core.ExpenseEntry {
	return core.ExpenseEntry{Category: cat, Description: desc, Amount: core.Money{Cents: cents}, Status: status}
}

func TestTotalsScenario(t *testing.T) {
	l := New()
	if _, err := l.AddIncome(income("Salário", 500000)); err != nil {
		t.Fatalf("add income: %v", err)
	}
	if _, err := l.AddExpense(expense("🍔 Alimentação", "Mercado", 45050, core.Pending)); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	got := l.Totals()
	if got.TotalIncome.Cents != 500000 {
		t.Fatalf("expected total income 500000, got %d", got.TotalIncome.Cents)
	}
	if got.TotalExpense.Cents != 45050 {
		t.Fatalf("expected total expense 45050, got %d", got.TotalExpense.Cents)
	}
	if got.Balance.Cents != 454950 {
		t.Fatalf("expected balance 454950, got %d", got.Balance.Cents)
	}
}

func TestTotalsAlwaysConsistent(t *testing.T) {
	l := New()
	check := func() {
		var in, out int64
		for _, e := range l.Incomes() {
			in += e.Amount.Cents
		}
		for _, e := range l.Expenses() {
			out += e.Amount.Cents
		}
		got := l.Totals()
		if got.TotalIncome.Cents != in || got.TotalExpense.Cents != out || got.Balance.Cents != in-out {
			t.Fatalf("totals out of sync: got %+v, want in=%d out=%d", got, in, out)
		}
	}

	check()
	l.AddIncome(income("a", 100))
	check()
	l.AddIncome(income("b", 250))
	check()
	l.AddExpense(expense("c", "x", 75, core.Paid))
	check()
	if err := l.RemoveIncome(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	check()
	if err := l.UpdateExpense(0, expense("c", "x", 80, core.Pending)); err != nil {
		t.Fatalf("update: %v", err)
	}
	check()
	if err := l.RemoveExpense(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	check()
}

func TestIndexErrorsLeaveLedgerUnchanged(t *testing.T) {
	l := New()
	l.AddIncome(income("a", 100))
	before := l.Totals()

	if err := l.RemoveIncome(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := l.RemoveIncome(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := l.UpdateIncome(1, income("b", 200)); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := l.UpdateExpense(0, expense("c", "x", 1, core.Paid)); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}

	if got := l.Totals(); got != before {
		t.Fatalf("ledger changed after failed ops: %+v vs %+v", got, before)
	}
	if in, _ := l.Len(); in != 1 {
		t.Fatalf("expected 1 income, got %d", in)
	}
}

func TestValidationRejectsBadEntries(t *testing.T) {
	l := New()
	if _, err := l.AddIncome(income("", 100)); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
	if _, err := l.AddExpense(expense("c", "x", 0, core.Paid)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if in, out := l.Len(); in != 0 || out != 0 {
		t.Fatalf("rejected entries must not be stored: %d/%d", in, out)
	}
}

func TestUpdatePreservesEntryID(t *testing.T) {
	l := New()
	id, err := l.AddIncome(income("a", 100))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.UpdateIncome(0, income("b", 200)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := l.Incomes()[0]; got.ID != id || got.Description != "b" {
		t.Fatalf("expected same id %q with new content, got %+v", id, got)
	}
}

func TestAddressingByID(t *testing.T) {
	l := New()
	l.AddIncome(income("first", 100))
	id, _ := l.AddIncome(income("second", 200))
	l.AddIncome(income("third", 300))

	// Removing an earlier entry shifts indices but not IDs.
	if err := l.RemoveIncome(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := l.UpdateIncomeByID(id, income("second edited", 250)); err != nil {
		t.Fatalf("update by id: %v", err)
	}
	i, ok := l.IncomeIndex(id)
	if !ok {
		t.Fatal("entry vanished")
	}
	if got := l.Incomes()[i]; got.Description != "second edited" {
		t.Fatalf("wrong entry edited: %+v", got)
	}
	if err := l.RemoveIncomeByID("no-such-id"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	l := New()
	l.AddIncome(income("a", 100))
	l.AddExpense(expense("c", "x", 50, core.Paid))

	if err := l.Reset(false); !errors.Is(err, ErrResetNotConfirmed) {
		t.Fatalf("expected ErrResetNotConfirmed, got %v", err)
	}
	if in, out := l.Len(); in != 1 || out != 1 {
		t.Fatal("unconfirmed reset must not clear entries")
	}

	if err := l.Reset(true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if in, out := l.Len(); in != 0 || out != 0 {
		t.Fatal("confirmed reset must clear entries")
	}
	if got := l.Totals(); got.Balance.Cents != 0 {
		t.Fatalf("expected zero balance after reset, got %d", got.Balance.Cents)
	}
}

func TestReplaceAllSwapsState(t *testing.T) {
	l := New()
	l.AddIncome(income("old", 100))

	snap := core.Snapshot{
		Incomes:  []core.IncomeEntry{{ID: "i1", Description: "new", Amount: core.Money{Cents: 200}}},
		Expenses: []core.ExpenseEntry{{ID: "e1", Category: "c", Description: "x", Amount: core.Money{Cents: 50}, Status: core.Paid}},
	}
	l.ReplaceAll(snap)

	if in, out := l.Len(); in != 1 || out != 1 {
		t.Fatalf("expected 1/1 entries, got %d/%d", in, out)
	}
	if got := l.Incomes()[0].Description; got != "new" {
		t.Fatalf("expected replaced income, got %q", got)
	}
	if got := l.Totals(); got.Balance.Cents != 150 {
		t.Fatalf("expected balance 150, got %d", got.Balance.Cents)
	}

	// Mutating the source snapshot must not leak into the ledger.
	snap.Incomes[0].Description = "mutated"
	if got := l.Incomes()[0].Description; got != "new" {
		t.Fatal("ReplaceAll must deep-copy the snapshot")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	l := New()
	l.AddIncome(income("a", 100))
	snap := l.Snapshot()
	snap.Incomes[0].Description = "mutated"
	if got := l.Incomes()[0].Description; got != "a" {
		t.Fatal("Snapshot must not share backing arrays with the ledger")
	}
	if snap.LastUpdate.IsZero() {
		t.Fatal("Snapshot must stamp LastUpdate")
	}
}
