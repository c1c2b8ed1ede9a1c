// Package ledger holds the in-memory collection of income and expense
// entries and the derived totals. The ledger itself is not synchronized;
// it has a single logical owner (the session) which serializes access.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"caixa/internal/core"
)

var (
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrEntryNotFound     = errors.New("entry not found")
	ErrResetNotConfirmed = errors.New("reset requires explicit confirmation")
)

// Totals are always recomputed from the current entries; nothing is cached.
type Totals struct {
	TotalIncome  core.Money
	TotalExpense core.Money
	Balance      core.Money
}

type Ledger struct {
	incomes  []core.IncomeEntry
	expenses []core.ExpenseEntry
}

func New() *Ledger {
	return &Ledger{}
}

// AddIncome validates and appends the entry, assigning a stable ID when the
// entry has none. Returns the entry ID.
func (l *Ledger) AddIncome(e core.IncomeEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	l.incomes = append(l.incomes, e)
	return e.ID, nil
}

// AddExpense validates and appends the entry, assigning a stable ID when the
// entry has none. Returns the entry ID.
func (l *Ledger) AddExpense(e core.ExpenseEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	l.expenses = append(l.expenses, e)
	return e.ID, nil
}

// UpdateIncome replaces the entry at the given position. The stored ID is
// preserved; edits never change an entry's identity.
func (l *Ledger) UpdateIncome(index int, e core.IncomeEntry) error {
	if index < 0 || index >= len(l.incomes) {
		return ErrIndexOutOfRange
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.ID = l.incomes[index].ID
	l.incomes[index] = e
	return nil
}

// UpdateExpense replaces the entry at the given position, preserving its ID.
func (l *Ledger) UpdateExpense(index int, e core.ExpenseEntry) error {
	if index < 0 || index >= len(l.expenses) {
		return ErrIndexOutOfRange
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.ID = l.expenses[index].ID
	l.expenses[index] = e
	return nil
}

func (l *Ledger) RemoveIncome(index int) error {
	if index < 0 || index >= len(l.incomes) {
		return ErrIndexOutOfRange
	}
	l.incomes = append(l.incomes[:index], l.incomes[index+1:]...)
	return nil
}

func (l *Ledger) RemoveExpense(index int) error {
	if index < 0 || index >= len(l.expenses) {
		return ErrIndexOutOfRange
	}
	l.expenses = append(l.expenses[:index], l.expenses[index+1:]...)
	return nil
}

// IncomeIndex resolves an entry ID to its current position.
func (l *Ledger) IncomeIndex(id string) (int, bool) {
	for i, e := range l.incomes {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}

// ExpenseIndex resolves an entry ID to its current position.
func (l *Ledger) ExpenseIndex(id string) (int, bool) {
	for i, e := range l.expenses {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}

// UpdateIncomeByID edits an entry addressed by its stable identifier. IDs
// survive list reordering, which index addressing does not.
func (l *Ledger) UpdateIncomeByID(id string, e core.IncomeEntry) error {
	i, ok := l.IncomeIndex(id)
	if !ok {
		return ErrEntryNotFound
	}
	return l.UpdateIncome(i, e)
}

func (l *Ledger) UpdateExpenseByID(id string, e core.ExpenseEntry) error {
	i, ok := l.ExpenseIndex(id)
	if !ok {
		return ErrEntryNotFound
	}
	return l.UpdateExpense(i, e)
}

func (l *Ledger) RemoveIncomeByID(id string) error {
	i, ok := l.IncomeIndex(id)
	if !ok {
		return ErrEntryNotFound
	}
	return l.RemoveIncome(i)
}

func (l *Ledger) RemoveExpenseByID(id string) error {
	i, ok := l.ExpenseIndex(id)
	if !ok {
		return ErrEntryNotFound
	}
	return l.RemoveExpense(i)
}

// Totals recomputes the derived amounts from the current entries. Pure read;
// there is no cache that could go stale.
func (l *Ledger) Totals() Totals {
	var in, out core.Money
	for _, e := range l.incomes {
		in = in.Add(e.Amount)
	}
	for _, e := range l.expenses {
		out = out.Add(e.Amount)
	}
	return Totals{
		TotalIncome:  in,
		TotalExpense: out,
		Balance:      in.Sub(out),
	}
}

// Reset clears both entry sequences. The caller must pass confirm=true; the
// UI layer is expected to have asked the user first.
func (l *Ledger) Reset(confirm bool) error {
	if !confirm {
		return ErrResetNotConfirmed
	}
	l.incomes = nil
	l.expenses = nil
	return nil
}

// ReplaceAll swaps both sequences atomically with the snapshot's contents.
// Used when loading from the remote store.
func (l *Ledger) ReplaceAll(snap core.Snapshot) {
	l.incomes = append([]core.IncomeEntry(nil), snap.Incomes...)
	l.expenses = append([]core.ExpenseEntry(nil), snap.Expenses...)
}

// Snapshot returns a deep copy of the current entries stamped with now.
func (l *Ledger) Snapshot() core.Snapshot {
	return core.Snapshot{
		Incomes:    append([]core.IncomeEntry(nil), l.incomes...),
		Expenses:   append([]core.ExpenseEntry(nil), l.expenses...),
		LastUpdate: time.Now(),
	}
}

// Incomes returns a copy of the income sequence in insertion order.
func (l *Ledger) Incomes() []core.IncomeEntry {
	return append([]core.IncomeEntry(nil), l.incomes...)
}

// Expenses returns a copy of the expense sequence in insertion order.
func (l *Ledger) Expenses() []core.ExpenseEntry {
	return append([]core.ExpenseEntry(nil), l.expenses...)
}

// Len returns the number of income and expense entries.
func (l *Ledger) Len() (incomes, expenses int) {
	return len(l.incomes), len(l.expenses)
}
