package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// Paid and Pending are the only two expense states. The values match
	// the persisted document ("Pago"/"Pendente").
	Paid    Status = "Pago"
	Pending Status = "Pendente"
)

type (
	Status string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// IncomeEntry is a single income record. ID is assigned by the ledger
	// at creation time and is the stable handle for edits and removals.
	IncomeEntry struct {
		ID          string
		Description string
		Amount      Money
	}

	// ExpenseEntry is a single expense record. DueDate is optional; a zero
	// Date means the expense has no due date.
	ExpenseEntry struct {
		ID          string
		Category    string
		Description string
		Amount      Money
		Status      Status
		DueDate     Date
	}

	// Snapshot is the persisted unit: the full entry set for one user plus
	// the time it was produced.
	Snapshot struct {
		Incomes    []IncomeEntry
		Expenses   []ExpenseEntry
		LastUpdate time.Time
	}

	// Notification is an append-only due-date alert. DedupKey identifies
	// the (entry, due date) pair so repeated saves do not re-emit it.
	Notification struct {
		ID        string
		OwnerID   string
		Title     string
		Message   string
		Timestamp time.Time
		Read      bool
		DedupKey  string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidDueDate   = errors.New("invalid due date")
)

// KnownCategories lists the expense categories the UI offers. The set is
// open: entries loaded from the remote document may carry categories outside
// this list and are kept as-is.
func KnownCategories() []string {
	return []string{
		"💳 Cartão de Crédito",
		"🌐 Internet & Celular",
		"🧾 Contas Fixas",
		"💇 Cuidado Pessoal",
		"🔧 Manutenção",
		"🍔 Alimentação",
		"💸 Outros Gastos",
	}
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDueDate
	}
	return nil
}

func (s Status) Validate() error {
	switch s {
	case Paid, Pending:
		return nil
	default:
		return ErrInvalidStatus
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e IncomeEntry) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return e.Amount.Validate()
}

func (e ExpenseEntry) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Status.Validate()
}
