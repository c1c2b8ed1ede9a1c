// Wire codec for the persisted document and the local backup format.
//
// The document layout follows the remote store schema: `entradas` and
// `saidas` lists with Portuguese field names. Amounts travel as plain JSON
// numbers with two fraction digits and are converted to and from integer
// cents without ever passing through float arithmetic.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caixa/internal/core"
)

// ErrBadFormat reports a malformed import payload. The ledger is left
// untouched when decoding fails (all-or-nothing).
var ErrBadFormat = errors.New("bad document format")

const wireDateLayout = "2006-01-02"

type (
	wireIncome struct {
		ID        string      `json:"id,omitempty"`
		Descricao string      `json:"descricao"`
		Valor     json.Number `json:"valor"`
	}

	wireExpense struct {
		ID         string      `json:"id,omitempty"`
		Categoria  string      `json:"categoria"`
		Descricao  string      `json:"descricao"`
		Valor      json.Number `json:"valor"`
		Status     string      `json:"status"`
		Vencimento string      `json:"vencimento"`
	}

	wireDocument struct {
		Entradas []wireIncome  `json:"entradas"`
		Saidas   []wireExpense `json:"saidas"`
	}
)

// EncodeSnapshot renders a snapshot as the wire document.
func EncodeSnapshot(snap core.Snapshot) ([]byte, error) {
	doc := wireDocument{
		Entradas: make([]wireIncome, 0, len(snap.Incomes)),
		Saidas:   make([]wireExpense, 0, len(snap.Expenses)),
	}
	for _, e := range snap.Incomes {
		doc.Entradas = append(doc.Entradas, wireIncome{
			ID:        e.ID,
			Descricao: e.Description,
			Valor:     json.Number(e.Amount.DecimalString()),
		})
	}
	for _, e := range snap.Expenses {
		due := ""
		if !e.DueDate.IsEmpty() {
			due = e.DueDate.Format(wireDateLayout)
		}
		doc.Saidas = append(doc.Saidas, wireExpense{
			ID:         e.ID,
			Categoria:  e.Category,
			Descricao:  e.Description,
			Valor:      json.Number(e.Amount.DecimalString()),
			Status:     string(e.Status),
			Vencimento: due,
		})
	}
	return json.Marshal(doc)
}

// DecodeSnapshot parses a wire document. A missing `entradas` or `saidas`
// field decodes as an empty list; anything structurally invalid returns
// ErrBadFormat. Entries without an ID get a fresh one assigned.
func DecodeSnapshot(data []byte) (core.Snapshot, error) {
	var doc wireDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}

	snap := core.Snapshot{
		Incomes:  make([]core.IncomeEntry, 0, len(doc.Entradas)),
		Expenses: make([]core.ExpenseEntry, 0, len(doc.Saidas)),
	}
	for i, w := range doc.Entradas {
		cents, err := core.ParseDecimalToCents(w.Valor.String())
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("%w: entrada %d: %v", ErrBadFormat, i, err)
		}
		id := w.ID
		if id == "" {
			id = uuid.NewString()
		}
		snap.Incomes = append(snap.Incomes, core.IncomeEntry{
			ID:          id,
			Description: w.Descricao,
			Amount:      core.Money{Cents: cents},
		})
	}
	for i, w := range doc.Saidas {
		cents, err := core.ParseDecimalToCents(w.Valor.String())
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("%w: saida %d: %v", ErrBadFormat, i, err)
		}
		status := core.Status(w.Status)
		if status == "" {
			status = core.Pending
		}
		if err := status.Validate(); err != nil {
			return core.Snapshot{}, fmt.Errorf("%w: saida %d: %v", ErrBadFormat, i, err)
		}
		var due core.Date
		if w.Vencimento != "" {
			t, err := time.Parse(wireDateLayout, w.Vencimento)
			if err != nil {
				return core.Snapshot{}, fmt.Errorf("%w: saida %d: %v", ErrBadFormat, i, err)
			}
			due = core.Date{Time: t}
		}
		id := w.ID
		if id == "" {
			id = uuid.NewString()
		}
		snap.Expenses = append(snap.Expenses, core.ExpenseEntry{
			ID:          id,
			Category:    w.Categoria,
			Description: w.Descricao,
			Amount:      core.Money{Cents: cents},
			Status:      status,
			DueDate:     due,
		})
	}
	return snap, nil
}

// Serialize renders the current entries for local backup.
func (l *Ledger) Serialize() ([]byte, error) {
	return EncodeSnapshot(l.Snapshot())
}

// Deserialize replaces the ledger contents with the decoded payload. On a
// decode error the ledger state is unchanged.
func (l *Ledger) Deserialize(data []byte) error {
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	l.ReplaceAll(snap)
	return nil
}
