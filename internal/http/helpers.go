package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"caixa/internal/core"
	"caixa/internal/ledger"
	"caixa/internal/session"
	"caixa/internal/store"
)

// Wire payloads. Field names match the sync document so clients see one
// vocabulary everywhere. Amounts travel as decimal strings and accept
// either '.' or ',' as the separator.
type (
	incomeRequest struct {
		Descricao string `json:"descricao"`
		Valor     string `json:"valor"`
	}

	incomePayload struct {
		ID        string `json:"id"`
		Descricao string `json:"descricao"`
		Valor     string `json:"valor"`
	}

	expenseRequest struct {
		Categoria  string `json:"categoria"`
		Descricao  string `json:"descricao"`
		Valor      string `json:"valor"`
		Status     string `json:"status"`
		Vencimento string `json:"vencimento"`
	}

	expensePayload struct {
		ID         string `json:"id"`
		Categoria  string `json:"categoria"`
		Descricao  string `json:"descricao"`
		Valor      string `json:"valor"`
		Status     string `json:"status"`
		Vencimento string `json:"vencimento,omitempty"`
	}
)

func (req incomeRequest) toEntry() (core.IncomeEntry, error) {
	amount, err := core.ParseMoney(req.Valor)
	if err != nil {
		return core.IncomeEntry{}, err
	}
	return core.IncomeEntry{
		Description: sanitizeInput(req.Descricao),
		Amount:      amount,
	}, nil
}

func (req expenseRequest) toEntry() (core.ExpenseEntry, error) {
	amount, err := core.ParseMoney(req.Valor)
	if err != nil {
		return core.ExpenseEntry{}, err
	}

	status := core.Status(req.Status)
	if status == "" {
		status = core.Pending
	}

	var due core.Date
	if strings.TrimSpace(req.Vencimento) != "" {
		due, err = parseDate(strings.TrimSpace(req.Vencimento))
		if err != nil {
			return core.ExpenseEntry{}, core.ErrInvalidDueDate
		}
	}

	return core.ExpenseEntry{
		Category:    sanitizeInput(req.Categoria),
		Description: sanitizeInput(req.Descricao),
		Amount:      amount,
		Status:      status,
		DueDate:     due,
	}, nil
}

func toIncomePayload(e core.IncomeEntry) incomePayload {
	return incomePayload{
		ID:        e.ID,
		Descricao: e.Description,
		Valor:     e.Amount.DecimalString(),
	}
}

func toExpensePayload(e core.ExpenseEntry) expensePayload {
	due := ""
	if !e.DueDate.IsEmpty() {
		due = e.DueDate.Format("2006-01-02")
	}
	return expensePayload{
		ID:         e.ID,
		Categoria:  e.Category,
		Descricao:  e.Description,
		Valor:      e.Amount.DecimalString(),
		Status:     string(e.Status),
		Vencimento: due,
	}
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: parsedTime}, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), errorResponse{Error: err.Error()})
}

func errorStatus(err error) int {
	var syncErr *store.SyncError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrIndexOutOfRange),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrBadFormat),
		errors.Is(err, ledger.ErrResetNotConfirmed),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvalidDueDate):
		return http.StatusBadRequest
	case errors.As(err, &syncErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}
