package http

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"caixa/internal/session"
)

const maxImportBytes = 1 << 20

type loginRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}

	if err := s.session.Login(r.Context(), strings.TrimSpace(req.UserID)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":       s.session.UserID(),
		"authenticated": true,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.session.Logout()
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
}

func (s *Server) handleIncomes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		incomes, err := s.session.Incomes()
		if err != nil {
			writeError(w, err)
			return
		}
		payload := make([]incomePayload, 0, len(incomes))
		for _, e := range incomes {
			payload = append(payload, toIncomePayload(e))
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPost:
		var req incomeRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		entry, err := req.toEntry()
		if err != nil {
			writeError(w, err)
			return
		}
		id, err := s.session.AddIncome(r.Context(), entry)
		if err != nil {
			writeError(w, err)
			return
		}
		entry.ID = id
		writeJSON(w, http.StatusCreated, toIncomePayload(entry))

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleIncomeByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/incomes/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req incomeRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		entry, err := req.toEntry()
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.session.UpdateIncomeByID(r.Context(), id, entry); err != nil {
			writeError(w, err)
			return
		}
		entry.ID = id
		writeJSON(w, http.StatusOK, toIncomePayload(entry))

	case http.MethodDelete:
		if err := s.session.RemoveIncomeByID(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		expenses, err := s.session.Expenses()
		if err != nil {
			writeError(w, err)
			return
		}
		payload := make([]expensePayload, 0, len(expenses))
		for _, e := range expenses {
			payload = append(payload, toExpensePayload(e))
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPost:
		var req expenseRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		entry, err := req.toEntry()
		if err != nil {
			writeError(w, err)
			return
		}
		id, err := s.session.AddExpense(r.Context(), entry)
		if err != nil {
			writeError(w, err)
			return
		}
		entry.ID = id
		writeJSON(w, http.StatusCreated, toExpensePayload(entry))

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/expenses/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req expenseRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		entry, err := req.toEntry()
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.session.UpdateExpenseByID(r.Context(), id, entry); err != nil {
			writeError(w, err)
			return
		}
		entry.ID = id
		writeJSON(w, http.StatusOK, toExpensePayload(entry))

	case http.MethodDelete:
		if err := s.session.RemoveExpenseByID(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	totals, err := s.session.Totals()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_entradas":  totals.TotalIncome.DecimalString(),
		"total_saidas":    totals.TotalExpense.DecimalString(),
		"saldo":           totals.Balance.DecimalString(),
		"saldo_formatado": totals.Balance.Format(s.tag, s.unit),
	})
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req resetRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.session.Reset(r.Context(), req.Confirm); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	data, err := s.session.Export()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="caixa.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
		return
	}

	if err := s.session.Import(r.Context(), data); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"imported": true})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	var buf bytes.Buffer
	if err := s.session.Report(&buf, s.tag, s.unit); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	if !s.session.IsAuthenticated() {
		writeError(w, session.ErrNotAuthenticated)
		return
	}

	notifications, err := s.notifier.Recent(r.Context(), s.session.UserID())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	if !s.session.IsAuthenticated() {
		writeError(w, session.ErrNotAuthenticated)
		return
	}

	isAdmin, err := s.admins.IsAdmin(r.Context(), s.session.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	if !isAdmin {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin access required"})
		return
	}

	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}
