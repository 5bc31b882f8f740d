package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"community-budget/internal/models"
)

const expenseNotFound = "Expense not found"

// amount accepts a JSON number or a numeric string.
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return invalid("amount %q is not a number", s)
		}
		*a = amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = amount(f)
	return nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("date %q is not a valid date", s)
}

type expenseRequest struct {
	Description  *string `json:"description"`
	Amount       *amount `json:"amount"`
	Category     *string `json:"category"`
	ProjectTitle *string `json:"project_title"`
	CreatedBy    string  `json:"created_by"`
	Date         *string `json:"date"`
}

// applyExpense merges the supplied fields into e. An empty project_title detaches
// the expense from its project.
func (h *Handlers) applyExpense(r *http.Request, req expenseRequest, e *models.Expense) error {
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.Amount != nil {
		e.Amount = float64(*req.Amount)
	}
	if req.Category != nil {
		e.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return err
		}
		e.Date = d
	}
	if req.ProjectTitle != nil {
		if *req.ProjectTitle == "" {
			e.ProjectID, e.ProjectTitle = nil, nil
			return nil
		}
		p, err := h.resolveProject(r.Context(), *req.ProjectTitle)
		if err != nil {
			return err
		}
		e.ProjectID, e.ProjectTitle = &p.ID, &p.Title
	}
	return nil
}

// CreateExpense records spending by an existing user.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	creator, err := h.resolveUser(r.Context(), req.CreatedBy)
	if err != nil {
		h.writeFailed(w, r, err, userNotFound)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	e := &models.Expense{CreatedByID: creator.ID}
	if err := h.applyExpense(r, req, e); err != nil {
		h.writeFailed(w, r, err, projectNotFound)
		return
	}
	if e.Description == "" {
		e.Description = "Expense"
	}
	if e.Category == "" {
		e.Category = "other"
	}
	if err := h.db.CreateExpense(r.Context(), e); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Expense created successfully", "id": e.ID})
}

// ListExpenses returns every expense, most recent first.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.db.ListExpenses(r.Context())
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// GetExpense returns one expense.
func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, expenseNotFound)
		return
	}
	e, err := h.db.GetExpense(r.Context(), id)
	if err != nil {
		h.readFailed(w, r, err, expenseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateExpense merges the supplied fields into an expense.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, expenseNotFound)
		return
	}
	e, err := h.db.GetExpense(r.Context(), id)
	if err != nil {
		h.writeFailed(w, r, err, expenseNotFound)
		return
	}
	var req expenseRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, expenseNotFound)
		return
	}
	if err := h.applyExpense(r, req, e); err != nil {
		h.writeFailed(w, r, err, projectNotFound)
		return
	}
	if err := h.db.UpdateExpense(r.Context(), e); err != nil {
		h.writeFailed(w, r, err, expenseNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Expense updated successfully")
}

// DeleteExpense removes an expense.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, expenseNotFound)
		return
	}
	if err := h.db.DeleteExpense(r.Context(), id); err != nil {
		h.writeFailed(w, r, err, expenseNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Expense deleted successfully")
}
