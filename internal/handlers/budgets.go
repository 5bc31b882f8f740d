package handlers

import (
	"net/http"

	"community-budget/internal/models"
)

const budgetNotFound = "Budget not found"

type budgetRequest struct {
	Name          *string  `json:"name"`
	Mandatory     *float64 `json:"mandatory"`
	Essential     *float64 `json:"essential"`
	Discretionary *float64 `json:"discretionary"`
	CreatedBy     string   `json:"created_by"`
}

// apply merges the supplied fields into b. The total is left to the store.
func (req budgetRequest) apply(b *models.Budget) {
	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.Mandatory != nil {
		b.Mandatory = *req.Mandatory
	}
	if req.Essential != nil {
		b.Essential = *req.Essential
	}
	if req.Discretionary != nil {
		b.Discretionary = *req.Discretionary
	}
}

// CreateBudget adds a budget; missing categories count as zero.
func (h *Handlers) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	creator, err := h.resolveUser(r.Context(), req.CreatedBy)
	if err != nil {
		h.writeFailed(w, r, err, userNotFound)
		return
	}
	if trimmed(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	b := &models.Budget{CreatedByID: creator.ID}
	req.apply(b)
	if err := h.db.CreateBudget(r.Context(), b); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Budget created successfully",
		"id":      b.ID,
		"total":   b.Total,
	})
}

// ListBudgets returns every budget.
func (h *Handlers) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.db.ListBudgets(r.Context())
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

// GetBudget returns one budget.
func (h *Handlers) GetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, budgetNotFound)
		return
	}
	b, err := h.db.GetBudget(r.Context(), id)
	if err != nil {
		h.readFailed(w, r, err, budgetNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateBudget merges the supplied fields; the total is recomputed on save.
func (h *Handlers) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, budgetNotFound)
		return
	}
	b, err := h.db.GetBudget(r.Context(), id)
	if err != nil {
		h.writeFailed(w, r, err, budgetNotFound)
		return
	}
	var req budgetRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, budgetNotFound)
		return
	}
	if req.Name != nil && trimmed(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}
	req.apply(b)
	if err := h.db.UpdateBudget(r.Context(), b); err != nil {
		h.writeFailed(w, r, err, budgetNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Budget updated successfully")
}

// DeleteBudget removes a budget.
func (h *Handlers) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, budgetNotFound)
		return
	}
	if err := h.db.DeleteBudget(r.Context(), id); err != nil {
		h.writeFailed(w, r, err, budgetNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Budget deleted successfully")
}
