package handlers

import (
	"net/http"

	"community-budget/internal/models"
)

const contributionNotFound = "Contribution not found"

type contributionRequest struct {
	UserUsername string   `json:"user_username"`
	ProjectTitle string   `json:"project_title"`
	Amount       *float64 `json:"amount"`
}

// CreateContribution records money pledged by a user to a project.
func (h *Handlers) CreateContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	user, err := h.resolveUser(r.Context(), req.UserUsername)
	if err != nil {
		h.writeFailed(w, r, err, userNotFound)
		return
	}
	project, err := h.resolveProject(r.Context(), req.ProjectTitle)
	if err != nil {
		h.writeFailed(w, r, err, projectNotFound)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	c := &models.Contribution{UserID: user.ID, ProjectID: project.ID, Amount: *req.Amount}
	if err := h.db.CreateContribution(r.Context(), c); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Contribution created successfully", "id": c.ID})
}

// ListContributions returns every contribution.
func (h *Handlers) ListContributions(w http.ResponseWriter, r *http.Request) {
	out, err := h.db.ListContributions(r.Context())
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetContribution returns one contribution.
func (h *Handlers) GetContribution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, contributionNotFound)
		return
	}
	c, err := h.db.GetContribution(r.Context(), id)
	if err != nil {
		h.readFailed(w, r, err, contributionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateContribution changes the pledged amount.
func (h *Handlers) UpdateContribution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, contributionNotFound)
		return
	}
	c, err := h.db.GetContribution(r.Context(), id)
	if err != nil {
		h.writeFailed(w, r, err, contributionNotFound)
		return
	}
	var req contributionRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, contributionNotFound)
		return
	}
	if req.Amount != nil {
		c.Amount = *req.Amount
	}
	if err := h.db.UpdateContribution(r.Context(), c); err != nil {
		h.writeFailed(w, r, err, contributionNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Contribution updated successfully")
}

// DeleteContribution removes a contribution.
func (h *Handlers) DeleteContribution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, contributionNotFound)
		return
	}
	if err := h.db.DeleteContribution(r.Context(), id); err != nil {
		h.writeFailed(w, r, err, contributionNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Contribution deleted successfully")
}
