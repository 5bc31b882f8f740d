package handlers

import (
	"net/http"

	"community-budget/internal/models"
)

const projectNotFound = "Project not found"

type projectRequest struct {
	Title       string                `json:"title"`
	Description *string               `json:"description"`
	Status      *models.ProjectStatus `json:"status"`
	Budget      *float64              `json:"budget"`
	CreatedBy   string                `json:"created_by"`
}

func validStatus(s *models.ProjectStatus) error {
	if s != nil && !s.Valid() {
		return invalid("status must be one of proposed, active, completed")
	}
	return nil
}

// CreateProject adds a project owned by an existing user.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := validStatus(req.Status); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	creator, err := h.resolveUser(r.Context(), req.CreatedBy)
	if err != nil {
		h.writeFailed(w, r, err, userNotFound)
		return
	}

	p := &models.Project{Title: req.Title, CreatedByID: creator.ID}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.Budget != nil {
		p.Budget = *req.Budget
	}
	if err := h.db.CreateProject(r.Context(), p); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Project created successfully", "id": p.ID})
}

// ListProjects returns every project.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.db.ListProjects(r.Context())
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProject returns one project by title.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.db.GetProjectByTitle(r.Context(), r.PathValue("title"))
	if err != nil {
		h.readFailed(w, r, err, projectNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProject merges description, status and budget.
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.db.GetProjectByTitle(r.Context(), r.PathValue("title"))
	if err != nil {
		h.writeFailed(w, r, err, projectNotFound)
		return
	}
	var req projectRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, projectNotFound)
		return
	}
	if err := validStatus(req.Status); err != nil {
		h.writeFailed(w, r, err, projectNotFound)
		return
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.Budget != nil {
		p.Budget = *req.Budget
	}
	if err := h.db.UpdateProject(r.Context(), p); err != nil {
		h.writeFailed(w, r, err, projectNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Project updated successfully")
}

// DeleteProject removes a project by title.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteProject(r.Context(), r.PathValue("title")); err != nil {
		h.writeFailed(w, r, err, projectNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Project deleted successfully")
}

// ProjectSummary reports funding progress and the vote tally of a project.
func (h *Handlers) ProjectSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.db.GetProjectSummary(r.Context(), r.PathValue("title"))
	if err != nil {
		h.readFailed(w, r, err, projectNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
