package handlers

import (
	"net/http"
	"strings"

	"community-budget/internal/models"
)

const voteNotFound = "Vote not found"

type voteRequest struct {
	UserUsername string  `json:"user_username"`
	ProjectTitle string  `json:"project_title"`
	VoteType     *string `json:"vote_type"`
	Comment      *string `json:"comment"`
}

// CreateVote records a user's vote on a project.
func (h *Handlers) CreateVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
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
	if trimmed(req.VoteType) == "" {
		writeError(w, http.StatusBadRequest, "vote_type is required")
		return
	}

	v := &models.Vote{
		UserID:    user.ID,
		ProjectID: project.ID,
		VoteType:  strings.TrimSpace(*req.VoteType),
		Comment:   req.Comment,
	}
	if err := h.db.CreateVote(r.Context(), v); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Vote created successfully", "id": v.ID})
}

// ListVotes returns every vote.
func (h *Handlers) ListVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := h.db.ListVotes(r.Context())
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, votes)
}

// GetVote returns one vote.
func (h *Handlers) GetVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, voteNotFound)
		return
	}
	v, err := h.db.GetVote(r.Context(), id)
	if err != nil {
		h.readFailed(w, r, err, voteNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// UpdateVote changes the vote type and/or comment.
func (h *Handlers) UpdateVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, voteNotFound)
		return
	}
	v, err := h.db.GetVote(r.Context(), id)
	if err != nil {
		h.writeFailed(w, r, err, voteNotFound)
		return
	}
	var req voteRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, voteNotFound)
		return
	}
	if req.VoteType != nil {
		if trimmed(req.VoteType) == "" {
			writeError(w, http.StatusBadRequest, "vote_type must not be empty")
			return
		}
		v.VoteType = trimmed(req.VoteType)
	}
	if req.Comment != nil {
		v.Comment = req.Comment
	}
	if err := h.db.UpdateVote(r.Context(), v); err != nil {
		h.writeFailed(w, r, err, voteNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Vote updated successfully")
}

// DeleteVote removes a vote.
func (h *Handlers) DeleteVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, voteNotFound)
		return
	}
	if err := h.db.DeleteVote(r.Context(), id); err != nil {
		h.writeFailed(w, r, err, voteNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Vote deleted successfully")
}
