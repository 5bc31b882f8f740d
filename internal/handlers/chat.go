package handlers

import (
	"net/http"
	"strconv"

	"community-budget/internal/models"
	"community-budget/internal/storage"
)

const chatNotFound = "Chat session not found"

type startChatRequest struct {
	ProjectTitle string `json:"project_title"`
}

type chatMessageRequest struct {
	Message string `json:"message"`
}

// StartChat opens a budgeting assistant session for the logged-in user.
func (h *Handlers) StartChat(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	var req startChatRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}

	var projectID *int64
	if req.ProjectTitle != "" {
		p, err := h.resolveProject(r.Context(), req.ProjectTitle)
		if err != nil {
			h.writeFailed(w, r, err, projectNotFound)
			return
		}
		projectID = &p.ID
	}

	id, err := h.engine.StartSession(r.Context(), user.ID, projectID)
	if err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"session_id": id})
}

// ChatMessage sends one user message and returns the assistant's reply.
func (h *Handlers) ChatMessage(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	var req chatMessageRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, chatNotFound)
		return
	}

	reply, err := h.engine.HandleMessage(r.Context(), cs.ID, req.Message)
	if err != nil {
		h.writeFailed(w, r, err, chatNotFound)
		return
	}
	if reply.Ended {
		writeMessage(w, http.StatusOK, "Chat ended successfully")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply.Text})
}

// ChatHistory returns the session transcript, oldest first.
func (h *Handlers) ChatHistory(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	history, err := h.engine.History(r.Context(), cs.ID)
	if err != nil {
		h.readFailed(w, r, err, chatNotFound)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// EndChat ends the session. Ending an ended session succeeds.
func (h *Handlers) EndChat(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if err := h.engine.EndSession(r.Context(), cs.ID); err != nil {
		h.writeFailed(w, r, err, chatNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Chat ended successfully")
}

// ownedSession loads the session named in the path. Sessions of other users
// are reported as missing.
func (h *Handlers) ownedSession(w http.ResponseWriter, r *http.Request) (*models.ChatSession, bool) {
	id, err := strconv.ParseInt(r.PathValue("session_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, chatNotFound)
		return nil, false
	}
	cs, err := h.engine.Session(r.Context(), id)
	if err == nil && cs.UserID != GetUserFromContext(r).ID {
		err = storage.ErrNotFound
	}
	if err != nil {
		h.readFailed(w, r, err, chatNotFound)
		return nil, false
	}
	return cs, true
}
