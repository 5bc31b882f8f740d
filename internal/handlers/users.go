package handlers

import (
	"errors"
	"net/http"
	"strings"

	"community-budget/internal/auth"
	"community-budget/internal/storage"

	"go.uber.org/zap"
)

const userNotFound = "User not found"

type userRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// CreateUser registers a new account.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	name, username := trimmed(req.Name), trimmed(req.Username)
	if name == "" || username == "" || req.Password == nil || *req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, username and password are required")
		return
	}

	ctx := r.Context()
	if _, err := h.db.GetUserByUsername(ctx, username); err == nil {
		writeError(w, http.StatusBadRequest, "Username already exists")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.readFailed(w, r, err, "")
		return
	}
	taken, err := h.db.UserNameTaken(ctx, name)
	if err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	if taken {
		writeError(w, http.StatusBadRequest, "Name already exists")
		return
	}

	hash, err := auth.HashPassword(*req.Password)
	if err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	if _, err := h.db.CreateUser(ctx, name, username, hash); err != nil {
		h.writeFailed(w, r, err, "")
		return
	}
	h.logger(r).Info("user created", zap.String("username", username))
	writeMessage(w, http.StatusCreated, "User created successfully")
}

// ListUsers returns every user.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser returns one user by username.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.db.GetUserByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		h.readFailed(w, r, err, userNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser merges a new name and/or password into an account.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.db.GetUserByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		h.writeFailed(w, r, err, userNotFound)
		return
	}
	var req userRequest
	if err := decode(r, &req); err != nil {
		h.writeFailed(w, r, err, userNotFound)
		return
	}
	if req.Name != nil {
		name := trimmed(req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		user.Name = name
	}
	if req.Password != nil {
		if *req.Password == "" {
			writeError(w, http.StatusBadRequest, "password must not be empty")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			h.writeFailed(w, r, err, userNotFound)
			return
		}
		user.PasswordHash = hash
	}
	if err := h.db.UpdateUser(r.Context(), user); err != nil {
		h.writeFailed(w, r, err, userNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "User updated successfully")
}

// DeleteUser removes an account.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteUser(r.Context(), r.PathValue("username")); err != nil {
		h.writeFailed(w, r, err, userNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}
