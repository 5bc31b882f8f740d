package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"community-budget/internal/auth"
	"community-budget/internal/storage"

	"go.uber.org/zap"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials, opens a session and sets the session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing credentials")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing credentials")
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "User not found")
		return
	}
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	sessionID, err := auth.GenerateSessionToken()
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	expiresAt := time.Now().Add(h.opts.SessionTTL)
	if err := h.db.CreateSession(r.Context(), sessionID, user.ID, expiresAt); err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	token, err := auth.IssueToken(h.opts.JWTSecret, user.ID, user.Username, sessionID, expiresAt)
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger(r).Info("user logged in", zap.String("username", user.Username))

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"user": map[string]string{
			"name":     user.Name,
			"username": user.Username,
		},
	})
}

// Logout revokes the current session, if any, and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearer(r)
	if cookie, err := r.Cookie(SessionCookieName); token == "" && err == nil {
		token = cookie.Value
	}
	if token != "" {
		if claims, err := auth.ParseToken(h.opts.JWTSecret, token); err == nil {
			if err := h.db.DeleteSession(r.Context(), claims.ID); err != nil {
				h.logger(r).Warn("failed to delete session", zap.Error(err))
			}
		}
	}
	h.clearSessionCookie(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
