// Package handlers implements the JSON HTTP API: CRUD over the community
// records, login sessions and the budgeting assistant chat.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"community-budget/internal/auth"
	"community-budget/internal/chat"
	"community-budget/internal/logger"
	"community-budget/internal/models"
	"community-budget/internal/storage"

	"go.uber.org/zap"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
)

// Options carries the session settings the handlers need from config.
type Options struct {
	JWTSecret    []byte
	SessionTTL   time.Duration
	SecureCookie bool
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db     *storage.DB
	engine *chat.Engine
	opts   Options
	log    *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, engine *chat.Engine, opts Options, log *zap.Logger) *Handlers {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	return &Handlers{db: db, engine: engine, opts: opts, log: log}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware rejects requests without a live login session. The token is
// read from the session cookie or an Authorization bearer header.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, fromCookie, err := h.authenticate(r)
		if err != nil {
			if fromCookie {
				h.clearSessionCookie(w)
			}
			writeError(w, http.StatusUnauthorized, "Please login first")
			return
		}
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = logger.WithLogger(ctx, h.logger(r).With(zap.String("username", user.Username)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) authenticate(r *http.Request) (user *models.User, fromCookie bool, err error) {
	token := auth.ExtractBearer(r)
	if token == "" {
		cookie, cerr := r.Cookie(SessionCookieName)
		if cerr != nil || cookie.Value == "" {
			return nil, false, auth.ErrInvalidToken
		}
		token, fromCookie = cookie.Value, true
	}
	claims, err := auth.ParseToken(h.opts.JWTSecret, token)
	if err != nil {
		return nil, fromCookie, err
	}
	user, err = h.db.ValidateSession(r.Context(), claims.ID)
	if err != nil {
		return nil, fromCookie, err
	}
	if user.ID != claims.UserID {
		return nil, fromCookie, auth.ErrInvalidToken
	}
	return user, fromCookie, nil
}

// Healthz reports whether the store answers.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger(r).Error("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) logger(r *http.Request) *zap.Logger {
	return logger.FromContext(r.Context(), h.log)
}

// validationError is a client mistake in the request body or path.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

func isValidation(err error) bool {
	var v *validationError
	return errors.As(err, &v)
}

// writeJSON encodes v before writing the header. An unencodable value is
// answered with a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"message":"Internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// writeMessage writes the {"message": ...} body used for acknowledgements.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeMessage(w, status, msg)
}

// writeFailed maps an error from a write path. Unrecognised store errors are
// reported as 400 with their text.
func (h *Handlers) writeFailed(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if status, msg, ok := classify(err, notFound); ok {
		writeError(w, status, msg)
		return
	}
	h.logger(r).Warn("write failed", zap.Error(err))
	writeError(w, http.StatusBadRequest, err.Error())
}

// readFailed maps an error from a read path. Unrecognised errors are logged
// and hidden behind a generic 500.
func (h *Handlers) readFailed(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if status, msg, ok := classify(err, notFound); ok {
		writeError(w, status, msg)
		return
	}
	h.logger(r).Error("read failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func classify(err error, notFound string) (int, string, bool) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, notFound, true
	case errors.Is(err, storage.ErrConflict):
		return http.StatusBadRequest, err.Error(), true
	case isValidation(err):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest, "Message is required", true
	case errors.Is(err, chat.ErrSessionEnded):
		return http.StatusConflict, "Chat session has ended", true
	case errors.Is(err, storage.ErrStageConflict):
		return http.StatusConflict, "Chat session is busy, please retry", true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Request cancelled", true
	}
	return 0, "", false
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return invalid("Invalid JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// resolveUser looks up a username given in a request body.
func (h *Handlers) resolveUser(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, storage.ErrNotFound
	}
	return h.db.GetUserByUsername(ctx, username)
}

func (h *Handlers) resolveProject(ctx context.Context, title string) (*models.Project, error) {
	if title == "" {
		return nil, storage.ErrNotFound
	}
	return h.db.GetProjectByTitle(ctx, title)
}
