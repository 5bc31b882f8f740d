package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"community-budget/internal/auth"
	"community-budget/internal/chat"
	"community-budget/internal/config"
	"community-budget/internal/handlers"
	"community-budget/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSetupRouter(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	defer db.Close()

	log := zaptest.NewLogger(t)
	engine := chat.NewEngine(db, nil, nil, log)
	h := handlers.NewHandlers(db, engine, handlers.Options{JWTSecret: []byte("test")}, log)

	// Registering conflicting patterns would panic here.
	mux := setupRouter(h)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "Health check", method: "GET", path: "/healthz", wantStatus: http.StatusOK},
		{name: "Metrics exposed", method: "GET", path: "/metrics", wantStatus: http.StatusOK},
		{name: "List users", method: "GET", path: "/user", wantStatus: http.StatusOK},
		{name: "Missing project", method: "GET", path: "/project/none", wantStatus: http.StatusNotFound},
		{name: "Monthly stats", method: "GET", path: "/expense/stats", wantStatus: http.StatusOK},
		{name: "Chat requires auth", method: "POST", path: "/chat/start", wantStatus: http.StatusUnauthorized},
		{name: "Unknown route", method: "GET", path: "/nope", wantStatus: http.StatusNotFound},
		{name: "Wrong method", method: "PATCH", path: "/user", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code,
				"%s %s returned unexpected status", tt.method, tt.path)
		})
	}
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	log := zaptest.NewLogger(t)

	require.NoError(t, bootstrapAdmin(ctx, db, config.AdminConfig{}, log))
	count, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "no admin configured")

	admin := config.AdminConfig{Username: "admin", Name: "Admin", Password: "pw"}
	require.NoError(t, bootstrapAdmin(ctx, db, admin, log))
	user, err := db.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Admin", user.Name)
	assert.True(t, auth.CheckPassword("pw", user.PasswordHash))

	// A second start leaves the existing store alone.
	admin.Password = "other"
	require.NoError(t, bootstrapAdmin(ctx, db, admin, log))
	user, err = db.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("pw", user.PasswordHash))
}

func TestNewLockerWithoutRedis(t *testing.T) {
	locker, closeFn, err := newLocker(context.Background(), config.RedisConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, locker)
	closeFn()
}
