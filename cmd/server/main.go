package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"community-budget/internal/advisor"
	"community-budget/internal/auth"
	"community-budget/internal/chat"
	"community-budget/internal/config"
	"community-budget/internal/handlers"
	"community-budget/internal/logger"
	"community-budget/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewDB(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if n, err := db.CleanExpiredSessions(ctx); err != nil {
		log.Warn("failed to clean expired sessions", zap.Error(err))
	} else if n > 0 {
		log.Info("cleaned expired sessions", zap.Int64("count", n))
	}

	if err := bootstrapAdmin(ctx, db, cfg.Admin, log); err != nil {
		return err
	}

	locker, closeLocker, err := newLocker(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	if cfg.InsecureJWTSecret() {
		log.Warn("JWT_SECRET not set, login tokens are signed with the default secret")
	}
	if cfg.LLM.APIKey == "" {
		log.Warn("LLM_API_KEY not set, the assistant will answer with apologies")
	}
	gen := advisor.NewGeminiClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKey)
	engine := chat.NewEngine(db, advisor.New(gen, cfg.LLM.Timeout, log), locker, log)

	h := handlers.NewHandlers(db, engine, handlers.Options{
		JWTSecret:    []byte(cfg.Server.JWTSecret),
		SessionTTL:   cfg.Server.SessionTTL,
		SecureCookie: cfg.Server.SecureCookie,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           setupRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupRouter mounts the API, the metrics endpoint and request logging.
func setupRouter(h *handlers.Handlers) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return h.RequestLogger(mux)
}

// bootstrapAdmin creates the configured admin account when no user exists yet.
func bootstrapAdmin(ctx context.Context, db *storage.DB, admin config.AdminConfig, log *zap.Logger) error {
	if admin.Username == "" {
		return nil
	}
	count, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := db.CreateUser(ctx, admin.Name, admin.Username, hash); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Info("created admin user", zap.String("username", admin.Username))
	return nil
}

// newLocker returns a Redis-backed chat lock when Redis is configured, or nil
// so the engine falls back to an in-process lock.
func newLocker(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (chat.Locker, func(), error) {
	if cfg.Addr == "" {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	log.Info("using redis chat session lock", zap.String("addr", cfg.Addr))
	return chat.NewRedisLocker(client, cfg.LockTTL, log), func() { _ = client.Close() }, nil
}
