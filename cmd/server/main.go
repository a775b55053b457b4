// Package main is the entrypoint for the mediaforge API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/mediaforge/internal/api"
	"github.com/kiranshivaraju/mediaforge/internal/api/handler"
	mw "github.com/kiranshivaraju/mediaforge/internal/api/middleware"
	"github.com/kiranshivaraju/mediaforge/internal/cache"
	"github.com/kiranshivaraju/mediaforge/internal/config"
	"github.com/kiranshivaraju/mediaforge/internal/media/backend"
	"github.com/kiranshivaraju/mediaforge/internal/store"
	"github.com/kiranshivaraju/mediaforge/internal/studio"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "backend", cfg.Media.Backend, "env", cfg.Server.Env,
		"poll_interval", cfg.Media.PollInterval, "poll_timeout", cfg.Media.PollTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	pgStore := store.NewPostgresStore(pool)

	// Runs live in this process; anything left over from a previous one is orphaned.
	n, err := pgStore.FailUnfinishedJobs(ctx, "server restarted")
	if err != nil {
		return fmt.Errorf("fail unfinished jobs: %w", err)
	}
	if n > 0 {
		slog.Warn("marked orphaned jobs as failed", "count", n)
	}

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create media backend
	mediaBackend, err := backend.New(ctx, cfg.Media, slog.Default())
	if err != nil {
		return fmt.Errorf("create media backend: %w", err)
	}
	slog.Info("media backend initialized", "backend", mediaBackend.Name())

	svc := studio.NewService(mediaBackend, backend.PollerOptions(cfg.Media, slog.Default()), pgStore, redisCache,
		studio.Config{SessionTTL: cfg.Studio.SessionTTL, MaxReferenceDim: cfg.Media.MaxReferenceDim}, slog.Default())

	// 6. Build router with dependencies
	deps := api.Dependencies{
		Auth:         mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, mw.Limits{
			RequestsPerMinute:    cfg.RateLimit.RequestsPerMinute,
			GenerationsPerMinute: cfg.RateLimit.GenerationsPerMinute,
		}),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,

		HealthHandler: handler.NewHealthHandler(pgStore, redisCache, mediaBackend.Name()),

		TriggerVideoHandler: handler.NewTriggerVideoHandler(svc),
		GetVideoHandler:     handler.NewGetVideoHandler(svc),
		CancelVideoHandler:  handler.NewCancelVideoHandler(svc),
		ArtifactHandler:     handler.NewArtifactHandler(svc),
		ListJobsHandler:     handler.NewListJobsHandler(svc),

		GenerateImagesHandler: handler.NewGenerateImagesHandler(svc),
		EditImageHandler:      handler.NewEditImageHandler(svc),

		GetSessionHandler: handler.NewGetSessionHandler(svc),
		PutSessionHandler: handler.NewPutSessionHandler(svc),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// Image generation is synchronous and can take a while.
		WriteTimeout: cfg.Media.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("stop generation jobs: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
