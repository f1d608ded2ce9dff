// Read Master - reading assistant API server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/readmaster/read-master/internal/aiclient"
	"github.com/readmaster/read-master/internal/api"
	"github.com/readmaster/read-master/internal/auth"
	"github.com/readmaster/read-master/internal/clientstate"
	"github.com/readmaster/read-master/internal/config"
	"github.com/readmaster/read-master/internal/middleware"
	"github.com/readmaster/read-master/internal/observability"
	"github.com/readmaster/read-master/internal/store"
	"github.com/readmaster/read-master/internal/webhook"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "ai_enabled", cfg.AI.Enabled)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	reporter, err := observability.NewReporter(observability.SentryOptions{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		FlushTimeout:     cfg.Sentry.FlushTimeout,
	})
	if err != nil {
		return err
	}
	defer reporter.Flush()

	if cfg.Clerk.SecretKey == "" {
		slog.Warn("CLERK_SECRET_KEY not set, authenticated routes will fail closed")
	}
	if cfg.Clerk.WebhookSecret == "" {
		slog.Warn("CLERK_WEBHOOK_SECRET not set, webhooks will be rejected")
	}
	verifier := auth.NewClerkVerifier(cfg.Clerk.SecretKey)
	webhooks := webhook.NewVerifier(cfg.Clerk.WebhookSecret, cfg.Clerk.WebhookTolerance)

	ai := aiclient.New(cfg.AI.BaseURL, cfg.AI.APIKey,
		aiclient.WithTimeout(cfg.AI.RequestTimeout),
		aiclient.WithEnabled(cfg.AI.Enabled),
	)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	h := api.NewHandler(repo, ai, webhooks, reporter, cfg)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	h.RegisterRoutes(r, auth.Middleware(verifier), limiter.Middleware)

	// No WriteTimeout: voice sessions are long-lived WebSockets.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return clientstate.RunSweeper(gctx, repo, cfg.Policy.StateSweepInterval)
	})

	g.Go(func() error {
		limiter.RunEviction(gctx)
		return nil
	})

	g.Go(func() error {
		// Wait for shutdown signal.
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
