// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/marginalia/internal/annotationservice"
	"github.com/starford/marginalia/internal/api"
	"github.com/starford/marginalia/internal/index"
	"github.com/starford/marginalia/internal/mcpserver"
	"github.com/starford/marginalia/internal/sse"
)

// Run starts the HTTP server and the vault watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg, logger := app.config, app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker; watcher changes to one document are folded over 500ms.
	broker := sse.NewBroker(500 * time.Millisecond)
	defer broker.Close()

	ws, err := app.openWorkspace(annotationservice.WithChangeHook(func(ch annotationservice.Change) {
		broker.PublishAnnotations(ch.Path, ch)
	}))
	if err != nil {
		return err
	}
	defer ws.Close()

	apiRouter := api.NewRouter(ws.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := ws.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the vault; external edits reindex and notify SSE clients.
	g.Go(func() error {
		w := index.NewWatcher(ws.DB, ws.Store, ws.Store.Root(), logger, func(ev index.DocumentEvent) {
			broker.PublishDocumentEvent(sse.DocumentChange{
				Path:        ev.Path,
				Action:      ev.Action,
				Annotations: ev.Annotations,
			})
		})
		return w.Run(gCtx)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs must not go to stdout
// here, so the default logger writes JSON to stderr.
func RunMCP(_ context.Context, opts ...Option) error {
	opts = append(opts, func(a *application) {
		if a.logger == nil && a.config != nil {
			a.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: a.config.App.LogLevel}))
		}
	})
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	ws, err := app.openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	ws.Logger.Info("mcp: serving on stdio", slog.String("vault_path", ws.Store.Root()))
	return mcpserver.New(ws.Service, app.version).ServeStdio()
}
