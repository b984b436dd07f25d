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

	"github.com/starford/kanboard/internal/api"
	"github.com/starford/kanboard/internal/editor"
	"github.com/starford/kanboard/internal/index"
	"github.com/starford/kanboard/internal/live"
	"github.com/starford/kanboard/internal/mcpserver"
	"github.com/starford/kanboard/internal/sse"
	"github.com/starford/kanboard/internal/storage"
	"github.com/starford/kanboard/internal/tui"
)

// workspace is the storage and catalog shared by every command.
type workspace struct {
	store *storage.FS
	db    *index.DB
}

func openWorkspace(cfg *Config, logger *slog.Logger) (*workspace, error) {
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path, cfg.Workspace.Pattern)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return &workspace{store: store, db: db}, nil
}

// Run starts the HTTP server, the workspace watcher and the event broker.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("workspace_pattern", cfg.Workspace.Pattern),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ws, err := openWorkspace(cfg, logger)
	if err != nil {
		return err
	}
	defer ws.db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	template := cfg.Defaults.Template()
	ed := editor.New(ws.store,
		editor.WithLogger(logger),
		editor.WithTemplate(template),
		editor.WithOnChange(broker.PublishChange),
		editor.WithOnSaved(broker.PublishSaved),
	)
	defer ed.Shutdown()

	apiRouter := api.NewRouter(api.Deps{
		Editor:      ed,
		Catalog:     ws.db,
		Matches:     ws.store.Matches,
		Template:    template,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Events:      broker,
		Live:        live.NewHandler(ed, logger),
	})

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, ws.db, ws.store, ws.store.Root(), logger, broker.PublishFileEvent)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown ends the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs must not go to stdout;
// pass a logger writing elsewhere with WithLogger.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	ws, err := openWorkspace(cfg, logger)
	if err != nil {
		return err
	}
	defer ws.db.Close()

	ed := editor.New(ws.store,
		editor.WithLogger(logger),
		editor.WithTemplate(cfg.Defaults.Template()),
	)
	defer ed.Shutdown()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(watchCtx, ws.db, ws.store, ws.store.Root(), logger, nil); err != nil {
			logger.Warn("mcp: watcher stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("mcp: serving on stdio", slog.String("workspace_path", cfg.Workspace.Path))
	return mcpserver.New(ed, ws.store, ws.db, logger).ServeStdio()
}

// RunTUI opens file in the terminal board. The file does not need to live
// in the configured workspace.
func RunTUI(ctx context.Context, file string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	store, name, err := storage.OpenFile(file)
	if err != nil {
		return err
	}
	template := app.config.Defaults.Template()
	ed := editor.New(store,
		editor.WithLogger(app.logger),
		editor.WithTemplate(template),
	)
	defer ed.Shutdown()

	return tui.Run(ctx, ed, name, template)
}
