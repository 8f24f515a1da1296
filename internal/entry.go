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
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/leanjournal/internal/api"
	"github.com/starford/leanjournal/internal/index"
	"github.com/starford/leanjournal/internal/mcpserver"
	"github.com/starford/leanjournal/internal/schedule"
	"github.com/starford/leanjournal/internal/sse"
)

// Run starts the daemon: vault watcher, MOC scheduler, settings watcher
// and HTTP server, until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	app, err := Open(append(opts, WithNotifier(broker), WithEvents(broker))...)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.cfg
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := app.Sync(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	g, gCtx := errgroup.WithContext(ctx)

	app.scheduler = schedule.New(app.scheduledMOC, logger, schedule.Options{
		Debounce:   cfg.Scheduler.Debounce,
		MinSpacing: cfg.Scheduler.MinSpacing,
		Now:        app.now,
	})
	app.scheduler.Start(gCtx)
	defer app.scheduler.Close()
	app.armTimer(app.Settings())

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

	r.Mount("/api", api.NewRouter(app, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g.Go(func() error {
		return index.Watch(gCtx, app.db, app.store, app.store.Root(), logger, func(kind, path string) {
			broker.PublishNoteEvent(kind, path)
			app.OnNoteEvent(gCtx, kind, path)
		})
	})

	if cfg.Settings.Path != "" {
		g.Go(func() error {
			return app.watchSettings(gCtx)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdio. Logs go to stderr so they do not
// corrupt the protocol stream, and the index is kept fresh by a watcher.
func RunMCP(ctx context.Context, opts ...Option) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Open(append(opts, WithLogOutput(os.Stderr))...)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Sync(); err != nil {
		app.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	go func() {
		if err := index.Watch(ctx, app.db, app.store, app.store.Root(), app.logger, nil); err != nil {
			app.logger.Error("watcher failed", slog.String("error", err.Error()))
		}
	}()

	return mcpserver.New(app).ServeStdio()
}

const settingsSettle = 200 * time.Millisecond

// watchSettings re-applies the settings file whenever it changes on disk.
func (a *App) watchSettings(ctx context.Context) error {
	target, err := filepath.Abs(a.cfg.Settings.Path)
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	defer w.Close()
	// Watch the directory: editors and atomic writers replace the file.
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	a.logger.Info("settings watcher: started", slog.String("path", target))

	// An editor saving in place emits several writes; reload once they settle.
	reload := time.NewTimer(settingsSettle)
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reload.C:
			_ = a.ReloadSettings()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reload.Reset(settingsSettle)
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("settings watcher: error", slog.String("error", werr.Error()))
		}
	}
}
