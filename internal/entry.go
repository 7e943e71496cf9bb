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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/kenaz-export/internal/api"
	"github.com/starford/kenaz-export/internal/exportservice"
	"github.com/starford/kenaz-export/internal/manifest"
	"github.com/starford/kenaz-export/internal/mcpserver"
	"github.com/starford/kenaz-export/internal/models"
	"github.com/starford/kenaz-export/internal/sse"
	"github.com/starford/kenaz-export/internal/watch"
	"github.com/starford/kenaz-export/pkg/export"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app, nil
}

// service builds the export service and opens the manifest when configured.
// The returned cleanup closes the manifest.
func (a *application) service(extra ...exportservice.Option) (*exportservice.Service, func(), error) {
	cfg := a.config
	exportOpts, err := cfg.ExportOptions(export.DefaultRegistry(), a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build export options: %w", err)
	}
	if a.plan != nil {
		exportOpts = append(exportOpts, export.WithPlan(a.plan))
	}

	svcOpts := []exportservice.Option{exportservice.WithLogger(a.logger)}
	if a.observer != nil {
		svcOpts = append(svcOpts, exportservice.WithObserver(a.observer))
	}
	cleanup := func() {}
	if cfg.Manifest.Enabled() {
		db, err := manifest.Open(cfg.Manifest.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init manifest: %w", err)
		}
		svcOpts = append(svcOpts, exportservice.WithManifest(db))
		cleanup = func() { db.Close() }
	}
	svcOpts = append(svcOpts, extra...)

	svc := exportservice.New(cfg.Export.Source, cfg.Export.Destination, exportOpts, svcOpts...)
	return svc, cleanup, nil
}

// Export runs a single export and returns its summary.
func Export(ctx context.Context, opts ...Option) (*exportservice.RunSummary, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	svc, cleanup, err := app.service()
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return svc.Export(ctx)
}

// Render returns the exported text of one vault-relative note.
func Render(ctx context.Context, path string, opts ...Option) (string, error) {
	app, err := newApplication(opts)
	if err != nil {
		return "", err
	}
	svc, cleanup, err := app.service()
	if err != nil {
		return "", err
	}
	defer cleanup()
	return svc.Render(ctx, path)
}

// RunReport is the last recorded run with its failures and unresolved links.
type RunReport struct {
	Run        *models.Run
	Failed     []models.FileRecord
	Unresolved []models.UnresolvedLink
}

// Report reads the latest run from the manifest.
func Report(ctx context.Context, opts ...Option) (*RunReport, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	if !app.config.Manifest.Enabled() {
		return nil, errors.New("manifest path is not configured")
	}
	svc, cleanup, err := app.service()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	run, err := svc.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	failed, err := svc.LatestFiles(ctx, string(export.StatusFailed))
	if err != nil {
		return nil, err
	}
	unresolved, err := svc.LatestUnresolved(ctx)
	if err != nil {
		return nil, err
	}
	return &RunReport{Run: run, Failed: failed, Unresolved: unresolved}, nil
}

// Watch exports once and then re-exports whenever the vault changes, until
// ctx is cancelled or a shutdown signal arrives.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, cleanup, err := app.service()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.exportAndLog(ctx, svc)
	return watch.Watch(ctx, app.watchOptions(), func(ctx context.Context, changed []string) {
		app.logger.Info("vault changed", slog.Int("files", len(changed)))
		app.exportAndLog(ctx, svc)
	})
}

func (a *application) watchOptions() watch.Options {
	return watch.Options{
		Root:     a.config.Export.Source,
		Debounce: a.config.Watch.Interval(),
		Exclude:  []string{a.config.Export.Destination},
		Logger:   a.logger,
	}
}

func (a *application) exportAndLog(ctx context.Context, svc *exportservice.Service) {
	summary, err := svc.Export(ctx)
	if err != nil {
		a.logger.Error("export failed", slog.String("error", err.Error()))
		if summary == nil {
			return
		}
	}
	a.logger.Info("export done",
		slog.String("run_id", summary.Run.ID),
		slog.Int("exported", summary.Run.Exported),
		slog.Int("skipped", summary.Run.Skipped),
		slog.Int("failed", summary.Run.Failed),
		slog.Int("unresolved", summary.Unresolved))
}

// ServeMCP serves the MCP tools over stdio. Logs must not go to stdout.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, cleanup, err := app.service()
	if err != nil {
		return err
	}
	defer cleanup()
	return mcpserver.New(svc).ServeStdio()
}

// Run starts the HTTP server together with the vault watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source", cfg.Export.Source),
		slog.String("destination", cfg.Export.Destination),
		slog.String("manifest_path", cfg.Manifest.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if cfg.Export.Destination == "" {
		return errors.New("export destination is required")
	}
	if err := os.MkdirAll(filepath.Clean(cfg.Export.Destination), 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	svc, cleanup, err := app.service(exportservice.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer cleanup()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := os.Stat(svc.Source()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"source unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Initial export, then re-export on vault changes.
	g.Go(func() error {
		app.exportAndLog(gCtx, svc)
		return watch.Watch(gCtx, app.watchOptions(), func(ctx context.Context, changed []string) {
			for _, p := range changed {
				broker.Publish(sse.Event{Type: sse.TypeVaultChange, Data: map[string]string{"path": p}})
			}
			app.exportAndLog(ctx, svc)
		})
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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stops the watcher loop.
		cancel()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
