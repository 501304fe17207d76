// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/typedmdx/internal/api"
	"github.com/starford/typedmdx/internal/catalog"
	"github.com/starford/typedmdx/internal/mcpserver"
	"github.com/starford/typedmdx/internal/metrics"
	"github.com/starford/typedmdx/internal/sse"
	"github.com/starford/typedmdx/internal/watcher"
	"github.com/starford/typedmdx/pkg/collection"
	"github.com/starford/typedmdx/pkg/storage"
)

// NewLogger returns the structured JSON logger used by every command.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// OpenCatalog opens the content root and defines every configured
// collection on it. obs may be nil.
func OpenCatalog(cfg *Config, logger *slog.Logger, obs collection.Observer) (*catalog.Catalog, error) {
	store, err := storage.NewFS(cfg.Content.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return NewCatalog(cfg, store, logger, obs)
}

// NewCatalog defines every configured collection on store.
func NewCatalog(cfg *Config, store storage.Provider, logger *slog.Logger, obs collection.Observer) (*catalog.Catalog, error) {
	specs := make([]catalog.Spec, len(cfg.Collections))
	for i, cc := range cfg.Collections {
		ext := cc.Extension
		if ext == "" {
			ext = cfg.Content.Extension
		}
		specs[i] = catalog.Spec{
			Name:      cc.Name,
			Folder:    cc.Folder,
			Strict:    cc.IsStrict(),
			Extension: ext,
			Ignore:    cc.Ignore,
			Shape:     cc.Shape,
		}
	}

	opts := []collection.Option{collection.WithLogger(logger), collection.WithObserver(obs)}
	if cfg.Content.Concurrency > 0 {
		opts = append(opts, collection.WithConcurrency(cfg.Content.Concurrency))
	}
	cat, err := catalog.New(store, specs, opts...)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	return cat, nil
}

func (app *application) setup() (*slog.Logger, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := NewLogger(app.config, app.logOut)
	slog.SetDefault(logger)
	return logger, nil
}

// Run starts the HTTP server and, when enabled, the content watcher.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	logger, err := app.setup()
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", cfg.Content.Root),
		slog.Int("collections", len(cfg.Collections)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var collector *metrics.Collector
	var obs collection.Observer
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		obs = collector
	}

	store, err := storage.NewFS(cfg.Content.Root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	cat, err := NewCatalog(cfg, store, logger, obs)
	if err != nil {
		return err
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(cat, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if !storage.IsDir(store, ".") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"content root unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if collector != nil {
		r.Handle(cfg.Metrics.Path, collector.Handler())
	}

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open event streams would otherwise hold Shutdown until its timeout.
	httpServer.RegisterOnShutdown(broker.Close)

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			err := watcher.Watch(gCtx, store, store.Root(), cat, logger, broker.PublishEntryEvent)
			if err != nil {
				logger.Warn("watcher failed, live updates disabled", slog.String("error", err.Error()))
			}
			return nil
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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// ServeMCP serves the MCP tools on stdio. Logs go to stderr since stdout
// carries the protocol.
func ServeMCP(opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	logger, err := app.setup()
	if err != nil {
		return err
	}

	cat, err := OpenCatalog(app.config, logger, nil)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting", slog.Int("collections", len(cat.Names())))
	return mcpserver.New(cat, app.version).ServeStdio()
}
