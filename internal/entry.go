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

	"github.com/starford/moonshine/internal/api"
	"github.com/starford/moonshine/internal/embedding"
	"github.com/starford/moonshine/internal/graph"
	"github.com/starford/moonshine/internal/mashservice"
	"github.com/starford/moonshine/internal/mcpserver"
	"github.com/starford/moonshine/internal/retrieval"
	"github.com/starford/moonshine/internal/sse"
	"github.com/starford/moonshine/internal/store"
	"github.com/starford/moonshine/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		version: "dev",
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Stdout carries MCP JSON-RPC in stdio mode, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("read_only", cfg.SQLite.ReadOnly),
		slog.String("mcp_transport", cfg.MCP.Transport),
		slog.Bool("http_enabled", cfg.App.HTTP.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if !cfg.SQLite.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	st, err := store.Open(cfg.SQLite.Path, store.Options{ReadOnly: cfg.SQLite.ReadOnly})
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	gateway := embedding.NewGateway(st,
		embedding.WithOpenAIBaseURL(cfg.Embedding.OpenAIBaseURL),
		embedding.WithGeminiBaseURL(cfg.Embedding.GeminiBaseURL),
		embedding.WithTimeout(cfg.Embedding.Timeout),
		embedding.WithRateLimit(cfg.Embedding.RateLimit),
		embedding.WithLogger(logger),
	)

	mashes := mashservice.NewService(st, broker, logger)
	graphSvc := graph.New(st, broker, logger)
	search := retrieval.New(st, gateway, logger)
	mcpSrv := mcpserver.New(mashes, graphSvc, search, app.version, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	var httpServer *http.Server
	if cfg.App.HTTP.Enabled {
		var mcpHandler http.Handler
		if cfg.MCP.Transport == TransportHTTP {
			mcpHandler = mcpSrv.HTTPHandler()
		}
		httpServer = &http.Server{
			Addr:              cfg.App.HTTP.Address(),
			Handler:           newHTTPHandler(cfg, st, api.NewHandler(mashes, graphSvc, search), broker, mcpHandler),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	if cfg.SQLite.Watch {
		g.Go(func() error {
			err := watch.Watch(gCtx, cfg.SQLite.Path, watch.DefaultDebounce, logger, func() {
				broker.PublishChange(sse.EventStoreChanged, "")
			})
			if err != nil {
				logger.Warn("database watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if cfg.MCP.Transport == TransportStdio {
		g.Go(func() error {
			logger.Info("Serving MCP over stdio")
			err := mcpSrv.ServeStdio(gCtx, app.stdin, app.stdout)
			// The client closing stdin ends the process.
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio error: %w", err)
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		if httpServer == nil {
			return nil
		}

		logger.Info("Shutting down HTTP server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
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

// newHTTPHandler builds the root router: health probes, the REST API with its
// SSE stream under /api, and the MCP endpoint when mcpHandler is non-nil.
func newHTTPHandler(cfg *Config, st *store.Store, h *api.Handler, events http.Handler, mcpHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Mount("/api", api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))

	if mcpHandler != nil {
		r.With(api.AuthMiddleware(cfg.Auth.AuthEnabled(), cfg.Auth.Token)).Handle("/mcp", mcpHandler)
	}

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}
