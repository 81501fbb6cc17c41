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
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dock/internal/api"
	"github.com/starford/dock/internal/auth"
	"github.com/starford/dock/internal/dock"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/importer"
	"github.com/starford/dock/internal/live"
	"github.com/starford/dock/internal/mcpserver"
	"github.com/starford/dock/internal/parser"
	"github.com/starford/dock/internal/store"
	"github.com/starford/dock/internal/store/mongostore"
	"github.com/starford/dock/internal/store/postgres"
	"github.com/starford/dock/internal/store/sqlite"
	"github.com/starford/dock/internal/vault"
)

const connectTimeout = 10 * time.Second

// OpenStore opens the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg StoreConfig) (store.Store, io.Closer, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Driver {
	case DriverMongo:
		repo, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	case DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case DriverSQLite, "":
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewService builds the application service over st.
func NewService(st store.Store, views ViewsConfig) *dock.Service {
	return dock.NewService(st, docs.NewBuilder(parser.NewRenderer()), views.ViewConfig())
}

// NewVerifier builds the request verifier for cfg.Mode.
func NewVerifier(ctx context.Context, cfg AuthConfig) (auth.Verifier, error) {
	switch cfg.Mode {
	case AuthModeToken:
		return auth.Static{Token: cfg.Token, UserID: cfg.UserID}, nil
	case AuthModeJWT:
		return auth.NewJWKS(ctx, cfg.JWKSURL, cfg.Audience, cfg.Issuer)
	default:
		return auth.Disabled{UserID: cfg.UserID}, nil
	}
}

// NewHTTPHandler builds the root router: health checks, then the API under
// /api, all behind CORS.
func NewHTTPHandler(cfg *Config, svc *dock.Service, v auth.Verifier) http.Handler {
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

	r.Mount("/api", api.NewRouter(svc, v))

	if len(cfg.App.HTTP.CORSOrigins) == 0 {
		return r
	}
	// CORS wraps auth so pre-flight requests are answered without a token.
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.App.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	}).Handler(r)
}

// setup resolves options, installs the logger and opens the store. The
// returned cleanup must be called when done.
func setup(ctx context.Context, logOut io.Writer, opts []Option) (*application, *slog.Logger, func(), error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	cleanup := func() {}
	if app.store == nil {
		st, closer, err := OpenStore(ctx, cfg.Store)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init store: %w", err)
		}
		app.store = st
		cleanup = func() {
			if err := closer.Close(); err != nil {
				logger.Warn("store close failed", slog.String("error", err.Error()))
			}
		}
	}
	return app, logger, cleanup, nil
}

// importVault runs the initial vault import and, when configured, starts the
// watcher in g. It is a no-op without a vault.
func importVault(ctx context.Context, g *errgroup.Group, cfg VaultConfig, st store.Store, userID string, logger *slog.Logger) error {
	if !cfg.Enabled() {
		return nil
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}
	fs, err := vault.NewFS(cfg.Path)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}

	im := importer.New(fs, st, userID, logger)
	im.OnEvent(func(kind, path string) {
		logger.Debug("vault change", slog.String("op", kind), slog.String("path", path))
	})
	res, err := im.Sync(ctx)
	if err != nil {
		logger.Warn("initial vault import failed", slog.String("error", err.Error()))
	} else {
		logger.Info("Vault imported",
			slog.Int("created", res.Created),
			slog.Int("updated", res.Updated),
			slog.Int("unchanged", res.Unchanged),
			slog.Int("deleted", res.Deleted))
	}

	if cfg.Watch {
		g.Go(func() error {
			if err := im.Watch(ctx, fs.Root()); err != nil {
				logger.Error("vault watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, cleanup, err := setup(ctx, os.Stdout, opts)
	if err != nil {
		return err
	}
	defer cleanup()
	cfg := app.config

	broker := live.NewBroker()
	defer broker.Close()
	st := live.NewStore(app.store, broker)

	verifier, err := NewVerifier(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHTTPHandler(cfg, NewService(st, cfg.Views), verifier),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Vault records belong to the configured local user.
	if err := importVault(gCtx, g, cfg.Vault, st, cfg.Auth.UserID, logger); err != nil {
		return err
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Start HTTP server.
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

		// Close open event streams before waiting on the server.
		broker.Close()

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

// errShutdown cancels the group once the server is asked to stop, so the
// vault watcher exits too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP protocol on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, cleanup, err := setup(ctx, os.Stderr, opts)
	if err != nil {
		return err
	}
	defer cleanup()
	cfg := app.config

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	if err := importVault(gCtx, g, cfg.Vault, app.store, cfg.MCP.UserID, logger); err != nil {
		return err
	}

	srv := mcpserver.New(NewService(app.store, cfg.Views), cfg.MCP.UserID)
	logger.Info("MCP server starting on stdio", slog.String("user_id", cfg.MCP.UserID))
	serveErr := srv.ServeStdio()

	cancel()
	_ = g.Wait()
	if serveErr != nil {
		return fmt.Errorf("mcp serve: %w", serveErr)
	}
	return nil
}
