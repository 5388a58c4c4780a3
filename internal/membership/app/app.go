package app

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

	httpapi "github.com/clearcomply/membership/internal/membership/http"
	"github.com/clearcomply/membership/internal/membership/service"
	"github.com/clearcomply/membership/internal/membership/store"
	"github.com/clearcomply/membership/internal/membership/store/drivers/postgres"
	"github.com/clearcomply/membership/internal/membership/store/drivers/sqlite"
	"github.com/clearcomply/membership/pkg/httpx"
	"github.com/clearcomply/membership/pkg/slogx"
)

// BuildVersion is overridden at build time via
// -ldflags "-X .../internal/membership/app.BuildVersion=v1.2.3".
var BuildVersion = "v0.1.0"

// Application encapsulates the membership service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	membershipService   *service.MembershipService
	authorizeService    *service.AuthorizeService
	clientService       *service.ClientService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "membership-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("MEMBERSHIP_JWT_SECRET is required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("membership service starting",
		"port", app.cfg.Port,
		"driver", app.cfg.DatabaseDriver,
		"version", BuildVersion,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down membership service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("membership service stopped")
	return nil
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case "sqlite":
		// _txlock=immediate takes the write lock at BEGIN so concurrent
		// write transactions serialize instead of failing mid-flight.
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	case "postgres":
		if app.cfg.DatabaseURL == "" {
			return errors.New("MEMBERSHIP_DATABASE_URL is required for the postgres driver")
		}
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		return fmt.Errorf("unknown database driver %q", app.cfg.DatabaseDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.membershipService = &service.MembershipService{Store: app.db}
	app.authorizeService = &service.AuthorizeService{Store: app.db}
	app.clientService = &service.ClientService{
		Store:     app.db,
		Authorize: app.authorizeService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.InviteTTL,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	verifier := &httpx.JWTVerifier{
		Secret: []byte(app.cfg.JWTSecret),
		Issuer: app.cfg.JWTIssuer,
	}

	router := httpapi.NewRouter(verifier, BuildVersion, app.db, app.logger)
	router.MembershipService = app.membershipService
	router.ClientService = app.clientService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
