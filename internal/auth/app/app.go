package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/device"
	httpapi "github.com/meridianwealth/authgate/internal/auth/http"
	"github.com/meridianwealth/authgate/internal/auth/metrics"
	"github.com/meridianwealth/authgate/internal/auth/service"
	"github.com/meridianwealth/authgate/internal/auth/store"
	"github.com/meridianwealth/authgate/internal/auth/store/drivers/sqlite"
	"github.com/meridianwealth/authgate/pkg/cryptox"
	"github.com/meridianwealth/authgate/pkg/jwtx"
	"github.com/meridianwealth/authgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth gateway with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	signer  *jwtx.Signer
	metrics *metrics.Metrics

	// Services
	authService    *service.AuthService
	sessionService *service.SessionService
	housekeeper    *service.Housekeeper

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for credential hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.metrics = metrics.New()

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	ctx := slogx.WithContext(context.Background(), app.logger)
	app.housekeeper.Start(ctx)

	app.logger.Info("auth gateway starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"backdoor_enabled", app.cfg.BackdoorEnabled,
		"session_guard_disabled", app.cfg.DisableSessionGuard,
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
	app.logger.Info("shutting down auth gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeper.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth gateway stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initSigner loads the session signing key, or generates an ephemeral one.
// Sessions signed with an ephemeral key do not survive a restart; users
// simply sign in again.
func (app *Application) initSigner() error {
	if app.cfg.SigningKey == "" {
		signer, err := jwtx.GenerateSigner("authgate-ephemeral")
		if err != nil {
			return fmt.Errorf("failed to generate session signing key: %w", err)
		}
		app.signer = signer
		app.logger.Warn("using ephemeral session signing key; sessions will not survive restarts")
		return nil
	}

	pemKey, err := os.ReadFile(app.cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("failed to read signing key file: %w", err)
	}
	signer, err := jwtx.NewSigner("authgate-1", pemKey)
	if err != nil {
		return fmt.Errorf("failed to load session signing key: %w", err)
	}
	app.signer = signer
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	backdoor := service.NewBackdoorAuthority(app.cfg.BackdoorEnabled, app.cfg.BackdoorEmails)

	app.authService = &service.AuthService{
		Store:    app.db,
		Hasher:   service.Argon2Hasher{},
		TOTP:     service.TOTPValidator{},
		Backdoor: backdoor,
		Metrics:  app.metrics,
	}

	app.sessionService = &service.SessionService{
		Store:   app.db,
		Signer:  app.signer,
		Issuer:  app.cfg.Issuer,
		TTL:     app.cfg.SessionTTL,
		Device:  device.NewService(app.cfg.DeviceTracking),
		Metrics: app.metrics,
	}

	app.housekeeper = &service.Housekeeper{
		Store:     app.db,
		Interval:  app.cfg.HousekeepingInterval,
		Retention: app.cfg.LoginEventRetention,
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.signer, BuildVersion, app.db, app.logger)

	router.AuthService = app.authService
	router.SessionService = app.sessionService
	router.Guard = &httpapi.SessionGuard{
		Sessions:        app.sessionService,
		Landing:         app.cfg.LandingRoute,
		FallbackCountry: app.cfg.FallbackCountry,
		Disabled:        app.cfg.DisableSessionGuard,
		Metrics:         app.metrics,
	}
	router.AuthDefaults = service.Options{
		SkipIPChecks: app.cfg.SkipIPChecks,
		AllowPIN:     app.cfg.AllowPIN,
		Debug:        app.cfg.AuthDebug,
	}
	router.FallbackCountry = app.cfg.FallbackCountry
	router.Landing = app.cfg.LandingRoute
	router.CookieSecure = app.cfg.CookieSecure
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
