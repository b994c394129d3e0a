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

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	httpapi "github.com/ferryhill/gatehouse/internal/gatehouse/http"
	"github.com/ferryhill/gatehouse/internal/gatehouse/service"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/ferryhill/gatehouse/pkg/cryptox"
	"github.com/ferryhill/gatehouse/pkg/jwtx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

// BuildVersion is set at build time via ldflags.
var BuildVersion = "dev"

// Application wires the token service together: store, keys, services and
// the HTTP surface.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager

	tokenService        *service.TokenService
	clientService       *service.ClientService
	scopeService        *service.ScopeService
	seedService         *service.SeedService
	housekeepingService *service.HousekeepingService
	keyRotationService  *service.KeyRotationService // persistent mode only

	server *http.Server
	router *httpapi.Router
}

// New initializes the application: database and migrations, signing keys,
// seed data, services and the HTTP server. Nothing listens yet; call Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	keyManager, persistent, err := InitSigningKeys(ctx, cfg, app.db, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.keyManager = keyManager

	app.initServices(persistent)

	if err := app.applySeed(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Run starts serving and blocks until a shutdown signal or server error.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	if app.keyRotationService != nil {
		app.keyRotationService.Start()
	}

	app.logger.Info("gatehouse starting",
		"port", app.cfg.Port, "version", BuildVersion, "issuer", app.cfg.Issuer)

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

// Shutdown drains in-flight requests, stops the workers and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatehouse")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "err", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("close server", "err", err)
		}
	}

	app.housekeepingService.Stop()
	if app.keyRotationService != nil {
		app.keyRotationService.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("close database", "err", err)
		return err
	}

	app.logger.Info("gatehouse stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}

	app.logger.Info("database migrations applied", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initServices(persistent *jwtx.PersistentKeyManager) {
	app.tokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}
	app.clientService = &service.ClientService{Store: app.db}
	app.scopeService = &service.ScopeService{Store: app.db}
	app.seedService = &service.SeedService{Store: app.db, Logger: app.logger}

	app.housekeepingService = service.NewHousekeepingService(
		app.db, app.logger, app.cfg.HousekeepingInterval)

	if persistent != nil {
		app.keyRotationService = service.NewKeyRotationService(
			persistent, app.cfg.Algorithm, app.logger, app.cfg.KeyRotateEvery)
		app.logger.Info("key rotation enabled (persistent mode)")
	}
}

// applySeed reconciles initial configuration on every boot. Sections only
// land on empty tables, so this is safe to run unconditionally.
func (app *Application) applySeed(ctx context.Context) error {
	var (
		data *domain.SeedData
		err  error
	)

	switch {
	case app.cfg.SeedFile != "":
		data, err = service.LoadSeedFile(app.cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("load seed file: %w", err)
		}
	case app.cfg.AdminSecret != "":
		data = service.DefaultSeedData(app.cfg.AdminSecret)
	default:
		app.logger.Info("no seed configured, skipping")
		return nil
	}

	if _, err := app.seedService.Apply(ctx, data); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.ClientService = app.clientService
	router.ScopeService = app.scopeService
	router.KeyRotationService = app.keyRotationService // nil in ephemeral mode
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
