// Package app wires the bridge's stores, services, and both transports
// together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
	httpapi "github.com/ArcheWizard/Password-Manager/internal/bridge/http"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/rpc"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/service"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/socket"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/store"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/store/drivers/jsonfile"
	"github.com/ArcheWizard/Password-Manager/internal/vault"
	vaultsqlite "github.com/ArcheWizard/Password-Manager/internal/vault/sqlite"
	"github.com/ArcheWizard/Password-Manager/pkg/slogx"
	"github.com/ArcheWizard/Password-Manager/pkg/tlsx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the bridge with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    store.Store
	vault *vault.Vault

	// Services
	tokenService        *service.TokenService
	pairingService      *service.PairingService
	approvalService     *service.ApprovalService
	housekeepingService *service.HousekeepingService

	// Transports
	dispatcher   *rpc.Dispatcher
	server       *http.Server
	router       *httpapi.Router
	socketServer *socket.Server

	running atomic.Bool
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "bridge",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := app.initStores(); err != nil {
		return nil, err
	}
	app.initServices()
	if err := app.initTransports(); err != nil {
		_ = app.db.Close()
		_ = app.vault.Close()
		return nil, err
	}

	return app, nil
}

func (app *Application) initStores() error {
	db, err := jsonfile.NewStore(app.cfg.DataDir, app.logger)
	if err != nil {
		return fmt.Errorf("failed to open bridge store: %w", err)
	}
	app.db = db

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.VaultDatabaseFile)
	vaultStore, err := vaultsqlite.NewStore(dsn)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to open vault database: %w", err)
	}
	if err := vaultStore.ApplyMigrations(); err != nil {
		_ = vaultStore.Close()
		_ = db.Close()
		return fmt.Errorf("failed to apply vault migrations: %w", err)
	}

	cipher, err := vault.NewCipher(filepath.Join(app.cfg.DataDir, "vault.key"))
	if err != nil {
		_ = vaultStore.Close()
		_ = db.Close()
		return fmt.Errorf("failed to initialize vault cipher: %w", err)
	}

	app.vault = vault.New(vaultStore, cipher)
	app.logger.Info("vault database ready", "file", app.cfg.VaultDatabaseFile)
	return nil
}

func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store: app.db,
		TTL:   app.cfg.TokenTTL,
	}
	app.pairingService = &service.PairingService{
		Tokens: app.tokenService,
		Window: app.cfg.PairingWindow,
	}
	app.approvalService = service.NewApprovalService(app.db, app.logger)
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.approvalService,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.ResponseMaxAge,
	)
}

func (app *Application) initTransports() error {
	app.dispatcher = &rpc.Dispatcher{
		Tokens:     app.tokenService,
		Pairing:    app.pairingService,
		Approvals:  app.approvalService,
		Vault:      app.vault,
		Logger:     app.logger,
		Host:       app.cfg.Host,
		Port:       app.cfg.Port,
		TLSEnabled: app.cfg.EnableTLS,
		Running:    app.running.Load,
	}

	if app.cfg.EnableTLS {
		manager := tlsx.NewManager(app.cfg.DataDir, app.logger)
		certPath, _, err := manager.EnsureCertificate("localhost", app.cfg.CertValidityDays)
		if err != nil {
			return fmt.Errorf("failed to ensure TLS certificate: %w", err)
		}
		fingerprint, err := manager.Fingerprint(certPath)
		if err != nil {
			return fmt.Errorf("failed to fingerprint TLS certificate: %w", err)
		}
		app.dispatcher.CertFingerprint = fingerprint
	}

	app.router = httpapi.NewRouter(app.dispatcher, app.logger)
	app.router.ApplyRoutes()
	app.server = &http.Server{
		Addr:    net.JoinHostPort(app.cfg.Host, strconv.Itoa(app.cfg.Port)),
		Handler: app.router,
	}

	if app.cfg.EnableDomainSocket {
		app.socketServer = socket.NewServer(app.cfg.SocketPath, app.dispatcher, app.logger)
	}

	return nil
}

// StartPairing generates a fresh pairing code for the user to relay to
// their browser extension.
func (app *Application) StartPairing() (domain.PairingSession, error) {
	return app.pairingService.StartPairing()
}

// SetPromptHandler registers the UI callback for approval prompts.
func (app *Application) SetPromptHandler(h service.PromptHandler) {
	app.approvalService.SetPromptHandler(h)
}

// Run starts both listeners and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	if app.cfg.PairOnStart {
		session, err := app.StartPairing()
		if err != nil {
			return fmt.Errorf("failed to start pairing session: %w", err)
		}
		app.logger.Info("pairing code generated",
			"code", session.Code, "expires_at", session.ExpiresAt)
	}

	if app.socketServer != nil {
		if err := app.socketServer.Start(); err != nil {
			return fmt.Errorf("failed to start socket listener: %w", err)
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		app.logger.Info("bridge starting",
			"host", app.cfg.Host,
			"port", app.cfg.Port,
			"tls", app.cfg.EnableTLS,
			"version", BuildVersion)
		if app.cfg.EnableTLS {
			manager := tlsx.NewManager(app.cfg.DataDir, app.logger)
			certPath, keyPath := manager.CertPaths()
			serverErrors <- app.server.ListenAndServeTLS(certPath, keyPath)
		} else {
			serverErrors <- app.server.ListenAndServe()
		}
	}()
	app.running.Store(true)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			app.running.Store(false)
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

// Shutdown stops both listeners, each attempted and logged independently,
// then the background services and stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down bridge...")
	app.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	} else {
		app.logger.Info("http listener stopped")
	}

	if app.socketServer != nil {
		if err := app.socketServer.Stop(app.cfg.ShutdownGracePeriod); err != nil {
			app.logger.Error("socket shutdown failed", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.vault.Close(); err != nil {
		app.logger.Error("error closing vault", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing bridge store", "error", err)
		return err
	}

	app.logger.Info("bridge stopped")
	return nil
}
