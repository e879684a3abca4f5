// Package server wires the auth server: configuration, storage, the token
// codec, the session store, the vault and the HTTP and gRPC front ends.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/netx"
	"github.com/dmitrijs2005/passvault/internal/server/auth"
	"github.com/dmitrijs2005/passvault/internal/server/config"
	"github.com/dmitrijs2005/passvault/internal/server/httpapi"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/passvault/internal/server/services"
	"github.com/dmitrijs2005/passvault/internal/server/sessions"
	"github.com/dmitrijs2005/passvault/internal/server/vault"

	gs "github.com/dmitrijs2005/passvault/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	authService  *services.AuthService
	entryService *services.EntryService
}

// NewApp validates c, connects to the database, applies migrations and
// builds the services. Key material problems fail here, before anything is served.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	key, err := cryptox.ParseKey(c.EncryptionKey)
	if err != nil {
		return nil, err
	}
	cipher, err := cryptox.NewCipher(key)
	common.WipeByteArray(key)
	if err != nil {
		return nil, err
	}

	codec, err := auth.NewCodec([]byte(c.SecretKey), c.AccessTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store := sessions.NewStore(db, dbx.NewSQLTransactor(db, nil), rm, c.RefreshTokenValidityDuration, logger)

	as, err := services.NewAuthService(rm.Users(db), store, codec, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		authService:  as,
		entryService: services.NewEntryService(rm.Entries(db), vault.NewSealer(cipher), logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(httpapi.NewHandler(app.authService, app.logger, httpapi.WithEntries(app.entryService)))
	if err := netx.ListenAndServeHTTP(ctx, app.config.EndpointAddrHTTP, router, app.logger.With("module", "http_server")); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
