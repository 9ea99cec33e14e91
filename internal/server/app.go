// Package server wires the identity core together: storage, token service,
// flash sessions, and the HTTP and gRPC front ends. It also owns graceful
// shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/dbx"
	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/dmitrijs2005/inkwell/internal/server/auth"
	"github.com/dmitrijs2005/inkwell/internal/server/config"
	"github.com/dmitrijs2005/inkwell/internal/server/identity"
	"github.com/dmitrijs2005/inkwell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/inkwell/internal/server/services"
	"github.com/dmitrijs2005/inkwell/internal/server/session"
	"github.com/dmitrijs2005/inkwell/internal/server/web"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/inkwell/internal/server/grpc"
)

const sweepInterval = time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	rdb     *redis.Client
	memory  *session.MemoryStore
	tokens  *auth.TokenService
	handler http.Handler
	sync    func() error
}

// NewLogger builds the logger selected by cfg.LogBackend. Outside production
// both backends log at debug level in a human-readable form.
func NewLogger(cfg *config.Config) (logging.Logger, func() error, error) {
	debug := !cfg.IsProd()
	switch cfg.LogBackend {
	case "zap":
		z, err := logging.NewZap(debug)
		if err != nil {
			return nil, nil, err
		}
		return z, z.Sync, nil
	case "", "slog":
		return logging.NewSlog(os.Stdout, debug), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log backend %q", cfg.LogBackend)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, syncLog, err := NewLogger(c)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService([]byte(c.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("token service init error: %w", err)
	}

	db, dialect, err := dbx.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.New(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, tokens: tokens, sync: syncLog}

	flashStore, err := app.newFlashStore(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store := services.NewCredentialStore(db, rm, logger)
	users := services.NewUserService(store, tokens, c.TokenTTL)
	linker := identity.NewLinker(store, tokens, c.OAuthTokenTTL, logger)
	exchanger := identity.NewGoogleExchanger(c.GoogleClientID, c.GoogleClientSecret, c.GoogleRedirectURL)
	flash := session.NewFlash(flashStore, c.SessionTTL, c.IsProd(), logger)

	handlers := web.NewHandlers(users, linker, exchanger, flash, web.JSONRenderer{},
		web.CookieConfig{Secure: c.IsProd(), MaxAge: c.CookieMaxAge}, logger)
	app.handler = web.NewRouter(handlers, web.NewGate(tokens, logger), logger)

	logger.Info(ctx, "app initialised", "dialect", string(dialect), "environment", c.Environment)
	return app, nil
}

func (app *App) newFlashStore(ctx context.Context) (session.Store, error) {
	if app.config.RedisAddr == "" {
		app.memory = session.NewMemoryStore()
		return app.memory, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.rdb = rdb
	return session.NewRedisStore(rdb), nil
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
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.tokens)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := web.NewServer(app.config.HTTPAddr, app.handler, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a listener fails,
// then releases the database and Redis connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.memory != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.memory.RunSweeper(ctx, sweepInterval)
		}()
	}

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
}

func (app *App) close(ctx context.Context) {
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	_ = app.sync()
}
