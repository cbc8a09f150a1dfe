// Package server wires the auth server together: it opens PostgreSQL and the
// optional Redis revocation store, applies migrations, and runs the HTTP API
// and the gRPC health service until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []io.Closer

	httpServer   *httpapi.HTTPServer
	healthServer *gs.HealthServer
}

// NewApp opens the stores named in c and builds the App. The caller must
// Close it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	var revoked revocations.Repository
	var closers []io.Closer
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		repo := revocations.NewRedisRepository(client, "")
		if err := repo.Ping(ctx); err != nil {
			_ = client.Close()
			_ = db.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		revoked = repo
		closers = append(closers, client)
	}

	app, err := newApp(ctx, c, logger, db, repomanager.NewPostgresRepositoryManager(), revoked)
	if err != nil {
		for _, cl := range closers {
			_ = cl.Close()
		}
		_ = db.Close()
		return nil, err
	}
	app.closers = closers
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB,
	rm repomanager.RepositoryManager, revoked revocations.Repository) (*App, error) {

	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	hasher, err := password.NewHasher(c.BcryptCost)
	if err != nil {
		return nil, err
	}

	codec, err := auth.NewCodec(auth.Options{Secret: []byte(c.SecretKey), Algorithm: c.Algorithm})
	if err != nil {
		return nil, err
	}

	if c.RotateRefreshTokens && revoked == nil {
		logger.Warn(ctx, "refresh token rotation requested without a revocation store, disabled")
	}

	sessions := services.NewSessionService(db, rm, hasher, codec, revoked, c, logger)
	registration := services.NewRegistrationService(db, rm, hasher, logger)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		httpServer: httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, sessions, registration, httpapi.CookieConfig{
			Secure:     c.CookieSecure,
			AccessTTL:  c.AccessTokenValidityDuration,
			RefreshTTL: c.RefreshTokenValidityDuration,
		}),
		healthServer: gs.NewHealthServer(c.HealthAddrGRPC, logger),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Received signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves until ctx is cancelled, a signal arrives, or a server fails.
// The first server error is returned.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		runErr  error
	)
	fail := func(err error) {
		app.logger.Error(ctx, err.Error())
		errOnce.Do(func() { runErr = err })
		cancelFunc()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			fail(fmt.Errorf("http server: %w", err))
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.healthServer.Run(ctx); err != nil {
			fail(fmt.Errorf("grpc health server: %w", err))
		}
	}()

	app.healthServer.SetServing(true)

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")

	return runErr
}

// Close releases the database and Redis connections.
func (app *App) Close() error {
	errs := []error{app.db.Close()}
	for _, c := range app.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
