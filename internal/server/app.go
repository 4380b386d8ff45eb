// Package server wires the portal together: it opens the database, builds the
// services and runs the HTTP API, the gRPC health endpoint and the network
// batch scheduler until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/payportal/internal/logging"
	"github.com/dmitrijs2005/payportal/internal/server/access"
	"github.com/dmitrijs2005/payportal/internal/server/auth"
	"github.com/dmitrijs2005/payportal/internal/server/bruteforce"
	"github.com/dmitrijs2005/payportal/internal/server/config"
	"github.com/dmitrijs2005/payportal/internal/server/network"
	"github.com/dmitrijs2005/payportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/payportal/internal/server/rest"
	"github.com/dmitrijs2005/payportal/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/payportal/internal/server/grpc"
)

const sweepInterval = time.Minute

type App struct {
	config *config.Config
	logger logging.Logger

	db        *sql.DB
	redis     *redis.Client
	memStore  *bruteforce.MemoryStore
	publisher *network.AMQPPublisher

	httpServer   *rest.Server
	healthServer *gs.HealthServer
	scheduler    *network.Scheduler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.WeakSecret() {
		logger.Warn(ctx, "JWT secret is shorter than recommended", "min_length", config.MinSecretLength)
	}

	app := &App{config: c, logger: logger}
	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	db, err := repomanager.Open(ctx, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	store, err := app.initGuardStore(ctx)
	if err != nil {
		return err
	}
	guard := bruteforce.NewGuard(store, app.config.LockoutThreshold, app.config.LockoutWindow)

	tokens, err := auth.NewTokenService(app.config.SecretKey)
	if err != nil {
		return err
	}

	accountService := services.NewAccountService(db, rm, tokens, guard, app.logger)
	transactionService := services.NewTransactionService(db, rm, app.logger)
	controller := access.NewController(tokens, rm.Accounts(db))

	dispatcher, err := app.initNetwork(ctx, transactionService)
	if err != nil {
		return err
	}

	deps := rest.Deps{
		Accounts:       accountService,
		Transactions:   transactionService,
		Auth:           controller,
		Logger:         app.logger,
		CORSOrigin:     app.config.CORSOrigin,
		RequestTimeout: app.config.RequestTimeout,
	}
	if dispatcher != nil {
		deps.Batches = dispatcher
	}

	app.httpServer = rest.NewServer(app.config.EndpointAddrHTTP, rest.NewRouter(deps),
		app.config.TLSCertFile, app.config.TLSKeyFile, app.logger)
	app.healthServer = gs.NewHealthServer(app.config.EndpointAddrGRPC, db, app.config.HealthCheckInterval, app.logger)

	return nil
}

// initGuardStore shares lockout counters through Redis when configured,
// otherwise counters live in process memory.
func (app *App) initGuardStore(ctx context.Context) (bruteforce.Store, error) {
	if app.config.RedisURL == "" {
		app.memStore = bruteforce.NewMemoryStore()
		return app.memStore, nil
	}

	opts, err := redis.ParseURL(app.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	app.redis = client

	return bruteforce.NewRedisStore(client, ""), nil
}

// initNetwork builds the batch dispatcher. Without a broker URL there is no
// dispatcher and batch submission is disabled.
func (app *App) initNetwork(ctx context.Context, source network.BatchSource) (*network.Dispatcher, error) {
	if app.config.RabbitMQURL == "" {
		app.logger.Warn(ctx, "RabbitMQ not configured, batch submission disabled")
		return nil, nil
	}

	publisher, err := network.NewAMQPPublisher(app.config.RabbitMQURL, app.config.RabbitMQExchange, app.logger)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: %w", err)
	}
	app.publisher = publisher

	var archiver network.Archiver
	if app.config.S3Bucket != "" {
		a, err := network.NewS3Archiver(ctx, network.S3Config{
			User:     app.config.S3RootUser,
			Password: app.config.S3RootPassword,
			Bucket:   app.config.S3Bucket,
			Region:   app.config.S3Region,
			Endpoint: app.config.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		archiver = a
	}

	dispatcher := network.NewDispatcher(source, publisher, archiver, app.logger)

	if app.config.BatchSchedule != "" {
		s, err := network.NewScheduler(app.config.BatchSchedule, dispatcher, app.logger)
		if err != nil {
			return nil, fmt.Errorf("batch schedule: %w", err)
		}
		app.scheduler = s
	}

	return dispatcher, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// start runs fn in the group. A component that fails stops the whole app.
func (app *App) start(ctx context.Context, wg *sync.WaitGroup, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := fn(ctx); err != nil {
			app.logger.Error(ctx, "component stopped", "component", name, "error", err)
			cancelFunc()
		}
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	app.start(ctx, &wg, cancelFunc, "http", app.httpServer.Run)
	app.start(ctx, &wg, cancelFunc, "grpc", app.healthServer.Run)
	if app.scheduler != nil {
		app.start(ctx, &wg, cancelFunc, "scheduler", app.scheduler.Run)
	}
	if app.memStore != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.memStore.RunSweeper(ctx, sweepInterval)
		}()
	}

	wg.Wait()

	app.close(context.Background())
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error(ctx, "rabbitmq close", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close", "error", err)
		}
	}
}
