package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/api/rest"
	"github.com/fortuna/roster/internal/api/websocket"
	"github.com/fortuna/roster/internal/cache"
	"github.com/fortuna/roster/internal/config"
	"github.com/fortuna/roster/internal/logging"
	"github.com/fortuna/roster/internal/metrics"
	"github.com/fortuna/roster/internal/publisher"
	"github.com/fortuna/roster/internal/reconciliation"
	"github.com/fortuna/roster/internal/render"
	"github.com/fortuna/roster/internal/roster"
	"github.com/fortuna/roster/internal/scheduler"
	"github.com/fortuna/roster/internal/service"
	"github.com/fortuna/roster/internal/store"
	"github.com/fortuna/roster/internal/store/memory"
	"github.com/fortuna/roster/internal/store/repository"
	"github.com/fortuna/roster/internal/store/resilient"
)

const (
	serviceName    = "roster"
	serviceVersion = "1.0.0"
)

func main() {
	cfg := config.MustLoad()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("roster stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
		zap.String("env", cfg.Env),
		zap.String("store", cfg.Database.Driver))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()

	// Storage
	var gateway roster.Gateway
	switch cfg.Database.Driver {
	case "memory":
		gateway = memory.NewGateway()
		logger.Warn("using in-memory store, data is lost on exit")
	default:
		db, err := store.NewDatabase(ctx, cfg.Database.DSN, logger)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		gateway = repository.NewGateway(db)
	}

	gateway = resilient.Wrap(gateway, resilient.Options{
		Name:                "store",
		MaxRequests:         cfg.Breaker.MaxRequests,
		Interval:            cfg.Breaker.Interval,
		Timeout:             cfg.Breaker.Timeout,
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		RetryAttempts:       cfg.Breaker.RetryAttempts,
		RetryBaseDelay:      cfg.Breaker.RetryBaseDelay,
		RetryMaxDelay:       cfg.Breaker.RetryMaxDelay,
		OnStateChange:       m.ObserveBreaker,
	}, logger)

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	opts := service.Options{
		Logger:  logger,
		Metrics: m,
		Sinks:   []service.EventSink{hub},
	}

	// Redis is optional: without it requests are not deduplicated and events
	// only reach websocket clients.
	var events rest.EventReader
	if redisCache, err := connectRedis(ctx, cfg.Redis.URL, logger); err != nil {
		logger.Warn("redis unavailable, continuing without idempotency and event stream", zap.Error(err))
	} else {
		defer redisCache.Close()

		stream := publisher.NewRedisStreamPublisher(redisCache.Client(), cfg.Redis.Stream, cfg.Redis.StreamMaxLen)
		opts.Sinks = append(opts.Sinks, stream)
		opts.Idempotency = cache.NewIdempotencyStore(redisCache, "", cfg.Idempotency.TTL)
		events = stream
	}

	svc := service.NewRosterService(gateway, opts)
	if report := svc.Load(ctx); report.Failed() {
		logger.Warn("initial load failed, serving empty roster", zap.Bool("database_reachable", report.DatabaseReachable))
	}

	audit := reconciliation.NewEngine(gateway, map[roster.Group]float64{
		roster.GroupTeamA: cfg.Finance.OpeningBalanceTeamA,
		roster.GroupTeamB: cfg.Finance.OpeningBalanceTeamB,
	}, m, logger)

	liveURL := cfg.Server.LiveURL
	if liveURL == "" {
		liveURL = fmt.Sprintf("ws://localhost:%s/ws", cfg.Server.WSPort)
	}
	renderer, err := render.New(render.Options{LiveURL: liveURL})
	if err != nil {
		return err
	}

	sched := scheduler.NewOrchestrator(svc, audit, &scheduler.Config{
		ReloadInterval: cfg.Scheduler.ReloadInterval,
		AuditInterval:  cfg.Scheduler.AuditInterval,
		EnableReload:   cfg.Scheduler.ReloadInterval > 0,
		EnableAudit:    cfg.Scheduler.AuditInterval > 0,
	}, logger)
	go sched.Start(ctx)

	handler := rest.NewHandler(svc, renderer, audit, events, logger)
	restServer := rest.NewServer(cfg.Server.RESTPort, handler, m, logger)
	wsServer := websocket.NewServer(hub, logger)

	errc := make(chan error, 2)
	go func() {
		logger.Info("REST API listening", zap.String("port", cfg.Server.RESTPort))
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("rest server: %w", err)
		}
	}()
	go func() {
		if err := wsServer.Start(cfg.Server.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("websocket server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errc:
	}

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("REST API shutdown error", zap.Error(err))
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("websocket shutdown error", zap.Error(err))
	}

	logger.Info("stopped")
	return runErr
}

// connectRedis tries a few times before giving up.
func connectRedis(ctx context.Context, url string, logger *zap.Logger) (*cache.RedisCache, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)

	var rc *cache.RedisCache
	err := backoff.RetryNotify(func() error {
		var err error
		rc, err = cache.NewRedisCache(ctx, url)
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Info("redis not ready, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}
