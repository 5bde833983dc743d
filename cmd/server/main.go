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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/genfin/internal/adapter/http"
	"github.com/iho/genfin/internal/adapter/http/handler"
	"github.com/iho/genfin/internal/adapter/http/middleware"
	"github.com/iho/genfin/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/genfin/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/genfin/internal/adapter/repository/redis"
	"github.com/iho/genfin/internal/infrastructure/auth"
	"github.com/iho/genfin/internal/infrastructure/config"
	"github.com/iho/genfin/internal/infrastructure/eventpublisher"
	"github.com/iho/genfin/internal/infrastructure/logger"
	"github.com/iho/genfin/internal/infrastructure/metrics"
	"github.com/iho/genfin/internal/infrastructure/postgres"
	"github.com/iho/genfin/internal/infrastructure/redis"
	"github.com/iho/genfin/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// app is the wired server: the HTTP handler plus what runs beside it.
type app struct {
	router      http.Handler
	publisher   *eventpublisher.EventPublisher
	rateLimiter *middleware.RateLimiter
	closers     []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go func() {
		if err := a.publisher.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	if a.rateLimiter != nil {
		go cleanupLoop(workerCtx, a.rateLimiter, time.Minute)
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      a.router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func cleanupLoop(ctx context.Context, rl *middleware.RateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// storage is what a driver contributes to the wiring.
type storage struct {
	txManager usecase.TransactionManager
	repos     usecase.Repositories
	retrier   usecase.Retrier
	checks    []handler.HealthCheck
	closers   []func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		if err := postgres.RunMigrations(log, cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return nil, err
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL: cfg.DatabaseURL,
			MaxConns:    cfg.DatabaseMaxConns,
			MinConns:    cfg.DatabaseMinConns,
			LockTimeout: cfg.DatabaseLockTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Info().Msg("connected to postgres")

		return &storage{
			txManager: postgresRepo.NewTxManager(pool),
			repos:     postgresRepo.NewRepositories(pool),
			retrier:   postgresRepo.NewRetrier(log),
			checks:    []handler.HealthCheck{{Name: "postgres", Check: pool.Ping}},
			closers:   []func(){pool.Close},
		}, nil
	default:
		store := memory.NewStore()
		log.Warn().Msg("using in-memory storage; books are lost on restart")

		return &storage{
			txManager: memory.NewTxManager(store),
			repos:     memory.NewRepositories(store),
		}, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	chart, err := config.LoadChart(cfg.ChartOfAccounts)
	if err != nil {
		return nil, err
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.closers...)
	healthChecks := store.checks

	var (
		guard            usecase.StartGuard = memory.NewGuard()
		idempotencyStore usecase.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		log.Info().Msg("connected to redis")

		guard = redisRepo.NewStartGuard(client)
		idempotencyStore = redisRepo.NewIdempotencyStore(client)
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegistry(registry)

	deps := usecase.Deps{
		TxManager: store.txManager,
		Repos:     store.repos,
		IDGen:     postgresRepo.NewULIDGenerator(),
		Retrier:   store.retrier,
		Guard:     guard,
		Metrics:   m,
		Control: usecase.ControlAccounts{
			Receivable:    chart.Control.Receivable,
			Payable:       chart.Control.Payable,
			OpeningEquity: chart.Control.OpeningEquity,
		},
		CompanyID: cfg.CompanyID,

		FirstCheckNumber: cfg.FirstCheckNumber,
	}

	ledgerUC := usecase.NewLedgerUseCase(deps)
	bankUC := usecase.NewBankUseCase(deps)

	seeded, err := ledgerUC.SeedAccounts(ctx, chart.DomainAccounts())
	if err != nil {
		return nil, fmt.Errorf("failed to seed chart of accounts: %w", err)
	}
	log.Info().Int("created", seeded).Int("accounts", len(chart.Accounts)).Msg("chart of accounts ready")

	a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: store.repos.Outbox,
		Publisher:  eventpublisher.NewLogPublisher(log),
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	}

	var verifier middleware.TokenVerifier
	if cfg.AuthEnabled() {
		verifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	} else {
		log.Warn().Msg("JWT_SECRET not set: API authentication disabled")
	}

	a.router = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:                log,
		Metrics:               m,
		MetricsGatherer:       registry,
		RateLimiter:           a.rateLimiter,
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		Auth:                  verifier,
		AccountHandler:        handler.NewAccountHandler(ledgerUC),
		JournalHandler:        handler.NewJournalHandler(ledgerUC),
		InvoiceHandler:        handler.NewInvoiceHandler(usecase.NewReceivablesUseCase(deps)),
		BillHandler:           handler.NewBillHandler(usecase.NewPayablesUseCase(deps)),
		CheckHandler:          handler.NewCheckHandler(usecase.NewCheckUseCase(deps)),
		BankHandler:           handler.NewBankHandler(bankUC),
		TransferHandler:       handler.NewTransferHandler(bankUC),
		ReconciliationHandler: handler.NewReconciliationHandler(usecase.NewReconciliationUseCase(deps)),
		HealthHandler:         handler.NewHealthHandler(healthChecks...),
	})

	return a, nil
}
