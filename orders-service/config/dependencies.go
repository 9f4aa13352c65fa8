package config

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/draftea/order-saga/orders-service/application"
	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/orders-service/handlers"
	"github.com/draftea/order-saga/orders-service/infrastructure"
	sharedinfra "github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Config *Config
	Logger *slog.Logger

	// Storage
	DB    *sqlx.DB
	Redis redis.UniversalClient
	application.Stores

	// Saga
	Worker     domain.StageWorker
	Dispatcher *application.PoolDispatcher
	UseCases   *application.UseCases
	Sweeper    *application.RetrySweeper

	// HTTP Handlers
	OrderHandlers      *handlers.OrderHandlers
	DeadLetterHandlers *handlers.DeadLetterHandlers

	// Event Handlers
	CommandEventHandlers *handlers.CommandEventHandlers

	// Infrastructure
	EventPublisher  *sharedinfra.SNSEventPublisher
	EventSubscriber *sharedinfra.SQSSubscriberAdapter

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config, logger *slog.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = slog.Default()
	}
	deps := &Dependencies{Config: config, Logger: logger}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.OrdersServiceConfig.
			WithServiceName(config.ServiceName).
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint)
		tel, shutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			// continue without telemetry rather than failing
			logger.Warn("failed to initialize telemetry", "error", err)
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = shutdown
		}
	}

	if err := deps.buildStores(ctx); err != nil {
		deps.Close(ctx)
		return nil, err
	}

	if config.AWS.PublishEnabled {
		publisher, err := sharedinfra.NewSNSPublisherAdapter(ctx, awsConfig(config), config.AWS.SNSTopicArn, logger)
		if err != nil {
			deps.Close(ctx)
			return nil, errors.Wrap(err, "failed to create SNS publisher")
		}
		deps.EventPublisher = publisher
		deps.EventLog = infrastructure.NewPublishingEventLog(deps.EventLog, publisher, logger)
	}

	deps.Worker = buildWorker(config.Workers)
	deps.Dispatcher = application.NewPoolDispatcher(config.Saga.DispatchConcurrency, logger)

	opts := []application.Option{
		application.WithLogger(logger),
		application.WithSink(infrastructure.NewTelemetrySink(logger)),
		application.WithProducer(config.Saga.ProducedBy),
	}
	deps.UseCases = application.NewUseCases(deps.Stores, deps.Worker, deps.Dispatcher, application.SagaConfig{
		StageTimeout:   config.Saga.StageTimeout,
		MaxRetries:     config.Saga.MaxRetries,
		StuckThreshold: config.Saga.StuckThreshold,
		Retry: application.RetryManagerConfig{
			Cooldown:    config.Saga.RetryCooldown,
			BatchSize:   config.Saga.SweepBatchSize,
			Concurrency: config.Saga.SweepConcurrency,
		},
	}, opts...)
	deps.Sweeper = application.NewRetrySweeper(deps.UseCases.RetryManager, deps.Dedup,
		config.Saga.SweepInterval, config.Saga.DedupRetention, opts...)

	// Initialize handlers
	uc := deps.UseCases
	deps.OrderHandlers = handlers.NewOrderHandlers(uc.CreateOrder, uc.GetOrder, uc.RetryOrder, uc.Diagnose, uc.RebuildOrder)
	deps.DeadLetterHandlers = handlers.NewDeadLetterHandlers(uc.ListDeadLetters, uc.ReplayDeadLetter)
	deps.CommandEventHandlers = handlers.NewCommandEventHandlers(uc.CreateOrder, uc.RetryOrder, uc.ReplayDeadLetter, logger)

	if config.AWS.SubscribeEnabled {
		awsCfg, err := sharedinfra.LoadAWSConfig(ctx, awsConfig(config))
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		subscriber, err := sharedinfra.NewSQSSubscriberAdapter(
			sharedinfra.NewSQSClient(awsCfg, config.AWS.EndpointSQS),
			config.AWS.SQSQueueURL,
			logger,
		)
		if err != nil {
			deps.Close(ctx)
			return nil, errors.Wrap(err, "failed to create SQS subscriber")
		}
		if err := deps.CommandEventHandlers.Subscribe(ctx, subscriber); err != nil {
			deps.Close(ctx)
			return nil, err
		}
		deps.EventSubscriber = subscriber
	}

	return deps, nil
}

func (d *Dependencies) buildStores(ctx context.Context) error {
	config := d.Config

	switch config.Storage {
	case StoragePostgres:
		db, err := connectDatabase(ctx, config.Database, config.GetDatabaseURL())
		if err != nil {
			return err
		}
		d.DB = db
		d.Stores = application.Stores{
			Orders:      infrastructure.NewPostgresOrderRepository(db),
			EventLog:    infrastructure.NewPostgresEventLog(db),
			Dedup:       infrastructure.NewPostgresDedupStore(db),
			DeadLetters: infrastructure.NewPostgresDeadLetterRepository(db),
		}
	default:
		d.Stores = application.Stores{
			Orders:      infrastructure.NewMemoryOrderRepository(),
			EventLog:    infrastructure.NewMemoryEventLog(),
			Dedup:       infrastructure.NewMemoryDedupStore(),
			DeadLetters: infrastructure.NewMemoryDeadLetterRepository(),
		}
	}

	if config.Redis.Enabled {
		client, err := connectRedis(ctx, config.Redis, config.Database.ConnectTimeout)
		if err != nil {
			return err
		}
		d.Redis = client
		d.Dedup = infrastructure.NewRedisDedupStore(client, config.Redis.DedupTTL)
	}
	return nil
}

// connectDatabase retries until the database answers or the connect timeout passes
func connectDatabase(ctx context.Context, cfg Database, dsn string) (*sqlx.DB, error) {
	db, err := backoff.Retry(ctx, func() (*sqlx.DB, error) {
		return sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(cfg.ConnectTimeout))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

func connectRedis(ctx context.Context, cfg Redis, timeout time.Duration) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if cfg.OTel {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "failed to instrument redis tracing")
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "failed to instrument redis metrics")
		}
	}

	_, err := backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(timeout))
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return client, nil
}

func buildWorker(cfg Workers) domain.StageWorker {
	var worker domain.StageWorker
	switch cfg.Mode {
	case WorkersHTTP:
		worker = infrastructure.NewHTTPStageWorker(cfg.BaseURL, &http.Client{})
	default:
		rates := make(map[domain.Operation]float64, len(cfg.FailureRates))
		for op, rate := range cfg.FailureRates {
			rates[domain.Operation(op)] = rate
		}
		worker = infrastructure.NewSimulatedWorker(infrastructure.RandomRejections(rates, nil), cfg.Latency)
	}

	if cfg.RateLimit > 0 {
		worker = infrastructure.NewRateLimitedWorker(worker, cfg.RateLimit, cfg.Burst)
	}
	return worker
}

func awsConfig(config *Config) sharedinfra.AWSConfig {
	return sharedinfra.AWSConfig{
		Region:      config.AWS.Region,
		EndpointSNS: config.AWS.EndpointSNS,
		EndpointSQS: config.AWS.EndpointSQS,
	}
}

// Close stops background work and releases connections
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error

	if d.EventSubscriber != nil {
		if err := d.EventSubscriber.Close(ctx); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close event subscriber"))
		}
	}

	if d.Dispatcher != nil {
		if err := d.Dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to drain dispatcher"))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close redis"))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close database"))
		}
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}

	if len(errs) > 0 {
		return errors.Errorf("errors closing dependencies: %v", errs)
	}
	return nil
}
