package infrastructure

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tranvuongduy2003/jobrunner/internal/core/handler"
	"github.com/tranvuongduy2003/jobrunner/internal/core/manager"
	"github.com/tranvuongduy2003/jobrunner/internal/core/recovery"
	"github.com/tranvuongduy2003/jobrunner/internal/core/runtime"
	"github.com/tranvuongduy2003/jobrunner/internal/core/serializer"
	"github.com/tranvuongduy2003/jobrunner/internal/core/store"
	memorystore "github.com/tranvuongduy2003/jobrunner/internal/core/store/memory"
	redisstore "github.com/tranvuongduy2003/jobrunner/internal/core/store/redis"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/clock"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/config"
	jobmetrics "github.com/tranvuongduy2003/jobrunner/internal/infrastructure/jobs/metrics"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
	httpmetrics "github.com/tranvuongduy2003/jobrunner/internal/infrastructure/metrics"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/tracing"
)

// InfrastructureModule provides the ambient and domain-stack dependencies
// the job pipeline is built on: configuration, logging, Redis, tracing,
// metrics, the pluggable job store, and the core pipeline components
// themselves.
var InfrastructureModule = fx.Module("infrastructure",
	fx.Provide(
		NewConfig,
		NewLogger,
		NewRedisClient,
		NewTracingService,
		NewRuntimeTracer,
		NewJobMetricsCollector,
		NewRuntimeMetrics,
		NewHTTPMetricsManager,
		NewSerializer,
		NewJobStore,
		NewHandlerRegistry,
		NewJobManager,
		NewBackgroundService,
		NewRecoveryService,
	),
)

// NewConfig provides application configuration.
func NewConfig() (*config.AppConfig, error) {
	return config.LoadConfig("configs/development.yaml")
}

// NewLogger provides the application logger.
func NewLogger(cfg *config.AppConfig) (*logger.Logger, error) {
	return logger.NewLogger(cfg.Logger)
}

// NewRedisClient provides the shared Redis client backing the distributed
// job store, the queue sorted sets, and the processing set recovery reads.
func NewRedisClient(cfg *config.AppConfig) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
}

// NewTracingService provides the OpenTelemetry-backed tracer.
func NewTracingService(cfg *config.AppConfig) (*tracing.TracingService, error) {
	return tracing.NewTracingService(cfg)
}

// NewJobMetricsCollector provides the Prometheus collector the runtime
// package reports claim/success/failure counts and durations through.
func NewJobMetricsCollector() *jobmetrics.Collector {
	return jobmetrics.NewCollector()
}

// NewRuntimeMetrics exposes the Prometheus collector as the runtime
// package's Metrics interface, keeping that package decoupled from the
// concrete Prometheus types.
func NewRuntimeMetrics(c *jobmetrics.Collector) runtime.Metrics {
	return c
}

// NewRuntimeTracer exposes the tracing service as the runtime package's
// Tracer interface.
func NewRuntimeTracer(t *tracing.TracingService) runtime.Tracer {
	return t
}

// NewHTTPMetricsManager provides the HTTP-facing metrics server, separate
// from the job pipeline's own collector.
func NewHTTPMetricsManager(cfg *config.AppConfig, log *logger.Logger) *httpmetrics.Manager {
	return httpmetrics.NewManager(cfg.Metrics, log)
}

// NewSerializer provides the payload serializer the example job handlers
// use to decode a job's Payload and encode its Result. The stores do not
// use it; the Redis store encodes its hash fields itself.
func NewSerializer() serializer.Serializer {
	return serializer.NewJSON()
}

// NewJobStore provides the JobStore selected by the jobs.store
// configuration: "memory" for a single-process store, "redis" for the
// distributed store backed by atomic Lua scripts.
func NewJobStore(cfg *config.AppConfig, rdb redis.UniversalClient) store.JobStore {
	if cfg.Jobs.Store == "redis" {
		return redisstore.New(rdb)
	}
	return memorystore.New()
}

// NewHandlerRegistry provides the name -> Handler registry. Individual
// handlers register themselves against it at startup (see cmd/worker).
func NewHandlerRegistry() *handler.Registry {
	return handler.NewRegistry()
}

// NewJobManager provides the JobManager every transport (HTTP submission,
// the producer, the consumer) goes through.
func NewJobManager(s store.JobStore, c clock.Clock, log *logger.Logger, cfg *config.AppConfig) *manager.Manager {
	return manager.New(s, c, log,
		manager.WithRetryDelayBase(cfg.Jobs.RetryDelayBase()),
		manager.WithDefaultMaxRetries(cfg.Jobs.DefaultMaxRetries),
	)
}

// NewBackgroundService provides the producer/consumer pipeline that turns
// claimed jobs into handler executions.
func NewBackgroundService(m *manager.Manager, registry *handler.Registry, metrics runtime.Metrics, tracer runtime.Tracer, log *logger.Logger, cfg *config.AppConfig) *runtime.Service {
	return runtime.New(m, registry, metrics, tracer, log, runtime.Config{
		MaximumConcurrency: cfg.Jobs.MaximumConcurrency,
		MaximumQueueSize:   cfg.Jobs.MaximumQueueSize,
		PollingInterval:    cfg.Jobs.PollingInterval(),
		ErrorBackoff:       cfg.Jobs.ErrorBackoff(),
		BatchSize:          cfg.Jobs.BatchSize,
		JobTimeout:         cfg.Jobs.JobTimeout(),
		ShutdownGrace:      cfg.Jobs.ShutdownGrace(),
	})
}

// NewRecoveryService provides the periodic scan that reclaims jobs left
// InProgress by a worker that crashed before reporting an outcome.
func NewRecoveryService(s store.JobStore, c clock.Clock, log *logger.Logger, cfg *config.AppConfig) *recovery.Service {
	return recovery.New(s, c, cfg.Jobs.RecoveryCheckInterval(), cfg.Jobs.JobTimeout(), log, cfg.Jobs.RetryDelayBase())
}

// InfrastructureLifecycle wires the fx lifecycle hooks for the components
// that own a background goroutine or a network connection: the Redis
// client, the tracer, and (when enabled) the distributed recovery scan.
func InfrastructureLifecycle(
	lc fx.Lifecycle,
	cfg *config.AppConfig,
	rdb redis.UniversalClient,
	tracingService *tracing.TracingService,
	recoveryService *recovery.Service,
	log *logger.Logger,
) {
	var cancelRecovery context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed at startup", zap.Error(err))
			}

			if cfg.Jobs.EnableDistributedJobRecovery {
				var recoveryCtx context.Context
				recoveryCtx, cancelRecovery = context.WithCancel(context.Background())
				go func() {
					if err := recoveryService.Run(recoveryCtx); err != nil && err != context.Canceled {
						log.Error("recovery service stopped with error", zap.Error(err))
					}
				}()
			}

			log.Info("infrastructure started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down infrastructure...")

			if cancelRecovery != nil {
				cancelRecovery()
			}

			if err := tracingService.Shutdown(ctx); err != nil {
				log.Error("failed to shutdown tracing", zap.Error(err))
			}

			if err := rdb.Close(); err != nil {
				log.Error("failed to close redis client", zap.Error(err))
			}

			log.Info("infrastructure shutdown complete")
			return nil
		},
	})
}
