package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/port"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/config"
	kafkainfra "github.com/nithishkumarsaravanan/927622BAL034/internal/infra/kafka"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/logger"
	redisinfra "github.com/nithishkumarsaravanan/927622BAL034/internal/infra/redis"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/telemetry"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/upstream"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/repository/memory"
	redisrepo "github.com/nithishkumarsaravanan/927622BAL034/internal/repository/redis"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/transport/http/middleware"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/transport/http/routes"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env, cfg.App.Name)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	application := &Application{cfg: cfg, logger: log, tracer: tracer}

	registry, err := domain.NewCategoryRegistry(cfg.Upstream.Resources)
	if err != nil {
		return application.abort(fmt.Errorf("init categories: %w", err))
	}

	windowMetrics, err := telemetry.NewWindowMetrics(telemetry.WindowMetricsOptions{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		return application.abort(fmt.Errorf("init window metrics: %w", err))
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		return application.abort(fmt.Errorf("init http metrics: %w", err))
	}

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			application.producer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var (
		rateLimiter *middleware.RateLimiter
		cache       routes.CacheChecker
	)
	if cfg.Redis.Enabled {
		redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return application.abort(fmt.Errorf("init redis: %w", err))
		}
		application.redis = redisClient
		cache = redisClient

		window := cfg.RateLimit.WindowDuration
		if window <= 0 {
			window = time.Minute
		}
		rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: cfg.RateLimit.KeyPrefix,
			TTL:       window * 2,
		})
		rateLimiter = middleware.NewRateLimiter(rateLimitStore, log)
	} else {
		log.Info("redis disabled, numbers endpoint is not rate limited")
	}

	source := upstream.NewClient(cfg.Upstream, registry, log)
	store := memory.NewWindowStore(cfg.Window.Capacity, registry.Categories())

	numbersService := usecase.NewNumbersService(registry, source, store, usecase.NumbersOptions{
		FetchTimeout: cfg.Upstream.Timeout,
		Policy:       domain.NewDegradationPolicy(domain.ParseDegradationPolicyMode(cfg.Upstream.DegradationPolicy)),
	}).
		WithLogger(log).
		WithEvents(eventPublisher).
		WithMetrics(windowMetrics)
	numbersService.RefreshWindowMetrics()

	application.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Numbers:     numbersService,
		RateLimiter: rateLimiter,
		HTTPMetrics: httpMetrics,
		Cache:       cache,
	})

	log.Info("average calculator configured",
		zap.Int("window_capacity", store.Capacity()),
		zap.Duration("upstream_timeout", cfg.Upstream.Timeout),
		zap.String("degradation_policy", cfg.Upstream.DegradationPolicy),
		zap.String("upstream_token", logger.MaskToken(cfg.Upstream.Token)),
	)

	return application, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.closeInfra()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting average calculator API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		a.logger.Info("average calculator API stopped")
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// abort releases whatever New managed to open before failing.
func (a *Application) abort(err error) (*Application, error) {
	a.closeInfra()
	return nil, err
}

func (a *Application) closeInfra() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
		a.producer = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
		a.redis = nil
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
		a.tracer = nil
	}
}
