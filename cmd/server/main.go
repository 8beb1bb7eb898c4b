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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/clienttx/internal/adapter/http"
	"github.com/iho/clienttx/internal/adapter/http/handler"
	"github.com/iho/clienttx/internal/adapter/http/middleware"
	"github.com/iho/clienttx/internal/adapter/repository/memory"
	redisRepo "github.com/iho/clienttx/internal/adapter/repository/redis"
	"github.com/iho/clienttx/internal/infrastructure/config"
	"github.com/iho/clienttx/internal/infrastructure/eventpublisher"
	"github.com/iho/clienttx/internal/infrastructure/idgen"
	"github.com/iho/clienttx/internal/infrastructure/logger"
	"github.com/iho/clienttx/internal/infrastructure/metrics"
	"github.com/iho/clienttx/internal/infrastructure/redis"
	"github.com/iho/clienttx/internal/infrastructure/retry"
	"github.com/iho/clienttx/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, prometheus.DefaultRegisterer, promhttp.Handler()); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// app bundles the wired components of the server.
type app struct {
	handler     http.Handler
	publisher   *eventpublisher.EventPublisher
	rateLimiter *middleware.RateLimiter
	redisClient *goredis.Client
}

func (a *app) Close() error {
	if a.redisClient != nil {
		return a.redisClient.Close()
	}
	return nil
}

// buildApp wires repositories, use cases and transports from cfg.
func buildApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer, metricsHandler http.Handler) (*app, error) {
	m := metrics.New(reg)
	retrier := retry.New(retry.Config{}, log)

	// Initialize repositories
	ctRepo := memory.NewClientTransactionRepository()
	outboxRepo := memory.NewOutboxRepository()
	idGen := idgen.NewULIDGenerator()

	// Initialize use cases
	ctUC := usecase.NewClientTransactionUseCase(ctRepo, outboxRepo, idGen, log, m)

	a := &app{}

	var (
		idempotencyStore usecase.IdempotencyStore
		publisher        eventpublisher.Publisher = eventpublisher.NewLogPublisher(log)
	)

	// Connect to Redis (optional)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL, retrier)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redisClient = client
		idempotencyStore = redisRepo.NewIdempotencyStore(client, m)
		publisher = eventpublisher.NewRedisStreamPublisher(client, eventpublisher.DefaultStream, 0)
		log.Info().Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_URL not set, idempotency keys disabled and events only logged")
	}

	a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Logger:     log,
		Metrics:    m,
		Retrier:    retrier,
		BatchSize:  cfg.PublisherBatchSize,
		Interval:   cfg.PublisherInterval,
		Retention:  cfg.PublisherRetention,
	})

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	}

	// Create router
	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		ClientTransactionHandler: handler.NewClientTransactionHandler(ctUC),
		HealthHandler:            handler.NewHealthHandler(a.redisClient),
		IdempotencyStore:         idempotencyStore,
		IdempotencyTTL:           cfg.IdempotencyTTL,
		RateLimiter:              a.rateLimiter,
		Logger:                   log,
		Metrics:                  m,
		MetricsHandler:           metricsHandler,
		CORSAllowedOrigins:       cfg.CORSAllowedOrigins,
	})

	return a, nil
}

// run serves HTTP until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer, metricsHandler http.Handler) error {
	a, err := buildApp(ctx, cfg, log, reg, metricsHandler)
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
		go cleanupLimiters(workerCtx, a.rateLimiter, log)
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
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

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Flush events accepted before shutdown.
	cancelWorkers()
	if n, err := a.publisher.Drain(shutdownCtx); err != nil {
		log.Error().Err(err).Int("published", n).Msg("failed to drain outbox")
	}

	log.Info().Msg("server stopped")
	return nil
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.CleanupLimiters(limiterIdleTimeout); n > 0 {
				log.Debug().Int("removed", n).Msg("cleaned up idle rate limiters")
			}
		}
	}
}
