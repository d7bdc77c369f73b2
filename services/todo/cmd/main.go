package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/crud-services/pkg/cache"
	"github.com/sakashimaa/crud-services/pkg/config"
	"github.com/sakashimaa/crud-services/pkg/db"
	"github.com/sakashimaa/crud-services/pkg/httpx"
	kafka2 "github.com/sakashimaa/crud-services/pkg/kafka"
	"github.com/sakashimaa/crud-services/pkg/metrics"
	"github.com/sakashimaa/crud-services/pkg/outbox/inbox"
	outbox "github.com/sakashimaa/crud-services/pkg/outbox/repository"
	"github.com/sakashimaa/crud-services/pkg/outbox/worker"
	"github.com/sakashimaa/crud-services/pkg/utils"
	"github.com/sakashimaa/crud-services/services/todo/internal/repository"
	"github.com/sakashimaa/crud-services/services/todo/internal/service"
	todoHttp "github.com/sakashimaa/crud-services/services/todo/internal/transport/http"
	todoKafka "github.com/sakashimaa/crud-services/services/todo/internal/transport/kafka"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.MustLoad("./config/todo.yaml")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, utils.TracerConfig{
		ServiceName: cfg.Service,
		Environment: cfg.Env,
		Endpoint:    cfg.Tracing.Endpoint,
		Enabled:     cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal("Error init tracer", zap.Error(err))
	}

	if cfg.Postgres.MigrationsPath != "" {
		if err := db.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
			logger.Fatal("Error applying migrations", zap.Error(err))
		}
	}

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("Error creating postgres pool", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	todoCache := cache.New(rdb, cfg.Redis.CacheTTL, logger)

	kafkaProducer, err := kafka2.NewProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		logger.Fatal("Error creating kafka producer", zap.Error(err))
	}

	todoRepository := repository.NewTodoRepository(pool, logger)
	outboxRepository := outbox.NewOutboxRepository(logger)
	todoService := service.NewTodoService(todoRepository, outboxRepository, pool, logger)
	cachedTodoService := service.NewCachedTodoService(todoService, todoCache)

	outboxProcessor := worker.NewOutboxProcessor(
		pool,
		outboxRepository,
		kafkaProducer,
		logger,
		worker.WithBatchSize(cfg.Outbox.BatchSize),
		worker.WithInterval(cfg.Outbox.Interval),
		worker.WithRetention(cfg.Outbox.Retention),
	)
	go outboxProcessor.Start(ctx)

	consumer := todoKafka.NewConsumer(todoCache, inbox.New(pool, cfg.Kafka.GroupID, logger), logger)
	go func() {
		if err := consumer.Start(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID); err != nil {
			logger.Error("Cache invalidation consumer stopped", zap.Error(err))
		}
	}()

	var appOpts []httpx.Option
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		appOpts = append(appOpts, httpx.WithMetrics(metrics.NewHTTPMetrics(reg, cfg.Service)))

		go metrics.Serve(ctx, cfg.Metrics.Addr, reg, logger)
	}

	app := httpx.NewApp(cfg.Service, cfg.Limiter, logger, appOpts...)
	todoHttp.RegisterRoutes(app, todoHttp.NewTodoHandler(cachedTodoService, cfg.HTTP.Timeout, logger))

	go func() {
		logger.Info("HTTP todo service listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			logger.Error("Error listening HTTP", zap.String("port", cfg.HTTP.Port), zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", zap.Error(err))
	}

	if err := kafkaProducer.Close(); err != nil {
		logger.Error("Error closing kafka producer", zap.Error(err))
	}

	if err := rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		logger.Error("Error closing redis client", zap.Error(err))
	}

	pool.Close()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping telemetry", zap.Error(err))
	}

	logger.Info("Todo service stopped")
}
