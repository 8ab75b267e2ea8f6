package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/config"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/handler"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/infra/postgresql"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/infra/postgresql/migrations"
	infraredis "github.com/Gattoajatooo/back-sparta-sub007/internal/infra/redis"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/observability"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/payload"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/provider"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/queue"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/repository"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/service"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to read .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, postgresql.PoolOptions{})
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	publisher, err := newPublisher(ctx, cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer publisher.Close()

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.JobQueueRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}
	rateLimiter.OnThrottle(metrics.IncThrottled)

	tagCatalog, err := infraredis.NewCachedTagCatalog(rdb, repository.NewGormTagRepo(db), cfg.TagCacheTTL(), logger)
	if err != nil {
		logger.Fatal("tag catalog cache initialization failed", zap.Error(err))
	}
	tagCatalog.OnLookup(metrics.IncTagCacheLookup)

	approvalLock, err := infraredis.NewApprovalLock(rdb, cfg.ApprovalLockTTL())
	if err != nil {
		logger.Fatal("approval lock initialization failed", zap.Error(err))
	}

	jobQueue, err := provider.NewJobQueueClient(cfg.SchedulerURL, cfg.SchedulerToken, cfg.JobQueueTimeout())
	if err != nil {
		logger.Fatal("job queue client initialization failed", zap.Error(err))
	}

	contacts := repository.NewGormContactRepo(db)
	messages := repository.NewGormMessageRepo(db)

	resolver, err := service.NewAudienceResolver(contacts, tagCatalog, messages, logger)
	if err != nil {
		logger.Fatal("audience resolver initialization failed", zap.Error(err))
	}
	gateway, err := service.NewDispatchGateway(jobQueue, rateLimiter, cfg.DispatchChunkSize, logger, metrics)
	if err != nil {
		logger.Fatal("dispatch gateway initialization failed", zap.Error(err))
	}
	reconciler, err := service.NewReconciler(messages, cfg.PersistChunkSize, logger, metrics)
	if err != nil {
		logger.Fatal("reconciler initialization failed", zap.Error(err))
	}

	approvals, err := service.NewApprovalService(service.ApprovalDependencies{
		Batches:    repository.NewGormBatchRepo(db),
		Campaigns:  repository.NewGormCampaignRepo(db),
		Templates:  repository.NewGormTemplateRepo(db),
		Contacts:   contacts,
		Companies:  repository.NewGormCompanyRepo(db),
		Users:      repository.NewGormUserRepo(db),
		Resolver:   resolver,
		Builder:    payload.NewBuilder(cfg.ChatIDSuffix, nil),
		Gateway:    gateway,
		Reconciler: reconciler,
		Locker:     approvalLock,
		Publisher:  publisher,
	}, logger, metrics)
	if err != nil {
		logger.Fatal("approval service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, handler.PostgresCheck(sqlDB), handler.RedisCheck(rdb))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	v1 := app.Group("/v1", handler.RequireCaller())
	if err := handler.RegisterApprovalRoutes(v1, approvals, cfg.RequestTimeout()); err != nil {
		logger.Fatal("approval routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterContactRoutes(v1, resolver, cfg.ResolveMaxLimit, cfg.RequestTimeout()); err != nil {
		logger.Fatal("contact routes registration failed", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()
	logger.Info("campaign-dispatch api started", zap.Int("port", cfg.APIPort))

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("http server shutdown failed", zap.Error(err))
		}
	}
}

func newPublisher(ctx context.Context, url string, logger *zap.Logger) (queue.Publisher, error) {
	if url == "" {
		logger.Info("RABBITMQ_URL not set, batch lifecycle events are disabled")
		return queue.NoopPublisher{}, nil
	}

	client, err := queue.NewRabbitMQ(ctx, url)
	if err != nil {
		return nil, err
	}
	return queue.NewRabbitMQPublisher(client), nil
}
