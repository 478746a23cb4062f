package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/swift-remit/internal/api"
	"github.com/ayo6706/swift-remit/internal/api/middleware"
	"github.com/ayo6706/swift-remit/internal/config"
	"github.com/ayo6706/swift-remit/internal/db"
	"github.com/ayo6706/swift-remit/internal/events"
	"github.com/ayo6706/swift-remit/internal/gateway"
	"github.com/ayo6706/swift-remit/internal/idempotency"
	"github.com/ayo6706/swift-remit/internal/observability"
	"github.com/ayo6706/swift-remit/internal/repository"
	"github.com/ayo6706/swift-remit/internal/service"
	"github.com/ayo6706/swift-remit/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server, settlement worker and reconciliation worker,
// blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, pool, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	var (
		redisCmd redis.Cmdable
		replay   middleware.ReplayStore
	)
	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		redisCmd = redisClient
	}
	if pool != nil {
		replay = idempotency.NewStore(redisCmd, pool, cfg.IdempotencyTTL)
	}

	publisher := NewPublisher(cfg, logger)
	defer publisher.Close()

	network := gateway.NewMockNetwork()
	network.SettleAfter = cfg.SettlementSettleAfter

	engine := service.NewTransitionEngine(store, publisher)
	settlementSvc := service.NewSettlementService(store, engine, network).
		WithBatchLimits(cfg.BatchMaxSize, cfg.BatchConcurrency)
	services := api.Services{
		Transactions: service.NewTransactionService(store),
		Verification: service.NewVerificationService(engine),
		Views:        service.NewViewService(store, service.NewInvoiceMaterializer()),
		Audit:        service.NewAuditService(store),
		Settlement:   settlementSvc,
		Webhooks:     service.NewWebhookService(store, settlementSvc, cfg.WebhookHMACKey, cfg.WebhookSkipSignature),
	}

	settlementWorker := worker.NewSettlementWorker(settlementSvc).
		WithPollInterval(cfg.SettlementPollInterval).
		WithBatchSize(cfg.SettlementPollBatch)
	stopSettlement := settlementWorker.Run(ctx)
	logger.Info("settlement worker started", zap.Duration("interval", cfg.SettlementPollInterval), zap.Int("batch", cfg.SettlementPollBatch))

	reconciliationWorker := worker.NewReconciliationWorker(service.NewReconciliationService(store)).
		WithInterval(cfg.ReconciliationInterval)
	stopReconciliation := reconciliationWorker.Run(ctx)
	logger.Info("reconciliation worker started", zap.Duration("interval", cfg.ReconciliationInterval))

	router := api.NewRouter(cfg, logger, store, replay, redisCmd, services)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.StoreDriver))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			stopSettlement()
			stopReconciliation()
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("stopping workers")
	stopSettlement()
	stopReconciliation()

	logger.Info("shutdown complete")
	return nil
}

// OpenStore opens the record store selected by cfg. The pool is nil for the memory
// driver. Migrations run first when enabled.
func OpenStore(ctx context.Context, cfg *config.Config) (service.TransactionStore, *pgxpool.Pool, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		zap.L().Warn("using in-memory record store; data is lost on restart")
		return repository.NewMemoryRepository(), nil, nil
	}

	if cfg.RunMigrations {
		if _, err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return repository.NewRepository(pool), pool, nil
}

// NewPublisher returns a Kafka publisher when brokers are configured and a no-op
// publisher otherwise.
func NewPublisher(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}
	}
	logger.Info("publishing lifecycle events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
}

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
