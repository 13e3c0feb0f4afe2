package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/altradar/signals/internal/adapters/clickhouse"
	"github.com/altradar/signals/internal/adapters/config"
	"github.com/altradar/signals/internal/adapters/database"
	"github.com/altradar/signals/internal/adapters/market"
	redisAdapter "github.com/altradar/signals/internal/adapters/redis"
	"github.com/altradar/signals/internal/engine"
	"github.com/altradar/signals/internal/health"
	"github.com/altradar/signals/internal/indicators"
	"github.com/altradar/signals/internal/learning"
	"github.com/altradar/signals/internal/sentiment"
	"github.com/altradar/signals/internal/workers"
	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/worker"
)

const (
	healthPort      = "8080"
	shutdownTimeout = 30 * time.Second
	migrationsPath  = "./migrations"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("signal engine starting",
		zap.Strings("assets", cfg.Engine.Assets),
		zap.String("timeframe", cfg.Engine.Timeframe),
	)

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db.Conn(), migrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	chDB, err := database.NewClickHouse(cfg.ClickHouse.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	defer chDB.Close()

	logger.Info("ClickHouse connection established",
		zap.String("host", cfg.ClickHouse.Host),
		zap.String("database", cfg.ClickHouse.Database),
	)

	redisClient, err := redisAdapter.New(&cfg.Redis)
	if err != nil {
		// Without Redis a single instance still works; the learning worker
		// just runs unserialized.
		logger.Warn("redis unavailable, learning lock disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	marketRepo := market.NewRepository(chDB.DB())
	signalRepo := engine.NewRepository(db.DB())
	learningRepo := learning.NewPostgresRepository(db.DB())

	weightStore, err := learning.NewStore(ctx, indicators.DefaultWeights(), learningRepo)
	if err != nil {
		return fmt.Errorf("failed to initialize weight store: %w", err)
	}
	learningLoop := learning.NewLoop(weightStore)

	eng := engine.NewEngine(engine.Config{
		Timeframe:      cfg.Engine.Timeframe,
		LongTimeframe:  cfg.Engine.LongTimeframe,
		CandleLimit:    cfg.Engine.CandleLimit,
		ReferenceAsset: cfg.Engine.ReferenceAsset,
		PivotWindow:    cfg.Engine.PivotWindow,
	}, marketRepo, weightStore, signalRepo)

	if redisClient != nil {
		eng.WithSentiment(sentiment.NewProvider(redisClient))
	}

	learningWorker := workers.NewLearningWorker(learningLoop, learningRepo, signalRepo, learningLock(redisClient, cfg))

	if cfg.ClickHouse.Enabled {
		chRepo := clickhouse.NewRepository(chDB.DB())
		signalWriter := clickhouse.NewSignalBatchWriter(chRepo, 1000, 10*time.Second)
		cycleWriter := clickhouse.NewCycleBatchWriter(chRepo, 100, 10*time.Second)
		defer signalWriter.Close()
		defer cycleWriter.Close()

		eng.WithAudit(signalWriter)
		learningWorker.WithAudit(cycleWriter)
		logger.Info("ClickHouse audit mirror enabled")
	}

	group := worker.NewGroup(ctx)
	group.Add(workers.NewSignalWorker(eng, cfg.Engine.Assets), cfg.Engine.Interval)
	group.Add(workers.NewOutcomeWorker(signalRepo, marketRepo, eng, cfg.Engine.Timeframe), cfg.Engine.OutcomeInterval)
	group.Add(learningWorker, cfg.Learning.Interval)
	group.Start()

	healthServer := startHealthServer(db, chDB, redisClient)
	healthServer.SetReady(true)

	logger.Info("signal engine started")

	<-ctx.Done()

	logger.Info("shutdown signal received, stopping workers")
	healthServer.SetReady(false)
	group.Stop(shutdownTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}

	logger.Info("signal engine stopped")
	return nil
}

// learningLock builds the distributed lock guarding weight mutations, nil
// when Redis is unavailable.
func learningLock(client *redisAdapter.Client, cfg *config.Config) redisAdapter.Lock {
	if client == nil {
		return nil
	}
	return client.NewLock("learning", cfg.Learning.LockTTL)
}

func startHealthServer(db, chDB *database.DB, redisClient *redisAdapter.Client) *health.Server {
	checks := map[string]health.Checker{
		"database":   db,
		"clickhouse": chDB,
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	server := health.NewServer(healthPort, checks)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("health server failed", zap.Error(err))
		}
	}()

	return server
}
