// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"

	"video-processing-service/internal/artifact"
	"video-processing-service/internal/config"
	"video-processing-service/internal/logging"
	"video-processing-service/internal/media"
	"video-processing-service/internal/repository/postgresql"
	"video-processing-service/internal/service"
	"video-processing-service/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.RedisAddr == "" {
		return errors.New("missing env: REDIS_ADDR")
	}
	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("config",
		"workers", cfg.Workers,
		"redis_addr", cfg.RedisAddr,
		"queue_prefix", cfg.QueuePrefix,
		"postgres_dsn", config.RedactDSN(cfg.PostgresDSN),
	)

	// Postgres
	pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("pg: %w", err)
	}
	defer pool.Close()

	repo := postgresql.NewJobRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("pg schema: %w", err)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	// Object storage
	gcs, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("gcs: %w", err)
	}
	defer gcs.Close()

	scratch := artifact.NewScratch(cfg.ScratchRoot)
	if err := scratch.Setup(); err != nil {
		return err
	}

	ffmpeg := media.New(cfg.FFmpegBin, logger)
	if err := ffmpeg.Check(); err != nil {
		return err
	}

	// DI
	queue := service.NewRedisQueue(rdb, cfg.QueuePrefix)
	pipeline := service.NewPipeline(
		repo,
		artifact.NewStore(artifact.NewGCSClient(gcs), logger),
		ffmpeg,
		scratch,
		service.PipelineConfigFrom(cfg),
		logger,
	)

	// returns entries from processing to the queue if a worker died mid-job
	go worker.RunReaper(ctx, queue, 30*time.Second, cfg.ReaperStaleAfter, 100, logger)

	processor := worker.NewProcessor(pipeline, logger)
	worker.NewPool(queue, processor, cfg.Workers, logger).Run(ctx)

	logger.Info("worker stopped")
	return nil
}
