// cmd/processor/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"

	_ "video-processing-service/docs"
	"video-processing-service/internal/artifact"
	"video-processing-service/internal/config"
	"video-processing-service/internal/logging"
	"video-processing-service/internal/media"
	"video-processing-service/internal/repository/postgresql"
	"video-processing-service/internal/service"
	httptransport "video-processing-service/internal/transport/http"
)

// @title Video Processing Service API
// @version 1.0
// @description Processes uploaded videos and thumbnails and serves their records.
// @BasePath /
func main() {
	if err := run(); err != nil {
		slog.Error("processor stopped", "error", err)
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
	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("config",
		"http_addr", cfg.HTTPAddr,
		"postgres_dsn", config.RedactDSN(cfg.PostgresDSN),
		"redis_addr", cfg.RedisAddr,
		"scratch_root", cfg.ScratchRoot,
		"video_heights", cfg.VideoHeights,
		"release_claim_on_failure", cfg.ReleaseClaimOnFailure,
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

	// Object storage
	gcs, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("gcs: %w", err)
	}
	defer gcs.Close()
	store := artifact.NewStore(artifact.NewGCSClient(gcs), logger)

	scratch := artifact.NewScratch(cfg.ScratchRoot)
	if err := scratch.Setup(); err != nil {
		return err
	}

	ffmpeg := media.New(cfg.FFmpegBin, logger)
	if err := ffmpeg.Check(); err != nil {
		return err
	}

	// Redis is optional here; without it POST /jobs/{kind} answers 503
	var queue service.JobQueue
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		queue = service.NewRedisQueue(rdb, cfg.QueuePrefix)
	}

	// DI
	pipeline := service.NewPipeline(repo, store, ffmpeg, scratch, service.PipelineConfigFrom(cfg), logger)
	jobSvc := service.NewJobService(repo, store, queue, cfg.Buckets, cfg.SignedURLTTL)
	handler := httptransport.NewHandler(pipeline, jobSvc, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httptransport.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// in-flight jobs get a grace period to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
