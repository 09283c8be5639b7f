package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"video-processing-service/internal/artifact"
	"video-processing-service/internal/config"
	"video-processing-service/internal/entity"
	"video-processing-service/internal/logging"
	"video-processing-service/internal/repository/postgresql"
)

// Records is the record store port (implementation: postgresql.JobRepository).
type Records interface {
	Claim(ctx context.Context, kind entity.MediaKind, id, ownerID, sourceFilename string) error
	MarkProcessed(ctx context.Context, kind entity.MediaKind, id string, outputs []entity.Output) error
	Release(ctx context.Context, kind entity.MediaKind, id string) error
}

// Artifacts moves files between the object store and scratch (implementation: artifact.Store).
type Artifacts interface {
	Download(ctx context.Context, bucket, name, localPath string) error
	Upload(ctx context.Context, localPath, bucket, name string) error
}

// Transformer runs the media tool (implementation: media.FFmpeg).
type Transformer interface {
	Transcode(ctx context.Context, in, out string, height int) error
	Resize(ctx context.Context, in, out string, width, height int) error
}

// Scratch resolves and removes local working files (implementation: artifact.Scratch).
type Scratch interface {
	Path(dir, name string) string
	DeleteLocal(path string) error
}

type PipelineConfig struct {
	Buckets         config.Buckets
	VideoHeights    []int
	ThumbnailWidth  int
	ThumbnailHeight int
	// Zero disables the per-job deadline.
	TransformTimeout time.Duration
	// When set, a failed job is returned to unset so the same upload can be submitted again.
	ReleaseClaimOnFailure bool
}

func PipelineConfigFrom(cfg *config.Config) PipelineConfig {
	return PipelineConfig{
		Buckets:               cfg.Buckets,
		VideoHeights:          cfg.VideoHeights,
		ThumbnailWidth:        cfg.ThumbnailWidth,
		ThumbnailHeight:       cfg.ThumbnailHeight,
		TransformTimeout:      cfg.TransformTimeout,
		ReleaseClaimOnFailure: cfg.ReleaseClaimOnFailure,
	}
}

// Result describes a finished job.
type Result struct {
	Kind    entity.MediaKind
	ID      string
	OwnerID string
	Outputs []entity.Output
}

// Pipeline takes one uploaded file from claim to processed record.
type Pipeline struct {
	records     Records
	artifacts   Artifacts
	transformer Transformer
	scratch     Scratch
	cfg         PipelineConfig
	log         *slog.Logger
}

func NewPipeline(records Records, artifacts Artifacts, transformer Transformer, scratch Scratch, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if len(cfg.VideoHeights) == 0 {
		cfg.VideoHeights = []int{360, 720}
	}
	if cfg.ThumbnailWidth <= 0 || cfg.ThumbnailHeight <= 0 {
		cfg.ThumbnailWidth, cfg.ThumbnailHeight = 1280, 720
	}
	return &Pipeline{
		records:     records,
		artifacts:   artifacts,
		transformer: transformer,
		scratch:     scratch,
		cfg:         cfg,
		log:         logging.WithComponent(logger, "pipeline"),
	}
}

// Process dispatches on kind.
func (p *Pipeline) Process(ctx context.Context, kind entity.MediaKind, ev Event) (*Result, error) {
	switch kind {
	case entity.KindVideo:
		return p.ProcessVideo(ctx, ev)
	case entity.KindThumbnail:
		return p.ProcessThumbnail(ctx, ev)
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
}

// VideoOutputName is processed-<id>_<label><ext>.
func VideoOutputName(id string, height int, ext string) string {
	return "processed-" + id + "_" + ResolutionLabel(height) + ext
}

func ResolutionLabel(height int) string {
	return strconv.Itoa(height) + "p"
}

// ThumbnailOutputName is processed-<upload name>.
func ThumbnailOutputName(name string) string {
	return "processed-" + name
}

type outputFile struct {
	height int
	out    entity.Output
	path   string
}

// ProcessVideo transcodes the upload once per configured height.
func (p *Pipeline) ProcessVideo(ctx context.Context, ev Event) (*Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	name := ev.Name
	id := entity.JobID(name)
	owner := entity.OwnerID(entity.KindVideo, id)

	logger := p.log.With("kind", entity.KindVideo, "job_id", id, "source", name)
	ctx = logging.IntoContext(ctx, logger)

	if err := p.claim(ctx, entity.KindVideo, id, owner, name); err != nil {
		logger.Info("job rejected", "error", err)
		return nil, err
	}
	start := time.Now()
	logger.Info("job claimed", "status", entity.StatusProcessing)

	ext := filepath.Ext(name)
	rawPath := p.scratch.Path(artifact.DirRawVideos, name)
	files := make([]outputFile, 0, len(p.cfg.VideoHeights))
	for _, h := range p.cfg.VideoHeights {
		fname := VideoOutputName(id, h, ext)
		files = append(files, outputFile{
			height: h,
			out:    entity.Output{ResolutionLabel: ResolutionLabel(h), Filename: fname},
			path:   p.scratch.Path(artifact.DirProcessedVideos, fname),
		})
	}

	paths := []string{rawPath}
	for _, f := range files {
		paths = append(paths, f.path)
	}
	defer p.cleanup(logger, paths)

	err := p.withTimeout(ctx, func(ctx context.Context) error {
		if err := p.artifacts.Download(ctx, p.cfg.Buckets.RawVideo, name, rawPath); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, f := range files {
			f := f
			g.Go(func() error {
				return p.transformer.Transcode(gctx, rawPath, f.path, f.height)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		g, gctx = errgroup.WithContext(ctx)
		for _, f := range files {
			f := f
			g.Go(func() error {
				return p.artifacts.Upload(gctx, f.path, p.cfg.Buckets.ProcessedVideo, f.out.Filename)
			})
		}
		return g.Wait()
	})

	outputs := make([]entity.Output, 0, len(files))
	for _, f := range files {
		outputs = append(outputs, f.out)
	}
	return p.finish(ctx, logger, entity.KindVideo, id, owner, outputs, start, err)
}

// ProcessThumbnail resizes and crops the upload to the configured box.
func (p *Pipeline) ProcessThumbnail(ctx context.Context, ev Event) (*Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	name := ev.Name
	id := entity.JobID(name)
	owner := entity.OwnerID(entity.KindThumbnail, id)

	logger := p.log.With("kind", entity.KindThumbnail, "job_id", id, "source", name)
	ctx = logging.IntoContext(ctx, logger)

	if err := p.claim(ctx, entity.KindThumbnail, id, owner, name); err != nil {
		logger.Info("job rejected", "error", err)
		return nil, err
	}
	start := time.Now()
	logger.Info("job claimed", "status", entity.StatusProcessing)

	outName := ThumbnailOutputName(name)
	rawPath := p.scratch.Path(artifact.DirRawThumbnails, name)
	outPath := p.scratch.Path(artifact.DirProcessedThumbnails, outName)
	defer p.cleanup(logger, []string{rawPath, outPath})

	err := p.withTimeout(ctx, func(ctx context.Context) error {
		if err := p.artifacts.Download(ctx, p.cfg.Buckets.RawThumbnail, name, rawPath); err != nil {
			return err
		}
		if err := p.transformer.Resize(ctx, rawPath, outPath, p.cfg.ThumbnailWidth, p.cfg.ThumbnailHeight); err != nil {
			return err
		}
		return p.artifacts.Upload(ctx, outPath, p.cfg.Buckets.ProcessedThumbnail, outName)
	})

	outputs := []entity.Output{{ResolutionLabel: "thumbnail", Filename: outName}}
	return p.finish(ctx, logger, entity.KindThumbnail, id, owner, outputs, start, err)
}

func (p *Pipeline) claim(ctx context.Context, kind entity.MediaKind, id, owner, name string) error {
	err := p.records.Claim(ctx, kind, id, owner, name)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, postgresql.ErrAlreadyClaimed):
		return &DuplicateJobError{Kind: kind, ID: id}
	default:
		return &RecordStoreError{Op: "claim", Err: err}
	}
}

func (p *Pipeline) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if p.cfg.TransformTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.TransformTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// finish records the outputs, or aborts the job when work failed.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, kind entity.MediaKind, id, owner string, outputs []entity.Output, start time.Time, workErr error) (*Result, error) {
	if workErr != nil {
		p.abort(ctx, logger, kind, id, start, workErr)
		return nil, workErr
	}

	if err := p.records.MarkProcessed(ctx, kind, id, outputs); err != nil {
		err = &RecordStoreError{Op: "mark-processed", Err: err}
		p.abort(ctx, logger, kind, id, start, err)
		return nil, err
	}

	logger.Info("job finished",
		"status", entity.StatusProcessed,
		"outputs", len(outputs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Result{Kind: kind, ID: id, OwnerID: owner, Outputs: outputs}, nil
}

func (p *Pipeline) abort(ctx context.Context, logger *slog.Logger, kind entity.MediaKind, id string, start time.Time, cause error) {
	logger.Error("job failed",
		"error", cause,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if !p.cfg.ReleaseClaimOnFailure {
		return
	}
	// the request context may already be cancelled; the release must still run
	if err := p.records.Release(context.WithoutCancel(ctx), kind, id); err != nil {
		logger.Warn("release claim", "error", err)
		return
	}
	logger.Info("claim released", "status", entity.StatusUnset)
}

// cleanup removes every scratch file of the job. Failures are logged only.
func (p *Pipeline) cleanup(logger *slog.Logger, paths []string) {
	for _, path := range paths {
		if err := p.scratch.DeleteLocal(path); err != nil {
			logger.Warn("delete scratch file", "path", path, "error", err)
		}
	}
}
