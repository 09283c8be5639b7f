package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"video-processing-service/internal/entity"
	"video-processing-service/internal/logging"
	"video-processing-service/internal/service"
)

// Pipeline runs one job (implementation: service.Pipeline).
type Pipeline interface {
	Process(ctx context.Context, kind entity.MediaKind, ev service.Event) (*service.Result, error)
}

type Processor struct {
	pipeline Pipeline
	log      *slog.Logger
}

func NewProcessor(pipeline Pipeline, logger *slog.Logger) *Processor {
	return &Processor{pipeline: pipeline, log: logging.WithComponent(logger, "worker")}
}

// Process runs a delivery through the pipeline. Invalid and duplicate events
// are logged and reported as handled; any other failure is returned.
func (p *Processor) Process(ctx context.Context, d service.Delivery) error {
	start := time.Now()
	logger := p.log.With("delivery_id", d.ID, "kind", d.Kind)

	ev, err := service.DecodeEventData(d.Data)
	if err != nil {
		logger.Warn("drop delivery", "reason", err)
		return nil
	}

	res, err := p.pipeline.Process(ctx, d.Kind, ev)
	var (
		ve  *service.ValidationError
		dup *service.DuplicateJobError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &dup):
		logger.Info("drop delivery", "source", ev.Name, "reason", err)
		return nil
	case err != nil:
		logger.Error("delivery failed",
			"source", ev.Name,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}

	logger.Info("delivery done",
		"job_id", res.ID,
		"outputs", len(res.Outputs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
