package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"video-processing-service/internal/logging"
	"video-processing-service/internal/service"
)

type Pool struct {
	queue      service.Queue
	processor  *Processor
	workers    int
	claimDelay time.Duration
	errBackoff time.Duration
	log        *slog.Logger
}

func NewPool(queue service.Queue, processor *Processor, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{
		queue:      queue,
		processor:  processor,
		workers:    workers,
		claimDelay: 5 * time.Second,
		errBackoff: time.Second,
		log:        logging.WithComponent(logger, "worker"),
	}
}

// Run claims deliveries until ctx is cancelled, then waits for in-flight jobs.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info("worker pool started", "workers", p.workers)

	deliveries := make(chan service.Delivery)
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for d := range deliveries {
				// A started job runs to completion on shutdown; TRANSFORM_TIMEOUT bounds it.
				jobCtx := context.WithoutCancel(ctx)
				if err := p.processor.Process(jobCtx, d); err != nil {
					p.log.Warn("process delivery", "worker", n, "delivery_id", d.ID, "error", err)
				}

				// Always ack: the record already says processing/processed, so a
				// redelivery would only be rejected as a duplicate. If the process
				// dies before this point the reaper returns the entry to the queue.
				if err := p.queue.Ack(jobCtx, d); err != nil {
					p.log.Error("ack delivery", "worker", n, "delivery_id", d.ID, "error", err)
				}
			}
		}(i + 1)
	}

	defer func() {
		close(deliveries)
		wg.Wait()
		p.log.Info("worker pool stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		d, err := p.queue.ClaimBlocking(ctx, p.claimDelay)
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.log.Warn("claim delivery", "error", err)
			select {
			case <-time.After(p.errBackoff):
			case <-ctx.Done():
			}
			continue
		}

		select {
		case deliveries <- d:
		case <-ctx.Done():
			// claimed but not started; leave it in processing for the reaper
			return
		}
	}
}

// RunReaper periodically moves entries claimed more than staleAfter ago back to their queue.
func RunReaper(ctx context.Context, queue service.Queue, interval, staleAfter time.Duration, maxPerLane int64, logger *slog.Logger) {
	logger = logging.WithComponent(logger, "reaper")
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := queue.RequeueStale(ctx, staleAfter, maxPerLane)
			if err != nil {
				logger.Warn("requeue stale", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("requeued deliveries", "count", n)
			}
		}
	}
}
