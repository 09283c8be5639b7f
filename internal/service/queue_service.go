package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"video-processing-service/internal/entity"
)

// Envelope is one queued trigger event. Data is the same base64 text a push body carries.
type Envelope struct {
	ID       string           `json:"id"`
	Kind     entity.MediaKind `json:"kind"`
	Data     string           `json:"data"`
	Enqueued time.Time        `json:"enqueued"`
}

func NewEnvelope(kind entity.MediaKind, data string) Envelope {
	return Envelope{
		ID:       uuid.NewString(),
		Kind:     kind,
		Data:     data,
		Enqueued: time.Now().UTC(),
	}
}

// Delivery is a claimed envelope plus the exact list value needed to ack it.
type Delivery struct {
	Envelope
	Raw string
}

type Queue interface {
	Enqueue(ctx context.Context, env Envelope) error
	ClaimBlocking(ctx context.Context, timeout time.Duration) (Delivery, error)
	Ack(ctx context.Context, d Delivery) error
	RequeueStale(ctx context.Context, olderThan time.Duration, maxPerLane int64) (int64, error)
}

type Lane struct {
	QueueKey      string
	ProcessingKey string
}

// LanesFor derives the per-kind lane keys from a prefix, e.g. media:queue:video / media:queue:video:processing.
func LanesFor(prefix string) map[entity.MediaKind]Lane {
	lanes := make(map[entity.MediaKind]Lane, 2)
	for _, k := range []entity.MediaKind{entity.KindVideo, entity.KindThumbnail} {
		lanes[k] = Lane{
			QueueKey:      prefix + ":" + string(k),
			ProcessingKey: prefix + ":" + string(k) + ":processing",
		}
	}
	return lanes
}

// redisQueue implements a reliable queue with one Redis list per media kind.
// Claim: BRPOPLPUSH lane.queue -> lane.processing
// Ack:   LREM from the processing list recorded in processingMapKey
// Claim times live in claimedAtKey so the reaper only touches entries older than its threshold.
type redisQueue struct {
	rdb              *redis.Client
	processingMapKey string
	claimedAtKey     string

	lanes map[entity.MediaKind]Lane
	// claim order; thumbnails first since they finish fast
	order []entity.MediaKind
}

func NewRedisQueue(rdb *redis.Client, prefix string) Queue {
	return &redisQueue{
		rdb:              rdb,
		processingMapKey: prefix + ":processing-map",
		claimedAtKey:     prefix + ":claimed-at",
		lanes:            LanesFor(prefix),
		order:            []entity.MediaKind{entity.KindThumbnail, entity.KindVideo},
	}
}

func (q *redisQueue) Enqueue(ctx context.Context, env Envelope) error {
	ln, ok := q.lanes[env.Kind]
	if !ok {
		return fmt.Errorf("no lane for kind %q", env.Kind)
	}
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, ln.QueueKey, b).Err()
}

// ClaimBlocking polls each lane with short blocking slots until something
// arrives or timeout passes. timeout <= 0 waits forever.
func (q *redisQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (Delivery, error) {
	forever := timeout <= 0
	deadline := time.Now().Add(timeout)

	slot := 1 * time.Second
	if !forever && timeout < slot {
		slot = timeout
	}

	for {
		if err := ctx.Err(); err != nil {
			return Delivery{}, err
		}
		if !forever && time.Now().After(deadline) {
			return Delivery{}, redis.Nil
		}

		for _, kind := range q.order {
			ln := q.lanes[kind]
			wait := slot
			if !forever {
				remain := time.Until(deadline)
				if remain <= 0 {
					return Delivery{}, redis.Nil
				}
				if remain < wait {
					wait = remain
				}
			}

			raw, err := q.rdb.BRPopLPush(ctx, ln.QueueKey, ln.ProcessingKey, wait).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return Delivery{}, err
			}

			d := Delivery{Raw: raw}
			if err := json.Unmarshal([]byte(raw), &d.Envelope); err != nil || d.ID == "" {
				// unreadable entries are dropped so they do not circle through the reaper forever
				_ = q.rdb.LRem(ctx, ln.ProcessingKey, 1, raw).Err()
				return Delivery{}, fmt.Errorf("drop malformed envelope in %s: %q", ln.QueueKey, raw)
			}
			d.Kind = kind

			// remember which processing list holds this entry (for Ack) and when it was claimed
			pipe := q.rdb.TxPipeline()
			pipe.HSet(ctx, q.processingMapKey, d.ID, ln.ProcessingKey)
			pipe.HSet(ctx, q.claimedAtKey, d.ID, time.Now().UnixMilli())
			if _, err := pipe.Exec(ctx); err != nil {
				return Delivery{}, err
			}
			return d, nil
		}
	}
}

func (q *redisQueue) Ack(ctx context.Context, d Delivery) error {
	processingKey, err := q.rdb.HGet(ctx, q.processingMapKey, d.ID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// mapping lost (requeued by the reaper meanwhile); try every processing list
			for _, ln := range q.lanes {
				_ = q.rdb.LRem(ctx, ln.ProcessingKey, 1, d.Raw).Err()
			}
			_ = q.rdb.HDel(ctx, q.claimedAtKey, d.ID).Err()
			return nil
		}
		return err
	}

	if err := q.rdb.LRem(ctx, processingKey, 1, d.Raw).Err(); err != nil {
		return err
	}
	q.forget(ctx, d.ID)
	return nil
}

func (q *redisQueue) forget(ctx context.Context, id string) {
	_ = q.rdb.HDel(ctx, q.processingMapKey, id).Err()
	_ = q.rdb.HDel(ctx, q.claimedAtKey, id).Err()
}

// requeueScript moves one value from processing back to its queue only if it
// is still in processing, so an entry acked meanwhile is not redelivered.
var requeueScript = redis.NewScript(`
local n = redis.call('LREM', KEYS[1], 1, ARGV[1])
if n > 0 then
	redis.call('LPUSH', KEYS[2], ARGV[1])
end
return n
`)

// RequeueStale moves entries claimed more than olderThan ago from processing
// back to their queue. It inspects at most maxPerLane of the oldest entries per lane.
// Delivery is at-least-once; a repeated event is rejected by the record claim.
func (q *redisQueue) RequeueStale(ctx context.Context, olderThan time.Duration, maxPerLane int64) (int64, error) {
	if maxPerLane <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	var moved int64

	for _, kind := range q.order {
		ln := q.lanes[kind]
		// BRPOPLPUSH pushes on the left, so the oldest claims sit at the tail
		raws, err := q.rdb.LRange(ctx, ln.ProcessingKey, -maxPerLane, -1).Result()
		if err != nil {
			return moved, err
		}

		for _, raw := range raws {
			var env Envelope
			if err := json.Unmarshal([]byte(raw), &env); err == nil && env.ID != "" {
				claimedAt, err := q.rdb.HGet(ctx, q.claimedAtKey, env.ID).Int64()
				switch {
				case errors.Is(err, redis.Nil):
					// claim time not recorded yet (or the worker died first); fall back to enqueue time
					if env.Enqueued.UnixMilli() > cutoff {
						continue
					}
				case err != nil:
					return moved, err
				case claimedAt > cutoff:
					continue
				}
			}

			n, err := requeueScript.Run(ctx, q.rdb, []string{ln.ProcessingKey, ln.QueueKey}, raw).Int64()
			if err != nil {
				return moved, err
			}
			if n == 0 {
				continue
			}
			moved++
			if env.ID != "" {
				q.forget(ctx, env.ID)
			}
		}
	}

	return moved, nil
}
