package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// Default queue keys.
const (
	DefaultQueueKey           = "healthpulse:fallback"
	DefaultQueueProcessingKey = "healthpulse:fallback:processing"
)

// ErrCorruptPayload is returned by Claim when a queued payload cannot be decoded.
var ErrCorruptPayload = errors.New("queue: corrupt payload")

// FallbackQueue is a durable at-least-once queue of deferred sample writes on a Redis list.
// Claimed payloads sit on a processing list until acked, so a crash between claim and
// store write leaves them recoverable.
type FallbackQueue struct {
	rdb           *redis.Client
	key           string
	processingKey string
	logger        *log.Helper
	now           func() time.Time
}

// NewFallbackQueue creates a FallbackQueue.
func NewFallbackQueue(c *conf.Data, rdb *redis.Client, logger log.Logger) *FallbackQueue {
	key, processingKey := DefaultQueueKey, DefaultQueueProcessingKey
	if c != nil && c.Queue != nil {
		if c.Queue.Key != "" {
			key = c.Queue.Key
		}
		if c.Queue.ProcessingKey != "" {
			processingKey = c.Queue.ProcessingKey
		}
	}
	return &FallbackQueue{
		rdb:           rdb,
		key:           key,
		processingKey: processingKey,
		logger:        log.NewHelper(logger),
		now:           time.Now,
	}
}

// Enqueue appends a sample to the queue.
func (q *FallbackQueue) Enqueue(ctx context.Context, sample *model.HealthSample, reason string) error {
	if q.rdb == nil {
		return fmt.Errorf("queue: %w", model.ErrNotConfigured)
	}

	payload, err := json.Marshal(&model.QueuedSample{
		ID:         sample.ID,
		Sample:     *sample,
		EnqueuedAt: q.now().UTC(),
		Reason:     reason,
	})
	if err != nil {
		return fmt.Errorf("queue: failed to marshal payload: %w", err)
	}

	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("queue: failed to enqueue: %w", err)
	}
	return nil
}

// Claim moves the oldest payload to the processing list and returns it.
// It returns nil, nil when the queue is empty.
func (q *FallbackQueue) Claim(ctx context.Context) (*model.QueueLease, error) {
	if q.rdb == nil {
		return nil, fmt.Errorf("queue: %w", model.ErrNotConfigured)
	}

	raw, err := q.rdb.LMove(ctx, q.key, q.processingKey, "RIGHT", "LEFT").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: failed to claim: %w", err)
	}

	lease := &model.QueueLease{Raw: raw}
	if err := json.Unmarshal([]byte(raw), &lease.Payload); err != nil {
		return lease, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	// QueuedSample.ID is authoritative; HealthSample.ID is not serialized.
	lease.Payload.Sample.ID = lease.Payload.ID
	return lease, nil
}

// Ack removes a processed payload from the processing list.
func (q *FallbackQueue) Ack(ctx context.Context, lease *model.QueueLease) error {
	if q.rdb == nil {
		return fmt.Errorf("queue: %w", model.ErrNotConfigured)
	}
	if err := q.rdb.LRem(ctx, q.processingKey, 1, lease.Raw).Err(); err != nil {
		return fmt.Errorf("queue: failed to ack: %w", err)
	}
	return nil
}

// Nack returns a claimed payload to the head of the queue so it is claimed next.
func (q *FallbackQueue) Nack(ctx context.Context, lease *model.QueueLease) error {
	if q.rdb == nil {
		return fmt.Errorf("queue: %w", model.ErrNotConfigured)
	}
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey, 1, lease.Raw)
		pipe.RPush(ctx, q.key, lease.Raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("queue: failed to nack: %w", err)
	}
	return nil
}

// Recover moves payloads left on the processing list by an interrupted replay back to the queue.
func (q *FallbackQueue) Recover(ctx context.Context) (int, error) {
	if q.rdb == nil {
		return 0, fmt.Errorf("queue: %w", model.ErrNotConfigured)
	}
	moved := 0
	for {
		err := q.rdb.LMove(ctx, q.processingKey, q.key, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("queue: failed to recover: %w", err)
		}
		moved++
	}
	if moved > 0 {
		q.logger.Infow("msg", "recovered in-flight queue payloads", "count", moved, "type", "queue")
	}
	return moved, nil
}

// Len returns the number of payloads waiting in the queue.
func (q *FallbackQueue) Len(ctx context.Context) (int64, error) {
	if q.rdb == nil {
		return 0, fmt.Errorf("queue: %w", model.ErrNotConfigured)
	}
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: failed to read length: %w", err)
	}
	return n, nil
}
