package biz

import (
	"context"
	"errors"
	"sync/atomic"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/data"
	"HealthPulse/internal/model"
	pkgerrors "HealthPulse/pkg/errors"
	pkglog "HealthPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// DefaultReplayBatch bounds one replay run.
const DefaultReplayBatch = 50

// QueueReplayer drains the fallback queue into the store. Payloads stay on the processing
// list until written, so delivery is at least once; the sample ID makes repeats harmless.
// Cached query results are dropped after any run that wrote something.
type QueueReplayer struct {
	queue     FallbackQueue
	repo      SampleRepo
	cache     QueryCache
	breaker   *CircuitBreaker
	batch     int
	recovered atomic.Bool
	logger    *pkglog.LogHelper
}

// NewQueueReplayer creates a QueueReplayer.
func NewQueueReplayer(queue FallbackQueue, repo SampleRepo, cache QueryCache, breaker *CircuitBreaker, c *conf.Data, logger log.Logger) *QueueReplayer {
	batch := DefaultReplayBatch
	if c != nil && c.Queue != nil && c.Queue.ReplayBatch > 0 {
		batch = c.Queue.ReplayBatch
	}
	return &QueueReplayer{
		queue:   queue,
		repo:    repo,
		cache:   cache,
		breaker: breaker,
		batch:   batch,
		logger:  pkglog.NewLogHelper(logger),
	}
}

// ReplayBatch moves up to the batch size of payloads to the store and returns how many
// were written. It does nothing while the breaker is open. The first run returns payloads
// stranded by an earlier interrupted run to the queue.
func (r *QueueReplayer) ReplayBatch(ctx context.Context) (int, error) {
	if !r.breaker.Allow() {
		r.logger.Queue("replay skipped, circuit breaker open")
		return 0, nil
	}

	if !r.recovered.Load() {
		if _, err := r.queue.Recover(ctx); err != nil {
			if errors.Is(err, model.ErrNotConfigured) {
				return 0, nil
			}
			return 0, err
		}
		r.recovered.Store(true)
	}

	written := 0
	defer func() {
		if written > 0 {
			r.cache.Purge()
		}
	}()
	for written < r.batch {
		lease, err := r.queue.Claim(ctx)
		if errors.Is(err, data.ErrCorruptPayload) {
			r.logger.Errorw("msg", "dropping corrupt queue payload", "payload", lease.Raw, "error", err)
			if ackErr := r.queue.Ack(ctx, lease); ackErr != nil {
				return written, ackErr
			}
			continue
		}
		if err != nil {
			return written, err
		}
		if lease == nil {
			break
		}

		sample := lease.Payload.Sample
		if err := r.repo.Put(ctx, &sample); err != nil {
			if nackErr := r.queue.Nack(ctx, lease); nackErr != nil {
				r.logger.Errorw("msg", "failed to return payload to queue", "sample_id", sample.ID, "error", nackErr)
			}
			if pkgerrors.IsOverloadError(err) {
				r.logger.Queue("replay paused, store overloaded", "written", written)
				return written, nil
			}
			return written, err
		}
		if err := r.queue.Ack(ctx, lease); err != nil {
			return written, err
		}
		written++
	}

	if written > 0 {
		r.logger.Queue("replayed queued metrics", "count", written)
	}
	return written, nil
}
