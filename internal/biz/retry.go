package biz

import (
	"context"
	"math/rand/v2"
	"time"

	"HealthPulse/internal/conf"
	pkgerrors "HealthPulse/pkg/errors"

	"github.com/cenkalti/backoff/v3"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxJitter   = time.Second
)

// Backoff retries store calls that fail with an overload error.
// The wait after attempt n (counting from 0) is 2^n * BaseDelay plus a uniform jitter in [0, MaxJitter).
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration

	newTimer func() backoff.Timer
	jitter   func() float64
}

// NewBackoff creates a Backoff from configuration.
func NewBackoff(c *conf.Resilience) *Backoff {
	b := &Backoff{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxJitter:   DefaultMaxJitter,
		jitter:      rand.Float64,
	}
	if c != nil && c.Retry != nil {
		if c.Retry.MaxAttempts > 0 {
			b.MaxAttempts = c.Retry.MaxAttempts
		}
		if d := c.Retry.BaseDelay.AsDuration(); d > 0 {
			b.BaseDelay = d
		}
		if c.Retry.MaxJitter != nil {
			b.MaxJitter = c.Retry.MaxJitter.AsDuration()
		}
	}
	return b
}

// SetTimerFunc replaces the timer used between attempts. Tests only.
func (b *Backoff) SetTimerFunc(newTimer func() backoff.Timer) {
	b.newTimer = newTimer
}

// SetJitterFunc replaces the jitter source, which must return values in [0, 1). Tests only.
func (b *Backoff) SetJitterFunc(jitter func() float64) {
	b.jitter = jitter
}

// Delay returns the wait after the given zero-based attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	d := b.BaseDelay << uint(attempt)
	if b.MaxJitter > 0 {
		d += time.Duration(b.jitter() * float64(b.MaxJitter))
	}
	return d
}

// Do runs op until it succeeds, fails with an error that is not an overload, or
// MaxAttempts is reached. It returns the number of attempts made and the last error.
// No wait follows the final attempt.
func (b *Backoff) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	attempts := 0
	operation := func() error {
		attempts++
		err := op(ctx)
		if err != nil && !pkgerrors.IsOverloadError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var timer backoff.Timer
	if b.newTimer != nil {
		timer = b.newTimer()
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(&attemptBackOff{b: b}, ctx), nil, timer)
	if err != nil && pkgerrors.IsOverloadError(err) && ctx.Err() != nil {
		return attempts, ctx.Err()
	}
	return attempts, err
}

// attemptBackOff is a backoff.BackOff that yields Delay(n) and stops after MaxAttempts.
type attemptBackOff struct {
	b       *Backoff
	attempt int
}

func (a *attemptBackOff) NextBackOff() time.Duration {
	if a.attempt >= a.b.MaxAttempts-1 {
		return backoff.Stop
	}
	d := a.b.Delay(a.attempt)
	a.attempt++
	return d
}

func (a *attemptBackOff) Reset() {
	a.attempt = 0
}
