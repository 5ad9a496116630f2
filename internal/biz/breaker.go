package biz

import (
	"sync"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"
)

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 60 * time.Second
)

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	FailureThreshold int
	OpenTimeout      time.Duration
	// SuccessPolicy decides what a success in CLOSED does to the failure count:
	// reset clears it, decay decrements it, retain leaves it.
	SuccessPolicy string
}

// BreakerSnapshot is a consistent read of the breaker state.
type BreakerSnapshot struct {
	State               model.BreakerState `json:"state"`
	ConsecutiveFailures int                `json:"consecutiveFailures"`
	LastFailure         time.Time          `json:"lastFailure,omitempty"`
	FailureThreshold    int                `json:"failureThreshold"`
	OpenTimeout         time.Duration      `json:"openTimeout"`
}

// CircuitBreaker is the process-local admission gate in front of the sample store.
// OPEN always implies lastFailure is set and failures >= threshold.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       model.BreakerState
	failures    int
	lastFailure time.Time
	cfg         BreakerConfig

	now   func() time.Time
	hooks []func(model.BreakerTransition)
}

// NewCircuitBreaker creates a breaker in CLOSED state.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.SuccessPolicy == "" {
		cfg.SuccessPolicy = conf.SuccessPolicyReset
	}
	return &CircuitBreaker{
		state: model.BreakerClosed,
		cfg:   cfg,
		now:   time.Now,
	}
}

// BreakerConfigFrom reads breaker settings from configuration.
func BreakerConfigFrom(c *conf.Resilience) BreakerConfig {
	if c == nil || c.Breaker == nil {
		return BreakerConfig{}
	}
	return BreakerConfig{
		FailureThreshold: c.Breaker.FailureThreshold,
		OpenTimeout:      c.Breaker.OpenTimeout.AsDuration(),
		SuccessPolicy:    c.Breaker.SuccessPolicy,
	}
}

// SetNowFunc replaces the clock. Tests only.
func (cb *CircuitBreaker) SetNowFunc(now func() time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
}

// OnStateChange registers fn to run after every transition. Hooks run outside the lock,
// in the goroutine that caused the transition; a panicking hook is contained.
func (cb *CircuitBreaker) OnStateChange(fn func(model.BreakerTransition)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.hooks = append(cb.hooks, fn)
}

// Allow reports whether a request may proceed. It moves OPEN to HALF_OPEN once the open
// timeout has strictly elapsed since the last failure.
func (cb *CircuitBreaker) Allow() bool {
	return cb.EffectiveState() != model.BreakerOpen
}

// EffectiveState returns the state after applying the open timeout, so an OPEN breaker
// whose timeout has elapsed is reported, and left, HALF_OPEN.
func (cb *CircuitBreaker) EffectiveState() model.BreakerState {
	cb.mu.Lock()
	var t *model.BreakerTransition
	if cb.state == model.BreakerOpen && cb.now().Sub(cb.lastFailure) > cb.cfg.OpenTimeout {
		t = cb.transition(model.BreakerHalfOpen)
	}
	state := cb.state
	hooks := cb.hooks
	cb.mu.Unlock()

	cb.fire(hooks, t)
	return state
}

// RecordSuccess records a successful outcome.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var t *model.BreakerTransition
	switch cb.state {
	case model.BreakerHalfOpen:
		t = cb.transition(model.BreakerClosed)
		cb.failures = 0
		t.Failures = 0
	case model.BreakerClosed:
		switch cb.cfg.SuccessPolicy {
		case conf.SuccessPolicyDecay:
			if cb.failures > 0 {
				cb.failures--
			}
		case conf.SuccessPolicyRetain:
		default:
			cb.failures = 0
		}
	}
	hooks := cb.hooks
	cb.mu.Unlock()

	cb.fire(hooks, t)
}

// RecordFailure records a failed outcome.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	var t *model.BreakerTransition
	cb.failures++
	cb.lastFailure = cb.now()
	switch cb.state {
	case model.BreakerHalfOpen:
		if cb.failures < cb.cfg.FailureThreshold {
			cb.failures = cb.cfg.FailureThreshold
		}
		t = cb.transition(model.BreakerOpen)
	case model.BreakerClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			t = cb.transition(model.BreakerOpen)
		}
	}
	hooks := cb.hooks
	cb.mu.Unlock()

	cb.fire(hooks, t)
}

// State returns the current state without applying the open timeout.
func (cb *CircuitBreaker) State() model.BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns the full breaker state.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerSnapshot{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		LastFailure:         cb.lastFailure,
		FailureThreshold:    cb.cfg.FailureThreshold,
		OpenTimeout:         cb.cfg.OpenTimeout,
	}
}

// OpenTimeout is the retry-after hint for rejected requests.
func (cb *CircuitBreaker) OpenTimeout() time.Duration {
	return cb.cfg.OpenTimeout
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to model.BreakerState) *model.BreakerTransition {
	t := &model.BreakerTransition{
		From:     cb.state,
		To:       to,
		Failures: cb.failures,
		At:       cb.now(),
	}
	cb.state = to
	return t
}

func (cb *CircuitBreaker) fire(hooks []func(model.BreakerTransition), t *model.BreakerTransition) {
	if t == nil {
		return
	}
	for _, h := range hooks {
		func() {
			defer func() { _ = recover() }()
			h(*t)
		}()
	}
}
