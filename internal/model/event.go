package model

import "time"

// BreakerState is the circuit breaker state.
type BreakerState string

// Breaker states.
const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// GaugeValue encodes the state for the CircuitBreakerState gauge.
func (s BreakerState) GaugeValue() float64 {
	switch s {
	case BreakerHalfOpen:
		return 1
	case BreakerOpen:
		return 2
	default:
		return 0
	}
}

// BreakerTransition describes one breaker state change.
type BreakerTransition struct {
	From     BreakerState
	To       BreakerState
	Failures int
	At       time.Time
}

// CircuitOpenedEvent is sent when the breaker starts rejecting traffic.
type CircuitOpenedEvent struct {
	From     BreakerState `json:"from"`
	Failures int          `json:"consecutiveFailures"`
	OpenedAt time.Time    `json:"openedAt"`
	RetryAt  time.Time    `json:"retryAt"`
}

// CircuitClosedEvent is sent when the breaker recovers.
type CircuitClosedEvent struct {
	ClosedAt     time.Time     `json:"closedAt"`
	OpenDuration time.Duration `json:"openDurationNs"`
}

// ErrorBudgetEvent carries an alert decision to the notifier.
type ErrorBudgetEvent struct {
	Alert       Alert       `json:"alert"`
	Snapshot    SLOSnapshot `json:"slo"`
	Environment string      `json:"environment"`
}
