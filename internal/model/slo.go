package model

import "time"

// SLOStatus describes whether a snapshot had enough data to judge.
type SLOStatus string

// SLO statuses.
const (
	SLOStatusOK     SLOStatus = "OK"
	SLOStatusNoData SLOStatus = "NO_DATA"
)

// SLOSnapshot is availability and remaining error budget over one evaluation window.
type SLOSnapshot struct {
	TargetAvailability     float64   `json:"targetAvailability"`
	TotalChecks            int       `json:"totalChecks"`
	SuccessfulChecks       int       `json:"successfulChecks"`
	FailedChecks           int       `json:"failedChecks"`
	AvailabilityPercentage float64   `json:"availabilityPercentage"`
	ErrorBudgetRemaining   float64   `json:"errorBudgetRemaining"`
	InsufficientData       bool      `json:"insufficientData"`
	WindowStart            time.Time `json:"windowStart"`
	WindowEnd              time.Time `json:"windowEnd"`
}

// Status reports NO_DATA when the window held no checks.
func (s *SLOSnapshot) Status() SLOStatus {
	if s.InsufficientData {
		return SLOStatusNoData
	}
	return SLOStatusOK
}

// Severity is the alert level assigned by the error budget alerter.
type Severity string

// Alert severities.
const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
)

// Alert is an error budget alert decision.
type Alert struct {
	Severity             Severity `json:"severity"`
	Message              string   `json:"message"`
	ErrorBudgetRemaining float64  `json:"errorBudgetRemaining"`
}

// MonitorReport is the outcome of one monitor cycle, cached for GET /slo.
type MonitorReport struct {
	Snapshot  SLOSnapshot   `json:"slo"`
	Status    SLOStatus     `json:"status"`
	Alert     *Alert        `json:"alert,omitempty"`
	Probes    []ProbeResult `json:"healthChecks"`
	Timestamp time.Time     `json:"timestamp"`
}
