package model

import "time"

// Well-known metric types. Ingested metrics may carry any other free-form type.
const (
	MetricTypeHealthCheck     = "HEALTH_CHECK"
	MetricTypeSLOAvailability = "SLO_AVAILABILITY"
	MetricTypeError           = "ERROR"
	MetricTypeLogProcessed    = "LOG_PROCESSED"
)

// Sample sources.
const (
	SourceAPI           = "api"
	SourceHealthMonitor = "health-monitor"
	SourceLogProcessor  = "log-processor"
)

// Reserved service names written by the monitor cycle.
const (
	ServiceSystem        = "system"
	ServiceHealthMonitor = "health-monitor"
)

// HealthSample is one timestamped health or metric record. Samples are never mutated after creation.
type HealthSample struct {
	// ID is assigned once and reused by every retry and replay of the same sample.
	ID          string                 `json:"-"`
	ServiceName string                 `json:"serviceName"`
	Timestamp   time.Time              `json:"timestamp"`
	MetricType  string                 `json:"metricType"`
	Value       float64                `json:"value"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Source      string                 `json:"source"`
	Environment string                 `json:"environment"`
}

// QueuedSample is the fallback queue payload.
type QueuedSample struct {
	ID         string       `json:"id"`
	Sample     HealthSample `json:"sample"`
	EnqueuedAt time.Time    `json:"enqueuedAt"`
	Reason     string       `json:"reason,omitempty"`
}

// QueueLease is a payload claimed from the fallback queue. Raw identifies it for ack/nack.
type QueueLease struct {
	Raw     string
	Payload QueuedSample
}
