package model

import "time"

// Probe names.
const (
	ProbeAPIGateway = "api-gateway"
	ProbeDatastore  = "datastore"
	ProbeQueue      = "queue"
)

// ProbeStatus is the readiness verdict of one dependency.
type ProbeStatus string

// Probe statuses.
const (
	ProbeHealthy   ProbeStatus = "healthy"
	ProbeUnhealthy ProbeStatus = "unhealthy"
	ProbeUnknown   ProbeStatus = "unknown"
)

// ProbeResult is the verdict of a single dependency probe. A failed probe is data, not an error.
type ProbeResult struct {
	Service        string    `json:"service"`
	Healthy        bool      `json:"healthy"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
	StatusCode     int       `json:"statusCode,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	// Configured is false when the dependency has no backing service to probe.
	Configured bool `json:"-"`
}

// Status maps the verdict to a readiness status.
func (r ProbeResult) Status() ProbeStatus {
	switch {
	case !r.Configured:
		return ProbeUnknown
	case r.Healthy:
		return ProbeHealthy
	default:
		return ProbeUnhealthy
	}
}

// Value maps the verdict to the HEALTH_CHECK sample value.
func (r ProbeResult) Value() float64 {
	if r.Healthy {
		return 1
	}
	return 0
}
