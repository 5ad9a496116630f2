// Package metadata provides typed metadata attached to health samples and the limits
// applied to free-form metadata submitted by clients.
package metadata

import (
	"encoding/json"
	"fmt"
)

// Limits on client supplied metadata.
const (
	MaxKeys      = 50
	MaxKeyLength = 128
	MaxBytes     = 16 * 1024
)

// Probe is attached to HEALTH_CHECK samples.
type Probe struct {
	Healthy        bool   `json:"healthy"`
	ResponseTimeMs int64  `json:"responseTime"`
	StatusCode     int    `json:"statusCode,omitempty"`
	Error          string `json:"error,omitempty"`
	Environment    string `json:"environment,omitempty"`
}

// SLO is attached to SLO_AVAILABILITY samples.
type SLO struct {
	TargetAvailability   float64 `json:"targetAvailability"`
	TotalChecks          int     `json:"totalChecks"`
	SuccessfulChecks     int     `json:"successfulChecks"`
	FailedChecks         int     `json:"failedChecks"`
	ErrorBudgetRemaining float64 `json:"errorBudgetRemaining"`
	Status               string  `json:"status"`
}

// LogLine is attached to LOG_PROCESSED samples.
type LogLine struct {
	Metrics map[string]interface{} `json:"metrics,omitempty"`
	LogFile string                 `json:"logFile,omitempty"`
	Line    int                    `json:"line"`
}

// Failure is attached to ERROR samples written by the monitor.
type Failure struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// ToMap converts a typed metadata struct to the free-form map stored on samples.
// The JSON representation defines the keys.
func ToMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// Decode reads a typed metadata struct back from a sample's map.
func Decode(m map[string]interface{}, v interface{}) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse metadata JSON: %w", err)
	}
	return nil
}

// Validate checks client supplied metadata against the size limits.
func Validate(m map[string]interface{}) error {
	if len(m) > MaxKeys {
		return fmt.Errorf("too many metadata keys: max %d allowed, got %d", MaxKeys, len(m))
	}
	for k := range m {
		if k == "" {
			return fmt.Errorf("metadata key is empty")
		}
		if len(k) > MaxKeyLength {
			return fmt.Errorf("metadata key too long: max %d characters, got %d", MaxKeyLength, len(k))
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("metadata is not serializable: %w", err)
	}
	if len(data) > MaxBytes {
		return fmt.Errorf("metadata too large: max %d bytes, got %d", MaxBytes, len(data))
	}
	return nil
}
