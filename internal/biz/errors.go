package biz

import (
	"strconv"

	"HealthPulse/internal/model"

	"github.com/go-kratos/kratos/v2/errors"
)

// Error reasons returned to API clients.
const (
	ReasonValidationFailed  = "VALIDATION_FAILED"
	ReasonCircuitOpen       = "CIRCUIT_OPEN"
	ReasonWriteExhausted    = "WRITE_EXHAUSTED"
	ReasonDependencyFailure = "DEPENDENCY_FAILURE"
	ReasonReportNotFound    = "REPORT_NOT_FOUND"
)

// Metadata keys attached to CIRCUIT_OPEN errors.
const (
	MetadataBreakerState = "circuitBreakerState"
	MetadataRetryAfter   = "retryAfter"
)

// ErrValidation is a client input error. It is never retried and never counts against the breaker.
func ErrValidation(message string) *errors.Error {
	return errors.BadRequest(ReasonValidationFailed, message)
}

// ErrCircuitOpen rejects a request without touching the dependency.
func ErrCircuitOpen(state model.BreakerState, retryAfterSeconds int64) *errors.Error {
	return errors.ServiceUnavailable(ReasonCircuitOpen, "Service temporarily unavailable - circuit breaker open").
		WithMetadata(map[string]string{
			MetadataBreakerState: string(state),
			MetadataRetryAfter:   strconv.FormatInt(retryAfterSeconds, 10),
		})
}

// ErrWriteExhausted reports a write that failed directly and could not be queued.
func ErrWriteExhausted(cause error) *errors.Error {
	return errors.InternalServer(ReasonWriteExhausted, "write failed after retries and queue fallback").WithCause(cause)
}

// ErrDependencyFailure reports any other downstream failure.
func ErrDependencyFailure(cause error) *errors.Error {
	return errors.InternalServer(ReasonDependencyFailure, "dependency failure").WithCause(cause)
}

// ErrReportNotFound is returned before the first monitor cycle has completed.
func ErrReportNotFound() *errors.Error {
	return errors.NotFound(ReasonReportNotFound, "no SLO report available yet")
}

// IsBreakerFailure classifies a request outcome for the circuit breaker: only server side
// errors count, and rejections by the breaker itself never do.
func IsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	e := errors.FromError(err)
	return e.Code >= 500 && e.Reason != ReasonCircuitOpen
}
