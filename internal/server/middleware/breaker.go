package middleware

import (
	"context"
	"math"

	"HealthPulse/internal/biz"

	"github.com/go-kratos/kratos/v2/middleware"
)

// Breaker gates requests on the circuit breaker and reports each outcome to it.
// Rejected requests never reach the handler.
func Breaker(cb *biz.CircuitBreaker) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if !cb.Allow() {
				retryAfter := int64(math.Ceil(cb.OpenTimeout().Seconds()))
				return nil, biz.ErrCircuitOpen(cb.State(), retryAfter)
			}

			reply, err := handler(ctx, req)
			if biz.IsBreakerFailure(err) {
				cb.RecordFailure()
			} else {
				cb.RecordSuccess()
			}
			return reply, err
		}
	}
}
