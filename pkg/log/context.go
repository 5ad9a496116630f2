package log

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const requestContextKey contextKey = "healthpulse_request_context"

// RequestIDHeader carries the request ID in and out of the HTTP transport.
const RequestIDHeader = "X-Request-ID"

// RequestContext carries per-request tracing data through the handler chain.
type RequestContext struct {
	RequestID string
	Method    string
	Path      string
	ClientIP  string
	StartTime time.Time
}

// GenerateRequestID returns a new random request ID.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestContext stores a RequestContext in ctx.
func WithRequestContext(ctx context.Context, requestID, method, path, clientIP string) context.Context {
	return context.WithValue(ctx, requestContextKey, &RequestContext{
		RequestID: requestID,
		Method:    method,
		Path:      path,
		ClientIP:  clientIP,
		StartTime: time.Now(),
	})
}

// GetRequestContext returns the RequestContext stored in ctx, or one with RequestID "unknown".
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID returns the request ID stored in ctx.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetElapsedTime returns milliseconds since the request started.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
