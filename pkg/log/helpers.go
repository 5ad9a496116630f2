package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// SlowRequestThresholdMs marks requests worth a warning.
const SlowRequestThresholdMs = 1000

// LogHelper extends log.Helper with methods that tag entries with a "type" field.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper creates a LogHelper.
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{Helper: log.NewHelper(logger)}
}

func typed(logType, msg string, kvs []interface{}) []interface{} {
	all := make([]interface{}, 0, len(kvs)+4)
	all = append(all, "msg", msg)
	all = append(all, kvs...)
	return append(all, "type", logType)
}

// Breaker logs a circuit breaker event.
func (h *LogHelper) Breaker(msg string, kvs ...interface{}) {
	h.Warnw(typed("breaker", msg, kvs)...)
}

// Probe logs a dependency probe result.
func (h *LogHelper) Probe(msg string, kvs ...interface{}) {
	h.Infow(typed("probe", msg, kvs)...)
}

// SLO logs an SLO computation.
func (h *LogHelper) SLO(msg string, kvs ...interface{}) {
	h.Infow(typed("slo", msg, kvs)...)
}

// Alert logs an error budget alert.
func (h *LogHelper) Alert(msg string, kvs ...interface{}) {
	h.Warnw(typed("alert", msg, kvs)...)
}

// Queue logs fallback queue activity.
func (h *LogHelper) Queue(msg string, kvs ...interface{}) {
	h.Infow(typed("queue", msg, kvs)...)
}

// Store logs sample store activity.
func (h *LogHelper) Store(msg string, kvs ...interface{}) {
	h.Debugw(typed("store", msg, kvs)...)
}

// Startup logs process startup.
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(typed("startup", msg, kvs)...)
}

// Scheduler logs scheduled job activity.
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.Infow(typed("scheduler", msg, kvs)...)
}

// RequestWithContext logs a completed HTTP request and warns when it was slow.
func (h *LogHelper) RequestWithContext(ctx context.Context, method, path string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%dms)", method, path, status, durationMs)
	all := typed("request", msg, kvs)
	all = append(all,
		"request_id", reqCtx.RequestID,
		"client_ip", reqCtx.ClientIP,
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", durationMs,
	)

	if status >= 500 {
		h.Errorw(all...)
	} else {
		h.Infow(all...)
	}

	if durationMs > SlowRequestThresholdMs {
		h.SlowRequest(ctx, method, path, durationMs, SlowRequestThresholdMs)
	}
}

// SlowRequest warns about a request that exceeded threshold milliseconds.
func (h *LogHelper) SlowRequest(ctx context.Context, method, path string, duration, threshold int64) {
	reqCtx := GetRequestContext(ctx)
	h.Warnw(
		"msg", fmt.Sprintf("[%s] Slow request %s %s %dms (threshold %dms)", reqCtx.RequestID, method, path, duration, threshold),
		"request_id", reqCtx.RequestID,
		"method", method,
		"path", path,
		"duration_ms", duration,
		"threshold_ms", threshold,
		"type", "slow_request",
	)
}
