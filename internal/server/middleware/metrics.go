package middleware

import (
	"context"
	"time"

	"HealthPulse/internal/biz"
	"HealthPulse/internal/model"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// Metrics emits ApiSuccess or ApiError and ApiLatency for every request.
func Metrics(sink biz.MetricsSink) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			start := time.Now()
			reply, err := handler(ctx, req)

			dims := map[string]string{}
			if tr, ok := transport.FromServerContext(ctx); ok {
				dims[model.DimPath] = tr.Operation()
				if ht, ok := tr.(http.Transporter); ok {
					dims[model.DimMethod] = ht.Request().Method
					dims[model.DimPath] = ht.Request().URL.Path
				}
			}

			outcome := model.MetricAPISuccess
			if statusOf(reply, err) >= 400 {
				outcome = model.MetricAPIError
			}

			// The sink never fails the request.
			_ = sink.Emit(ctx, []model.Datum{
				{Name: outcome, Value: 1, Unit: model.UnitCount, Dimensions: dims},
				{Name: model.MetricAPILatency, Value: float64(time.Since(start).Milliseconds()), Unit: model.UnitMilliseconds, Dimensions: dims},
			})

			return reply, err
		}
	}
}
