package service

import (
	"context"

	"HealthPulse/internal/biz"

	"github.com/go-kratos/kratos/v2/transport/http"
)

// RegisterHTTPServer mounts the public routes.
func RegisterHTTPServer(s *http.Server, health *HealthService, metric *MetricService, logs *LogService, slo *SLOService) {
	r := s.Route("/")
	r.GET("/health", healthHandler(health))
	r.GET("/metrics", listMetricsHandler(metric))
	r.POST("/metrics", writeMetricHandler(metric))
	r.POST("/logs", ingestLogsHandler(logs))
	r.GET("/slo", sloHandler(slo))
}

func healthHandler(srv *HealthService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationHealth)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Check(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return result(ctx, out)
	}
}

func listMetricsHandler(srv *MetricService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		query := ctx.Query()
		in := &ListMetricsRequest{
			Service:   query.Get("service"),
			Limit:     query.Get("limit"),
			TimeRange: query.Get("timeRange"),
		}
		http.SetOperation(ctx, OperationListMetrics)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListMetrics(ctx, req.(*ListMetricsRequest))
		})
		out, err := h(ctx, in)
		if err != nil {
			return err
		}
		return result(ctx, out)
	}
}

func writeMetricHandler(srv *MetricService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationWriteMetric)
		// The body is decoded inside the chain so breaker admission runs first.
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			var in *biz.MetricInput
			if ctx.Request().ContentLength != 0 {
				in = &biz.MetricInput{}
				if err := ctx.Bind(in); err != nil {
					return nil, err
				}
			}
			return srv.WriteMetric(c, in)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return result(ctx, out)
	}
}

func ingestLogsHandler(srv *LogService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationIngestLogs)
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			req := ctx.Request()
			in := &IngestLogsRequest{Source: req.URL.Query().Get("source")}
			if req.ContentLength != 0 {
				in.Body = req.Body
			}
			return srv.IngestLogs(c, in)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return result(ctx, out)
	}
}

func sloHandler(srv *SLOService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationGetSLO)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetSLO(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return result(ctx, out)
	}
}

func result(ctx http.Context, out interface{}) error {
	code := 200
	if sc, ok := out.(StatusCoder); ok {
		code = sc.StatusCode()
	}
	return ctx.Result(code, out)
}
