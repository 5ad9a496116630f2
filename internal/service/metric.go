package service

import (
	"context"
	"net/http"
	"time"

	"HealthPulse/internal/biz"
	"HealthPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// WriteMetricReply is the POST /metrics body.
type WriteMetricReply struct {
	Message     string    `json:"message"`
	Status      string    `json:"status,omitempty"`
	ServiceName string    `json:"serviceName"`
	Timestamp   time.Time `json:"timestamp"`

	queued bool
}

// StatusCode is 201 for a stored metric and 202 for a queued one.
func (r *WriteMetricReply) StatusCode() int {
	if r.queued {
		return http.StatusAccepted
	}
	return http.StatusCreated
}

// ListMetricsRequest holds the raw GET /metrics query parameters.
type ListMetricsRequest struct {
	Service   string
	Limit     string
	TimeRange string
}

// ListMetricsReply is the GET /metrics body.
type ListMetricsReply struct {
	Metrics      []*model.HealthSample `json:"metrics"`
	Count        int                   `json:"count"`
	ScannedCount int                   `json:"scannedCount"`
}

// MetricService ingests and serves metrics.
type MetricService struct {
	writer *biz.MetricWriter
	reader *biz.MetricReader
	logger *log.Helper
}

// NewMetricService creates a MetricService.
func NewMetricService(writer *biz.MetricWriter, reader *biz.MetricReader, logger log.Logger) *MetricService {
	return &MetricService{
		writer: writer,
		reader: reader,
		logger: log.NewHelper(logger),
	}
}

// WriteMetric stores one metric, directly or through the fallback queue.
func (s *MetricService) WriteMetric(ctx context.Context, in *biz.MetricInput) (*WriteMetricReply, error) {
	res, err := s.writer.Write(ctx, in)
	if err != nil {
		return nil, err
	}

	reply := &WriteMetricReply{
		Message:     "Metric created successfully",
		ServiceName: res.Sample.ServiceName,
		Timestamp:   res.Sample.Timestamp,
	}
	if res.Outcome == biz.WriteAcceptedQueued {
		reply.Message = "Metric queued for processing"
		reply.Status = "accepted"
		reply.queued = true
	}
	return reply, nil
}

// ListMetrics returns recent metrics, optionally for one service.
func (s *MetricService) ListMetrics(ctx context.Context, req *ListMetricsRequest) (*ListMetricsReply, error) {
	q, err := biz.ParseMetricQuery(req.Service, req.Limit, req.TimeRange)
	if err != nil {
		return nil, err
	}

	page, err := s.reader.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	metrics := page.Metrics
	if metrics == nil {
		metrics = []*model.HealthSample{}
	}
	return &ListMetricsReply{
		Metrics:      metrics,
		Count:        page.Count,
		ScannedCount: page.ScannedCount,
	}, nil
}
