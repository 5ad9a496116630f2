package service

import (
	"context"
	"io"
	"net/http"

	"HealthPulse/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// IngestLogsRequest is a JSON-lines batch. Source names the log file the lines came from.
type IngestLogsRequest struct {
	Source string
	Body   io.Reader
}

// IngestLogsReply is the POST /logs body.
type IngestLogsReply struct {
	Message string `json:"message"`
	*biz.LogIngestResult
}

// StatusCode is 202 when any line was deferred to the fallback queue.
func (r *IngestLogsReply) StatusCode() int {
	if r.Queued > 0 {
		return http.StatusAccepted
	}
	return http.StatusOK
}

// LogService ingests log batches.
type LogService struct {
	ingester *biz.LogIngester
	logger   *log.Helper
}

// NewLogService creates a LogService.
func NewLogService(ingester *biz.LogIngester, logger log.Logger) *LogService {
	return &LogService{
		ingester: ingester,
		logger:   log.NewHelper(logger),
	}
}

// IngestLogs stores one LOG_PROCESSED sample per JSON log line.
func (s *LogService) IngestLogs(ctx context.Context, in *IngestLogsRequest) (*IngestLogsReply, error) {
	res, err := s.ingester.Ingest(ctx, in.Source, in.Body)
	if err != nil {
		return nil, err
	}
	return &IngestLogsReply{Message: "Log processing completed successfully", LogIngestResult: res}, nil
}
