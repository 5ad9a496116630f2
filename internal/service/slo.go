package service

import (
	"context"
	"errors"

	"HealthPulse/internal/biz"
	"HealthPulse/internal/data"
	"HealthPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// SLOReply is the GET /slo body.
type SLOReply struct {
	*model.MonitorReport
}

// SLOService serves the latest monitor report.
type SLOService struct {
	reports biz.ReportStore
	logger  *log.Helper
}

// NewSLOService creates an SLOService.
func NewSLOService(reports biz.ReportStore, logger log.Logger) *SLOService {
	return &SLOService{
		reports: reports,
		logger:  log.NewHelper(logger),
	}
}

// GetSLO returns the report of the last completed monitor cycle.
func (s *SLOService) GetSLO(ctx context.Context) (*SLOReply, error) {
	report, err := s.reports.LatestReport(ctx)
	switch {
	case err == nil:
		return &SLOReply{MonitorReport: report}, nil
	case errors.Is(err, data.ErrCacheNotFound), errors.Is(err, model.ErrNotConfigured):
		return nil, biz.ErrReportNotFound()
	default:
		s.logger.Errorw("msg", "failed to read latest SLO report", "error", err)
		return nil, biz.ErrDependencyFailure(err)
	}
}
