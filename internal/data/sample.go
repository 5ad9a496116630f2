package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"HealthPulse/internal/model"
	pkgerrors "HealthPulse/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HealthSampleRecord is the GORM model for the health_samples table.
type HealthSampleRecord struct {
	ID          string    `gorm:"primaryKey;column:id;type:char(36)"`
	ServiceName string    `gorm:"column:service_name;size:128;not null;index:idx_service_recorded,priority:1"`
	RecordedAt  time.Time `gorm:"column:recorded_at;type:datetime(6);not null;index:idx_service_recorded,priority:2;index:idx_type_recorded,priority:2;index:idx_recorded"`
	MetricType  string    `gorm:"column:metric_type;size:64;not null;index:idx_type_recorded,priority:1"`
	Value       float64   `gorm:"column:value;type:double;not null"`
	Metadata    *string   `gorm:"column:metadata;type:json"`
	Source      string    `gorm:"column:source;size:32;not null"`
	Environment string    `gorm:"column:environment;size:32;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (HealthSampleRecord) TableName() string {
	return "health_samples"
}

func toRecord(s *model.HealthSample) (*HealthSampleRecord, error) {
	rec := &HealthSampleRecord{
		ID:          s.ID,
		ServiceName: s.ServiceName,
		RecordedAt:  s.Timestamp.UTC(),
		MetricType:  s.MetricType,
		Value:       s.Value,
		Source:      s.Source,
		Environment: s.Environment,
	}
	if len(s.Metadata) > 0 {
		raw, err := json.Marshal(s.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		str := string(raw)
		rec.Metadata = &str
	}
	return rec, nil
}

func (r *HealthSampleRecord) toModel() *model.HealthSample {
	s := &model.HealthSample{
		ID:          r.ID,
		ServiceName: r.ServiceName,
		Timestamp:   r.RecordedAt.UTC(),
		MetricType:  r.MetricType,
		Value:       r.Value,
		Source:      r.Source,
		Environment: r.Environment,
	}
	if r.Metadata != nil && *r.Metadata != "" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(*r.Metadata), &m); err == nil {
			s.Metadata = m
		}
	}
	return s
}

// SampleStore persists health samples in MySQL.
// Every error it returns is a *pkgerrors.DatabaseError so callers can detect overload.
type SampleStore struct {
	db     *gorm.DB
	logger *log.Helper
}

// NewSampleStore creates a SampleStore.
func NewSampleStore(db *gorm.DB, logger log.Logger) *SampleStore {
	return &SampleStore{
		db:     db,
		logger: log.NewHelper(logger),
	}
}

// Put inserts a sample. A sample ID that already exists is ignored, so retries and
// replays of the same sample are idempotent.
func (s *SampleStore) Put(ctx context.Context, sample *model.HealthSample) error {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	rec, err := toRecord(sample)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).Error
	if err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		s.logger.Warnw("msg", "failed to put sample",
			"service", sample.ServiceName,
			"metric_type", sample.MetricType,
			"error_type", dbErr.Type.String(),
			"error", err)
		return dbErr
	}
	return nil
}

// Get returns samples for one service recorded at or after since, latest first.
func (s *SampleStore) Get(ctx context.Context, serviceName string, since time.Time, limit int) ([]*model.HealthSample, error) {
	var recs []*HealthSampleRecord
	err := s.db.WithContext(ctx).
		Where("service_name = ? AND recorded_at >= ?", serviceName, since.UTC()).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, pkgerrors.ClassifyDBError(err)
	}
	return toModels(recs), nil
}

// ScanRecent returns samples of any service recorded at or after since, latest first.
func (s *SampleStore) ScanRecent(ctx context.Context, since time.Time, limit int) ([]*model.HealthSample, error) {
	var recs []*HealthSampleRecord
	err := s.db.WithContext(ctx).
		Where("recorded_at >= ?", since.UTC()).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, pkgerrors.ClassifyDBError(err)
	}
	return toModels(recs), nil
}

// ListByType returns every sample of metricType recorded in [since, until].
func (s *SampleStore) ListByType(ctx context.Context, metricType string, since, until time.Time) ([]*model.HealthSample, error) {
	var recs []*HealthSampleRecord
	err := s.db.WithContext(ctx).
		Where("metric_type = ? AND recorded_at >= ? AND recorded_at <= ?", metricType, since.UTC(), until.UTC()).
		Find(&recs).Error
	if err != nil {
		return nil, pkgerrors.ClassifyDBError(err)
	}
	return toModels(recs), nil
}

func toModels(recs []*HealthSampleRecord) []*model.HealthSample {
	out := make([]*model.HealthSample, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out
}
