package data

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"HealthPulse/internal/model"
	pkgerrors "HealthPulse/pkg/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates a test database connection with sqlmock
func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB.Close()
	}

	return gormDB, mock, cleanup
}

func sampleColumns() []string {
	return []string{"id", "service_name", "recorded_at", "metric_type", "value", "metadata", "source", "environment", "created_at"}
}

func TestSampleStore_Put(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSampleStore(db, log.DefaultLogger)
	ctx := context.Background()

	t.Run("assigns id and preserves value precision", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `health_samples`")).
			WithArgs(sqlmock.AnyArg(), "svc", sqlmock.AnyArg(), "latency", 150.5, nil, model.SourceAPI, "dev", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		sample := &model.HealthSample{
			ServiceName: "svc",
			Timestamp:   time.Now(),
			MetricType:  "latency",
			Value:       150.5,
			Source:      model.SourceAPI,
			Environment: "dev",
		}
		require.NoError(t, store.Put(ctx, sample))
		assert.Len(t, sample.ID, 36)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id is ignored", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		sample := &model.HealthSample{ID: "11111111-1111-1111-1111-111111111111", ServiceName: "svc", MetricType: "x", Timestamp: time.Now()}
		require.NoError(t, store.Put(ctx, sample))
		assert.Equal(t, "11111111-1111-1111-1111-111111111111", sample.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock wait timeout is overload", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `health_samples`")).
			WillReturnError(&mysqldriver.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})

		err := store.Put(ctx, &model.HealthSample{ServiceName: "svc", MetricType: "x", Timestamp: time.Now()})
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrThrottled)
		assert.True(t, pkgerrors.IsOverloadError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure is not overload", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `health_samples`")).
			WillReturnError(sql.ErrConnDone)

		err := store.Put(ctx, &model.HealthSample{ServiceName: "svc", MetricType: "x", Timestamp: time.Now()})
		require.Error(t, err)
		assert.False(t, pkgerrors.IsOverloadError(err))

		var dbErr *pkgerrors.DatabaseError
		require.ErrorAs(t, err, &dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSampleStore_Get(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSampleStore(db, log.DefaultLogger)
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	meta := `{"healthy":true,"responseTime":42}`

	rows := sqlmock.NewRows(sampleColumns()).
		AddRow("b", "api-gateway", since.Add(2*time.Hour), model.MetricTypeHealthCheck, 1.0, meta, model.SourceHealthMonitor, "dev", since).
		AddRow("a", "api-gateway", since.Add(time.Hour), model.MetricTypeHealthCheck, 0.0, nil, model.SourceHealthMonitor, "dev", since)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `health_samples` WHERE service_name = ? AND recorded_at >= ? ORDER BY recorded_at DESC LIMIT ?")).
		WithArgs("api-gateway", since, 10).
		WillReturnRows(rows)

	samples, err := store.Get(context.Background(), "api-gateway", since, 10)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, "b", samples[0].ID)
	assert.Equal(t, 1.0, samples[0].Value)
	assert.Equal(t, true, samples[0].Metadata["healthy"])
	assert.Equal(t, float64(42), samples[0].Metadata["responseTime"])
	assert.Nil(t, samples[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSampleStore_ScanRecent(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSampleStore(db, log.DefaultLogger)
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `health_samples` WHERE recorded_at >= ? ORDER BY recorded_at DESC LIMIT ?")).
		WithArgs(since, 100).
		WillReturnError(&mysqldriver.MySQLError{Number: 1040, Message: "Too many connections"})

	samples, err := store.ScanRecent(context.Background(), since, 100)
	assert.Nil(t, samples)
	assert.ErrorIs(t, err, pkgerrors.ErrThrottled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSampleStore_ListByType(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSampleStore(db, log.DefaultLogger)
	until := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	since := until.Add(-24 * time.Hour)

	rows := sqlmock.NewRows(sampleColumns())
	for i := 0; i < 3; i++ {
		rows.AddRow("id"+string(rune('a'+i)), "datastore", since.Add(time.Duration(i)*time.Hour), model.MetricTypeHealthCheck, float64(i%2), nil, model.SourceHealthMonitor, "dev", since)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `health_samples` WHERE metric_type = ? AND recorded_at >= ? AND recorded_at <= ?")).
		WithArgs(model.MetricTypeHealthCheck, since, until).
		WillReturnRows(rows)

	samples, err := store.ListByType(context.Background(), model.MetricTypeHealthCheck, since, until)
	require.NoError(t, err)
	assert.Len(t, samples, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}
