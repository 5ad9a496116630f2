// Package data provides the external collaborators: the MySQL sample store, the Redis
// fallback queue and report cache, the metrics sink, probes, notifier and audit log.
package data

import (
	"context"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewMySQLClient,
	NewRedisClient,
	NewCacheClient,
	NewSampleStore,
	NewFallbackQueue,
	NewQueryCache,
	NewReportCache,
	NewPrometheusSink,
	NewAuditLogger,
	NewNotifier,
	NewAPIProbe,
	NewDatastoreProbe,
	NewQueueProbe,
)

// Data holds the shared connections used by repositories and probes.
type Data struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewData creates a new Data instance.
// A missing Redis client does not prevent startup; queue and cache calls degrade instead.
func NewData(_ *conf.Data, logger log.Logger, db *gorm.DB, rdb *redis.Client) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	if rdb == nil {
		helper.Warn("Redis client is nil, fallback queue and report cache are unavailable")
	}

	d := &Data{db: db, rdb: rdb}

	cleanup := func() {
		helper.Info("closing the data resources")
	}

	return d, cleanup, nil
}

// PingDatabase checks connectivity to the sample store.
func (d *Data) PingDatabase(ctx context.Context) error {
	if d.db == nil {
		return model.ErrNotConfigured
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PingRedis checks connectivity to Redis.
func (d *Data) PingRedis(ctx context.Context) error {
	if d.rdb == nil {
		return model.ErrNotConfigured
	}
	return d.rdb.Ping(ctx).Err()
}

// RedisConfigured reports whether a Redis client exists.
func (d *Data) RedisConfigured() bool {
	return d.rdb != nil
}
