package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Cache key prefixes
const (
	// CacheKeyReport holds the latest monitor report: healthpulse:report:latest
	CacheKeyReport = "healthpulse:report"
)

// TTLReport bounds how long a report is served after monitor cycles stop.
const TTLReport = 24 * time.Hour

// ErrCacheNotFound is returned when a cache key does not exist
var ErrCacheNotFound = errors.New("cache: key not found")

// CacheClient is a JSON value cache.
type CacheClient interface {
	// Get deserializes the value at key into dest. Returns ErrCacheNotFound if key doesn't exist.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores value as JSON with the given TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete removes a key.
	Delete(ctx context.Context, key string) error
}

type redisCache struct {
	client *redis.Client
}

// NewCacheClient creates a Redis backed CacheClient. A nil client makes every call fail.
func NewCacheClient(rdb *redis.Client) CacheClient {
	return &redisCache{client: rdb}
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return fmt.Errorf("cache: %w", model.ErrNotConfigured)
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache: failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("cache: failed to unmarshal value for key %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return fmt.Errorf("cache: %w", model.ErrNotConfigured)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal value for key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to set key %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if c.client == nil {
		return fmt.Errorf("cache: %w", model.ErrNotConfigured)
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: failed to delete key %s: %w", key, err)
	}
	return nil
}

// BuildCacheKey joins a prefix and parts with ":".
func BuildCacheKey(prefix string, parts ...string) string {
	key := prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

// ReportCache stores the latest monitor report for GET /slo.
type ReportCache struct {
	cache CacheClient
}

// NewReportCache creates a ReportCache.
func NewReportCache(cache CacheClient) *ReportCache {
	return &ReportCache{cache: cache}
}

// SaveReport replaces the latest report.
func (r *ReportCache) SaveReport(ctx context.Context, report *model.MonitorReport) error {
	return r.cache.Set(ctx, BuildCacheKey(CacheKeyReport, "latest"), report, TTLReport)
}

// LatestReport returns the latest report or ErrCacheNotFound.
func (r *ReportCache) LatestReport(ctx context.Context) (*model.MonitorReport, error) {
	var report model.MonitorReport
	if err := r.cache.Get(ctx, BuildCacheKey(CacheKeyReport, "latest"), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// QueryCache is an in-process expiring LRU of GET /metrics results.
type QueryCache struct {
	lru *expirable.LRU[string, []*model.HealthSample]
}

// NewQueryCache creates a QueryCache sized from configuration.
func NewQueryCache(c *conf.Data) *QueryCache {
	size, ttl := 256, 30*time.Second
	if c != nil && c.QueryCache != nil {
		if c.QueryCache.Size > 0 {
			size = c.QueryCache.Size
		}
		if d := c.QueryCache.Ttl.AsDuration(); d > 0 {
			ttl = d
		}
	}
	return &QueryCache{
		lru: expirable.NewLRU[string, []*model.HealthSample](size, nil, ttl),
	}
}

// QueryKey identifies a metrics query.
func QueryKey(serviceName, timeRange string, limit int) string {
	return serviceName + "|" + timeRange + "|" + strconv.Itoa(limit)
}

// Get returns cached samples for key.
func (c *QueryCache) Get(key string) ([]*model.HealthSample, bool) {
	return c.lru.Get(key)
}

// Add caches samples under key.
func (c *QueryCache) Add(key string, samples []*model.HealthSample) {
	c.lru.Add(key, samples)
}

// Purge drops every cached query.
func (c *QueryCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached queries.
func (c *QueryCache) Len() int {
	return c.lru.Len()
}
