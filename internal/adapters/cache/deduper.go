package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/prizeboard/internal/domain/dedupe"
	"github.com/okian/prizeboard/pkg/logger"
	"github.com/okian/prizeboard/pkg/metrics"
)

const (
	defaultKeyPrefix = "prizeboard:settling:"
	defaultTTL       = 10 * time.Minute
)

// Option applies a configuration option to the RedisDeduper.
type Option func(*RedisDeduper)

// WithKeyPrefix namespaces the in-flight keys.
func WithKeyPrefix(prefix string) Option {
	return func(d *RedisDeduper) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithTTL bounds how long a crashed worker can hold a key.
func WithTTL(ttl time.Duration) Option {
	return func(d *RedisDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// RedisDeduper shares the in-flight set across service instances with SETNX.
// Redis errors fail open: the ledger's credit key still prevents double pay.
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	size   atomic.Int64
	log    logger.Logger
}

var _ dedupe.Deduper = (*RedisDeduper)(nil)

// NewRedisDeduper creates a deduper on client.
func NewRedisDeduper(client *redis.Client, opts ...Option) *RedisDeduper {
	d := &RedisDeduper{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    defaultTTL,
		log:    logger.Get().Named("dedupe"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Key returns the Redis key used for id.
func (d *RedisDeduper) Key(id string) string { return d.prefix + id }

// SeenAndRecord implements dedupe.Deduper.
func (d *RedisDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	ok, err := d.client.SetNX(ctx, d.Key(id), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		metrics.RecordErrorByComponent("dedupe", "redis")
		d.log.Warn(ctx, "redis setnx failed, continuing without dedupe",
			logger.String("id", id), logger.Error(err))
		return false
	}
	if !ok {
		return true
	}
	d.size.Add(1)
	return false
}

// Unrecord implements dedupe.Deduper.
func (d *RedisDeduper) Unrecord(ctx context.Context, id string) {
	n, err := d.client.Del(ctx, d.Key(id)).Result()
	if err != nil {
		metrics.RecordErrorByComponent("dedupe", "redis")
		d.log.Warn(ctx, "redis del failed", logger.String("id", id), logger.Error(err))
		return
	}
	if n > 0 {
		d.size.Add(-1)
	}
}

// Size reports keys recorded by this instance that are still held.
func (d *RedisDeduper) Size() int64 {
	return d.size.Load()
}

// Close closes the underlying client.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}
