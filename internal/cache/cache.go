// Package cache is the read-through TTL cache behind the dashboards.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// Backend stores opaque values with a TTL. A missing or expired key is
// reported as ok == false with a nil error.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache wraps a Backend with logging. It is safe for concurrent use; racing
// misses on one key both compute and the last write wins.
type Cache struct {
	backend Backend
	logger  logrus.FieldLogger
}

func New(backend Backend, logger logrus.FieldLogger) *Cache {
	return &Cache{backend: backend, logger: logger.WithField("module", "cache")}
}

type Result[T any] struct {
	Value     T
	FromCache bool
}

// GetOrCompute returns the cached value for key, or calls compute, stores its
// result for ttl and returns it. Backend failures degrade to a miss; only an
// error from compute is returned.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (Result[T], error) {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache read failed, recomputing")
	}
	if err == nil && ok {
		var cached T
		decodeErr := json.Unmarshal(raw, &cached)
		if decodeErr == nil {
			return Result[T]{Value: cached, FromCache: true}, nil
		}
		c.logger.WithError(decodeErr).WithField("key", key).Warn("discarding undecodable cache entry")
	}

	fresh, err := compute(ctx)
	if err != nil {
		return Result[T]{}, err
	}

	encoded, err := json.Marshal(fresh)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache encode failed")
		return Result[T]{Value: fresh}, nil
	}
	if err := c.backend.Set(ctx, key, encoded, ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return Result[T]{Value: fresh}, nil
}
