package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
	"github.com/sachtalks/sachtalks-api/pkg/metrics"
)

const cacheKey = "youtube:videos"

// CachedSource is a read-through Redis cache in front of a Source.
// Failures are never cached and Redis errors fall through to the source.
type CachedSource struct {
	src Source
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedSource(src Source, rdb *redis.Client, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedSource{src: src, rdb: rdb, ttl: ttl}
}

func (c *CachedSource) Videos(ctx context.Context) ([]Video, error) {
	raw, err := c.rdb.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var vids []Video
		if jerr := json.Unmarshal(raw, &vids); jerr == nil {
			metrics.CacheLookups.WithLabelValues("youtube", "hit").Inc()
			return vids, nil
		}
		metrics.CacheLookups.WithLabelValues("youtube", "error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("youtube", "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("youtube", "error").Inc()
		logger.Warnf("youtube cache read failed: %v", err)
	}

	vids, err := c.src.Videos(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(vids); err == nil {
		if err := c.rdb.Set(ctx, cacheKey, b, c.ttl).Err(); err != nil {
			logger.Warnf("youtube cache write failed: %v", err)
		}
	}
	return vids, nil
}
