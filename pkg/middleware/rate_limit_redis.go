package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
	"github.com/sachtalks/sachtalks-api/pkg/metrics"
)

// RedisRateLimitMiddleware enforces b per client IP with a fixed window shared by
// every replica. Each window allows floor(RPS*window)+Burst requests.
// Without a client it falls back to the in-process limiter.
func RedisRateLimitMiddleware(client *redis.Client, b Budget, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(b)
	}
	if window < time.Second {
		window = time.Second
	}
	secs := int64(window / time.Second)
	allowed := b.perWindow(window)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("rl:%s:%s:%d", b.Name, clientKey(c), time.Now().Unix()/secs)

		cnt, err := client.Incr(ctx, key).Result()
		if err != nil {
			// fail open when Redis is unreachable
			logger.Warnf("rate limit check failed (budget=%s): %v", b.Name, err)
			metrics.RateLimitAllowed.WithLabelValues("redis_unavailable", b.Name).Inc()
			c.Next()
			return
		}
		if cnt == 1 {
			_ = client.Expire(ctx, key, window+time.Second).Err()
		}
		if cnt > allowed {
			reject(c, "redis", b, window)
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis", b.Name).Inc()
		c.Next()
	}
}
