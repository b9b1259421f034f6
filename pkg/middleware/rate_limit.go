package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sachtalks/sachtalks-api/pkg/metrics"
	"golang.org/x/time/rate"
)

// Budget is the request allowance one client IP gets on a group of routes.
// Budgets with different names never share a bucket.
type Budget struct {
	Name  string
	RPS   float64
	Burst int
}

// Per-window allowance for the fixed-window Redis limiter.
func (b Budget) perWindow(window time.Duration) int64 {
	return int64(b.RPS*window.Seconds()) + int64(b.Burst)
}

func clientKey(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func reject(c *gin.Context, limiter string, b Budget, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	metrics.RateLimitRejected.WithLabelValues(limiter, b.Name).Inc()
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Too many requests. Please try again later."})
}

type memoryLimiter struct {
	budget  Budget
	buckets sync.Map // client ip -> *rate.Limiter
}

func (l *memoryLimiter) bucket(key string) *rate.Limiter {
	if v, ok := l.buckets.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := l.buckets.LoadOrStore(key, rate.NewLimiter(rate.Limit(l.budget.RPS), l.budget.Burst))
	return v.(*rate.Limiter)
}

// RateLimitMiddleware enforces b per client IP with an in-process token bucket.
func RateLimitMiddleware(b Budget) gin.HandlerFunc {
	l := &memoryLimiter{budget: b}
	return func(c *gin.Context) {
		if !l.bucket(clientKey(c)).Allow() {
			retry := time.Second
			if b.RPS > 0 {
				retry = time.Duration(float64(time.Second) / b.RPS)
			}
			reject(c, "memory", b, retry)
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory", b.Name).Inc()
		c.Next()
	}
}
