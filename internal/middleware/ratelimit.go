package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/errors"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/metrics"
	"github.com/zfogg/hushmap/internal/util"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 120, Window: time.Minute}
}

// WindowCounter counts hits in fixed windows. The redis client implements
// it for multi-instance deployments; MemoryWindowCounter covers one process.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitMiddleware rejects callers that exceed config.Limit requests per
// window. Authenticated callers are keyed by user id, others by client IP.
// A counter failure rejects the request rather than running unlimited.
func RateLimitMiddleware(counter WindowCounter, config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "rate_limit:ip:" + c.ClientIP()
		if userID := c.GetString(util.ContextUserIDKey); userID != "" {
			key = "rate_limit:user:" + userID
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		count, err := counter.IncrWindow(ctx, key, config.Window)
		cancel()
		if err != nil {
			logger.Log.Error("Rate limit check failed, rejecting request",
				logger.WithIP(c.ClientIP()),
				zap.Error(err))
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			return
		}

		remaining := config.Limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(config.Limit) {
			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			metrics.Get().RateLimitExceededTotal.WithLabelValues(path).Inc()
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			util.RespondWithAPIError(c, errors.RateLimited(""))
			return
		}
		c.Next()
	}
}

type windowEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryWindowCounter is an in-process WindowCounter
type MemoryWindowCounter struct {
	mu        sync.Mutex
	entries   map[string]*windowEntry
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryWindowCounter creates an empty counter
func NewMemoryWindowCounter() *MemoryWindowCounter {
	return &MemoryWindowCounter{entries: make(map[string]*windowEntry), now: time.Now}
}

// IncrWindow increments key, starting a new window when the old one has passed
func (m *MemoryWindowCounter) IncrWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.After(m.nextSweep) {
		for k, e := range m.entries {
			if !now.Before(e.resetAt) {
				delete(m.entries, k)
			}
		}
		m.nextSweep = now.Add(window)
	}

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &windowEntry{resetAt: now.Add(window)}
		m.entries[key] = e
	}
	e.count++
	return e.count, nil
}
