package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/hushmap/internal/auth"
	"github.com/zfogg/hushmap/internal/util"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(util.ContextUserIDKey)})
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	generated := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestAuthMiddleware(t *testing.T) {
	verifier := auth.NewJWTVerifier("secret", "")
	token, err := verifier.Sign("user-42", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.Use(AuthMiddleware(verifier))
	router.GET("/me", whoami)

	cases := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"authorization header", "Authorization", "Bearer " + token, http.StatusOK},
		{"x-authorization header", "X-Authorization", "Bearer " + token, http.StatusOK},
		{"bare token", "Authorization", token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"garbage", "Authorization", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), "user-42")
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(NewMemoryWindowCounter(), RateLimitConfig{Limit: 3, Window: time.Second}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// First 3 requests should succeed
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	// 4th request should be rate limited
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimiterKeysByUser(t *testing.T) {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(util.ContextUserIDKey, c.GetHeader("X-Test-User"))
		c.Next()
	})
	router.Use(RateLimitMiddleware(NewMemoryWindowCounter(), RateLimitConfig{Limit: 1, Window: time.Minute}))
	router.GET("/me", whoami)

	send := func(user string) int {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("X-Test-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
	assert.Equal(t, http.StatusOK, send("b"))
}

type brokenCounter struct{}

func (brokenCounter) IncrWindow(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestRateLimiterCounterFailure(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(brokenCounter{}, DefaultRateLimitConfig()))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMemoryWindowCounterResets(t *testing.T) {
	counter := NewMemoryWindowCounter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	counter.now = func() time.Time { return now }

	ctx := context.Background()
	n, _ := counter.IncrWindow(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), n)
	n, _ = counter.IncrWindow(ctx, "k", time.Minute)
	assert.Equal(t, int64(2), n)

	now = now.Add(time.Minute)
	n, _ = counter.IncrWindow(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), n)
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/posts/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/posts/123", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
