package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/util"
	"go.uber.org/zap"
)

// GinLoggerMiddleware logs every request with structured fields, replacing gin.Logger.
// The query string is not logged since it carries coordinates.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			logger.WithStatus(status),
			logger.WithIP(c.ClientIP()),
			zap.Int("response_size", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			fields = append(fields, logger.WithRequestID(requestID))
		}
		if userID := c.GetString(util.ContextUserIDKey); userID != "" {
			fields = append(fields, logger.WithUserID(userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Log.Error("HTTP request", fields...)
		case status >= 400:
			logger.Log.Warn("HTTP request", fields...)
		default:
			logger.Log.Info("HTTP request", fields...)
		}
	}
}
