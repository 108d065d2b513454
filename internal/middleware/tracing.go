package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware returns otelgin followed by a handler that tags the live
// server span with the request id, the caller and any handler errors.
// Register both: router.Use(TracingMiddleware(name)...)
func TracingMiddleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), enrichSpan}
}

func enrichSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	if requestID := c.GetString(RequestIDKey); requestID != "" {
		span.SetAttributes(attribute.String("request.id", requestID))
	}
	if userID := c.GetString(util.ContextUserIDKey); userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
	for _, ginErr := range c.Errors {
		span.RecordError(ginErr.Err)
		span.SetStatus(codes.Error, ginErr.Error())
	}
}
