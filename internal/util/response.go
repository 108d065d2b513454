package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/errors"
	"github.com/zfogg/hushmap/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	requestID := c.GetString("request_id")
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			logger.WithRequestID(requestID),
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.Int("status", apiErr.Status),
		)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error",
			logger.WithRequestID(requestID),
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("field", apiErr.Field),
		)
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondNotFound sends a 404 Not Found response
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "bad request"
	}
	RespondWithAPIError(c, errors.BadRequest(message))
}

// RespondForbidden sends a 403 Forbidden response
func RespondForbidden(c *gin.Context, message ...string) {
	msg := "forbidden"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Forbidden(msg))
}

// RespondInternalError sends a 500 with a generic message. Log the cause before calling.
func RespondInternalError(c *gin.Context, message ...string) {
	msg := "internal server error"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.InternalError(msg))
}

// RespondValidationError sends a 400 validation response for one field
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}
