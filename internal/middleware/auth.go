package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/auth"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/util"
	"go.uber.org/zap"
)

// AuthMiddleware requires a valid bearer token in Authorization or
// X-Authorization and stores the verified subject under util.ContextUserIDKey
func AuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			header = c.GetHeader("X-Authorization")
		}

		userID, err := verifier.Verify(auth.BearerToken(header))
		if err != nil {
			if errors.Is(err, auth.ErrMissingToken) {
				util.RespondUnauthorized(c, auth.ErrMissingToken.Error())
				return
			}
			logger.Log.Debug("Rejected bearer token",
				logger.WithRequestID(c.GetString(RequestIDKey)),
				zap.Error(err))
			util.RespondUnauthorized(c, auth.ErrInvalidToken.Error())
			return
		}

		c.Set(util.ContextUserIDKey, userID)
		c.Next()
	}
}
