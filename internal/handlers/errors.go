package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/circles"
	apierrors "github.com/zfogg/hushmap/internal/errors"
	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/referrals"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/threads"
	"github.com/zfogg/hushmap/internal/util"
	"github.com/zfogg/hushmap/internal/validation"
	"go.uber.org/zap"
)

// respondError maps a domain error onto the API error taxonomy. Unknown
// errors are logged and answered with a generic 500 so store details never
// reach the client.
func respondError(c *gin.Context, err error, resource string) {
	var (
		apiErr    *apierrors.APIError
		rejection *validation.Rejection
		fieldErr  *feed.FieldError
	)

	switch {
	case errors.As(err, &apiErr):
		util.RespondWithAPIError(c, apiErr)
	case errors.As(err, &rejection):
		util.RespondWithAPIError(c, apierrors.ValidationError("content", rejection.Message).WithDetails(rejection.Reason))
	case errors.As(err, &fieldErr):
		util.RespondValidationError(c, fieldErr.Field, fieldErr.Message)
	case errors.Is(err, repository.ErrNotFound):
		util.RespondNotFound(c, resource)
	case errors.Is(err, threads.ErrExhausted):
		util.RespondWithAPIError(c, apierrors.ThreadIDExhausted())

	case errors.Is(err, circles.ErrRewardNotClaimable):
		util.RespondNotFound(c, "claimable reward")
	case errors.Is(err, circles.ErrFriendNotFound):
		util.RespondNotFound(c, "friend")
	case errors.Is(err, circles.ErrInvalidCircleType):
		util.RespondValidationError(c, "type", err.Error())
	case errors.Is(err, circles.ErrLocationRequired), errors.Is(err, circles.ErrInvalidCoordinates):
		util.RespondValidationError(c, "lat", err.Error())
	case errors.Is(err, circles.ErrFriendRequired):
		util.RespondValidationError(c, "friend_user_id", err.Error())
	case errors.Is(err, circles.ErrRewardExpired), errors.Is(err, circles.ErrLocationUnavailable):
		util.RespondBadRequest(c, err.Error())

	case errors.Is(err, referrals.ErrCodeNotRedeemable):
		util.RespondNotFound(c, "redeemable referral code")
	case errors.Is(err, referrals.ErrSelfReferral), errors.Is(err, referrals.ErrCodeRequired):
		util.RespondValidationError(c, "referral_code", err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		util.RespondWithAPIError(c, apierrors.Timeout(resource+" request"))
	default:
		logger.Log.Error("Request failed",
			logger.WithRequestID(c.GetString("request_id")),
			zap.String("path", c.FullPath()),
			zap.String("resource", resource),
			zap.Error(err))
		util.RespondInternalError(c)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
