package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/util"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding tags on gin's validator:
// reaction_type, claim_circle_type, and the exactly-one-of post_id/reply_id
// rule for targetRequest. Field names in errors follow the json tags.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin binding engine is not go-playground/validator")
			return
		}

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		if err := v.RegisterValidation("reaction_type", oneOf(models.ReactionLike, models.ReactionDislike)); err != nil {
			registerErr = err
			return
		}
		if err := v.RegisterValidation("claim_circle_type", oneOf(models.CircleTypeFixed, models.CircleTypeFriendLocation)); err != nil {
			registerErr = err
			return
		}
		v.RegisterStructValidation(validateTarget, targetRequest{})
	})
	return registerErr
}

func oneOf(allowed ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}

// targetRequest names exactly one of a post or a reply
type targetRequest struct {
	PostID  string `json:"post_id" binding:"omitempty,uuid"`
	ReplyID string `json:"reply_id" binding:"omitempty,uuid"`
}

func validateTarget(sl validator.StructLevel) {
	// The struct is embedded unexported, so read fields instead of Interface()
	postID := sl.Current().FieldByName("PostID").String()
	replyID := sl.Current().FieldByName("ReplyID").String()
	if (postID == "") == (replyID == "") {
		sl.ReportError(postID, "post_id", "PostID", "exactly_one_target", "")
	}
}

// bindJSON binds the body into req and answers 400 naming the first bad field
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		util.RespondValidationError(c, fe.Field(), validationMessage(fe))
		return false
	}
	util.RespondBadRequest(c, "invalid request body")
	return false
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid id"
	case "reaction_type":
		return "must be like or dislike"
	case "claim_circle_type":
		return "must be fixed or friend_location"
	case "exactly_one_target":
		return "exactly one of post_id or reply_id is required"
	case "latitude":
		return "must be between -90 and 90"
	case "longitude":
		return "must be between -180 and 180"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

// idParam reads a uuid path parameter. Malformed ids are answered as not found.
func idParam(c *gin.Context, resource string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		util.RespondNotFound(c, resource)
		return "", false
	}
	return id, true
}
