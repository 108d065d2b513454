package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err    *APIError
		status int
		code   ErrorCode
	}{
		{NotFound("post"), http.StatusNotFound, ErrNotFound},
		{Unauthorized("no token"), http.StatusUnauthorized, ErrUnauthorized},
		{Forbidden("nope"), http.StatusForbidden, ErrForbidden},
		{ValidationError("content", "too short"), http.StatusBadRequest, ErrValidation},
		{BadRequest("bad"), http.StatusBadRequest, ErrBadRequest},
		{InternalError("boom"), http.StatusInternalServerError, ErrInternalError},
		{ThreadIDExhausted(), http.StatusInternalServerError, ErrThreadIDExhausted},
		{RateLimited(""), http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.Status, string(tc.code))
		assert.Equal(t, tc.code, tc.err.Code)
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: post not found", NotFound("post").Error())
	assert.Equal(t, "VALIDATION_ERROR: too short (field: content)", ValidationError("content", "too short").Error())
}

func TestUnknownCodeDefaultsTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("SOMETHING_ELSE").StatusCode())
}

func TestExhaustedIsDistinguishableFromInternal(t *testing.T) {
	exhausted := ThreadIDExhausted()
	internal := InternalError("store failure")
	assert.Equal(t, exhausted.Status, internal.Status)
	assert.NotEqual(t, exhausted.Code, internal.Code)
}
