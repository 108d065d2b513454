package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var rej *Rejection
	require.True(t, errors.As(err, &rej), "expected a Rejection, got %v", err)
	return rej.Reason
}

func TestValidateBoundaries(t *testing.T) {
	assert.Equal(t, ReasonTooShort, reasonOf(t, Validate("123456789")))
	assert.NoError(t, Validate("1234567890"))
	assert.Equal(t, ReasonDotsOnly, reasonOf(t, Validate("....")))
	assert.Equal(t, ReasonSocialHandle, reasonOf(t, Validate("hello @friend check this out")))
}

func TestValidateTrimsBeforeCounting(t *testing.T) {
	assert.Equal(t, ReasonTooShort, reasonOf(t, Validate("   123456789   ")))
	assert.NoError(t, Validate("  1234567890\n"))
}

func TestValidateCountsRunes(t *testing.T) {
	// Ten runes, more than ten bytes
	assert.NoError(t, Validate("éééééééééé"))
	assert.Equal(t, ReasonTooShort, reasonOf(t, Validate("ééééééééé")))
}

func TestValidateDotsAndWhitespace(t *testing.T) {
	assert.Equal(t, ReasonDotsOnly, reasonOf(t, Validate(". . . . . . . . . . .")))
	assert.Equal(t, ReasonTooShort, reasonOf(t, Validate("")))
	assert.Equal(t, ReasonTooShort, reasonOf(t, Validate("     ")))
}

func TestValidateTooLong(t *testing.T) {
	assert.Equal(t, ReasonTooLong, reasonOf(t, Validate(strings.Repeat("a", MaxLength+1))))
	assert.NoError(t, Validate(strings.Repeat("a", MaxLength)))
}

func TestValidateEmailLooksLikeHandle(t *testing.T) {
	assert.Equal(t, ReasonSocialHandle, reasonOf(t, Validate("write me at someone@example.com")))
	assert.NoError(t, Validate("meet me @ the usual place"))
}
