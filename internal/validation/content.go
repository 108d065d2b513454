// Package validation gates user-submitted post and reply text before it is
// persisted.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinLength is the minimum number of runes after trimming
	MinLength = 10
	// MaxLength is the maximum number of runes after trimming
	MaxLength = 2000
)

// Rejection reasons
const (
	ReasonDotsOnly     = "dots_only"
	ReasonTooShort     = "too_short"
	ReasonTooLong      = "too_long"
	ReasonSocialHandle = "social_handle"
)

var (
	dotsOnlyPattern     = regexp.MustCompile(`^[.\s]+$`)
	socialHandlePattern = regexp.MustCompile(`@\w+`)
)

// Rejection is returned when content fails a rule
type Rejection struct {
	Reason  string
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("content rejected (%s): %s", r.Reason, r.Message)
}

// Validate checks text against the content rules. The first failing rule wins.
// Dots-only runs before the length rule so "...." reports dots_only.
func Validate(text string) error {
	trimmed := strings.TrimSpace(text)

	if dotsOnlyPattern.MatchString(trimmed) {
		return &Rejection{Reason: ReasonDotsOnly, Message: "Please put some effort into your secret!"}
	}

	n := utf8.RuneCountInString(trimmed)
	if n < MinLength {
		return &Rejection{Reason: ReasonTooShort, Message: "Secret must be at least a few words"}
	}
	if n > MaxLength {
		return &Rejection{Reason: ReasonTooLong, Message: fmt.Sprintf("Secret must be at most %d characters", MaxLength)}
	}

	if socialHandlePattern.MatchString(trimmed) {
		return &Rejection{Reason: ReasonSocialHandle, Message: "Social media handles are not allowed"}
	}

	return nil
}
