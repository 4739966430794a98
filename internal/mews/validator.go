package mews

import (
	"fmt"
	"unicode/utf8"
)

// Policy carries the deployment-configured content length bounds. Either
// bound may be nil, which imposes no constraint on that side.
type Policy struct {
	CharactersMin *int
	CharactersMax *int
}

// ValidateMewText enforces the policy bounds on the text. Length is
// measured in runes so multi-byte text counts by character, not by byte.
func ValidateMewText(text string, policy Policy) error {
	length := utf8.RuneCountInString(text)
	if policy.CharactersMin != nil && length < *policy.CharactersMin {
		return fmt.Errorf("%w: %d characters, minimum is %d", ErrMewTooShort, length, *policy.CharactersMin)
	}
	if policy.CharactersMax != nil && length > *policy.CharactersMax {
		return fmt.Errorf("%w: %d characters, maximum is %d", ErrMewTooLong, length, *policy.CharactersMax)
	}
	return nil
}
