package mews

import (
	"errors"
	"strings"
	"testing"
)

func intPointer(value int) *int {
	return &value
}

func TestValidateMewTextEnforcesBounds(t *testing.T) {
	policy := Policy{CharactersMin: intPointer(5), CharactersMax: intPointer(200)}

	tests := []struct {
		name        string
		text        string
		expectedErr error
	}{
		{name: "exactly minimum", text: strings.Repeat("a", 5), expectedErr: nil},
		{name: "exactly maximum", text: strings.Repeat("a", 200), expectedErr: nil},
		{name: "one below minimum", text: strings.Repeat("a", 4), expectedErr: ErrMewTooShort},
		{name: "one above maximum", text: strings.Repeat("a", 201), expectedErr: ErrMewTooLong},
		{name: "far below minimum", text: "hi", expectedErr: ErrMewTooShort},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateMewText(test.text, policy)
			if test.expectedErr == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("expected %v, got %v", test.expectedErr, err)
			}
		})
	}
}

func TestValidateMewTextCountsRunesNotBytes(t *testing.T) {
	policy := Policy{CharactersMax: intPointer(5)}

	// Five multi-byte characters are within a five character bound.
	if err := ValidateMewText("ねこねこね", policy); err != nil {
		t.Fatalf("expected five multi-byte characters to pass, got %v", err)
	}
	if err := ValidateMewText("ねこねこねこ", policy); !errors.Is(err, ErrMewTooLong) {
		t.Fatalf("expected six multi-byte characters to fail, got %v", err)
	}
}

func TestValidateMewTextUnrestrictedWithoutBounds(t *testing.T) {
	policy := Policy{}

	if err := ValidateMewText("", policy); err != nil {
		t.Fatalf("expected empty text to pass without bounds, got %v", err)
	}
	if err := ValidateMewText(strings.Repeat("a", 1000), policy); err != nil {
		t.Fatalf("expected 1000 characters to pass without bounds, got %v", err)
	}
}

func TestValidateMewTextIndependentBounds(t *testing.T) {
	minOnly := Policy{CharactersMin: intPointer(3)}
	if err := ValidateMewText(strings.Repeat("a", 1000), minOnly); err != nil {
		t.Fatalf("max should be unrestricted when unset, got %v", err)
	}
	if err := ValidateMewText("ab", minOnly); !errors.Is(err, ErrMewTooShort) {
		t.Fatalf("expected ErrMewTooShort, got %v", err)
	}

	maxOnly := Policy{CharactersMax: intPointer(3)}
	if err := ValidateMewText("", maxOnly); err != nil {
		t.Fatalf("min should be unrestricted when unset, got %v", err)
	}
	if err := ValidateMewText("abcd", maxOnly); !errors.Is(err, ErrMewTooLong) {
		t.Fatalf("expected ErrMewTooLong, got %v", err)
	}
}
