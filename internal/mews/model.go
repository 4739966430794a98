package mews

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mewsnet/mewsfeed/backend/internal/store"
)

// MewKind enumerates the closed set of mew variants.
type MewKind string

const (
	// MewKindOriginal is a standalone mew.
	MewKindOriginal MewKind = "original"
	// MewKindReply is a mew written in response to another mew.
	MewKindReply MewKind = "reply"
	// MewKindRequote is a mew quoting another mew (a "mewmew").
	MewKindRequote MewKind = "requote"
)

var (
	// ErrMalformedInput indicates that a payload does not satisfy the input contract.
	ErrMalformedInput = errors.New("mews: malformed input")
	// ErrMewTooShort indicates that the text is below the configured minimum length.
	ErrMewTooShort = errors.New("mews: text below minimum length")
	// ErrMewTooLong indicates that the text exceeds the configured maximum length.
	ErrMewTooLong = errors.New("mews: text above maximum length")
)

// MewType is the tagged variant of a mew. Of names the referenced mew for
// replies and requotes and must be empty for originals.
type MewType struct {
	Kind MewKind `json:"kind"`
	Of   string  `json:"of,omitempty"`
}

// Validate checks the variant invariants.
func (t MewType) Validate() error {
	switch t.Kind {
	case MewKindOriginal:
		if t.Of != "" {
			return fmt.Errorf("%w: original mew must not reference another mew", ErrMalformedInput)
		}
		return nil
	case MewKindReply, MewKindRequote:
		if t.Of == "" {
			return fmt.Errorf("%w: %s mew must reference another mew", ErrMalformedInput, t.Kind)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mew type %q", ErrMalformedInput, t.Kind)
	}
}

// CreateMewInput is the payload for creating a mew.
type CreateMewInput struct {
	Text    string
	Links   []string
	MewType MewType
}

// Mew is an immutable published record.
type Mew struct {
	Address   string
	Author    string
	Text      string
	MewType   MewType
	Links     []string
	CreatedAt time.Time
}

// FeedMew is a mew enriched with its read-time context. Derived on read,
// never stored.
type FeedMew struct {
	Mew
	LickCount      int
	ReplyCount     int
	RequoteCount   int
	LickedByCaller bool
}

// FeedOptions selects a page of the caller's feed. Cursor is an opaque
// token returned by the previous page; empty means start from the newest.
type FeedOptions struct {
	Limit  int
	Cursor string
}

// FeedPage is one page of a feed. Cursor is the token for the next page
// and is empty once the feed is exhausted.
type FeedPage struct {
	Mews   []FeedMew
	Cursor string
}

// mewContent is the serialized payload stored in the substrate record.
type mewContent struct {
	Text    string   `json:"text"`
	MewType MewType  `json:"mew_type"`
	Links   []string `json:"links,omitempty"`
}

func encodeMewContent(input CreateMewInput) ([]byte, error) {
	return json.Marshal(mewContent{
		Text:    input.Text,
		MewType: input.MewType,
		Links:   input.Links,
	})
}

func decodeMew(record store.Record) (Mew, error) {
	var content mewContent
	if err := json.Unmarshal(record.Content, &content); err != nil {
		return Mew{}, fmt.Errorf("%w: undecodable record content at %s", ErrMalformedInput, record.Address)
	}
	return Mew{
		Address:   record.Address,
		Author:    record.Author,
		Text:      content.Text,
		MewType:   content.MewType,
		Links:     content.Links,
		CreatedAt: record.CreatedAt,
	}, nil
}
