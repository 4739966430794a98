package mews

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// feedCursor marks the boundary of the last item returned by a feed page.
// Pagination slices strictly past the boundary, so a page never re-returns
// an item already seen even when new records arrive in between.
type feedCursor struct {
	createdAtNanos int64
	address        string
}

// EncodeFeedCursor produces the opaque page token for the given boundary
// item. Clients treat the token as opaque; its only contract is strict
// forward progress.
func EncodeFeedCursor(createdAt time.Time, address string) string {
	raw := fmt.Sprintf("%d|%s", createdAt.UnixNano(), address)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeFeedCursor(token string) (feedCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return feedCursor{}, fmt.Errorf("%w: undecodable feed cursor", ErrMalformedInput)
	}
	nanosText, address, found := strings.Cut(string(raw), "|")
	if !found || address == "" {
		return feedCursor{}, fmt.Errorf("%w: undecodable feed cursor", ErrMalformedInput)
	}
	nanos, err := strconv.ParseInt(nanosText, 10, 64)
	if err != nil {
		return feedCursor{}, fmt.Errorf("%w: undecodable feed cursor", ErrMalformedInput)
	}
	return feedCursor{createdAtNanos: nanos, address: address}, nil
}

// isAfter reports whether the mew sorts strictly after the cursor boundary
// in the newest-first feed order.
func (c feedCursor) isAfter(mew Mew) bool {
	nanos := mew.CreatedAt.UnixNano()
	if nanos != c.createdAtNanos {
		return nanos < c.createdAtNanos
	}
	return mew.Address < c.address
}
