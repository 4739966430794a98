package store

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"
)

// DeriveAddress computes the content-derived address of a record: a
// base64url-encoded SHA-256 digest over author, creation time and content.
// The same inputs always yield the same address, so concurrent creates of
// identical content by the same author at the same instant converge on one
// record instead of conflicting.
func DeriveAddress(author string, createdAt time.Time, content []byte) string {
	digest := sha256.New()
	digest.Write([]byte(author))
	digest.Write([]byte{0})
	var nanos [8]byte
	binary.BigEndian.PutUint64(nanos[:], uint64(createdAt.UnixNano()))
	digest.Write(nanos[:])
	digest.Write([]byte{0})
	digest.Write(content)
	return base64.RawURLEncoding.EncodeToString(digest.Sum(nil))
}
