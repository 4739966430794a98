package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRecordNotFound indicates that no record exists at the requested address.
	ErrRecordNotFound = errors.New("store: record not found")
	// ErrUnavailable indicates that the storage substrate failed to serve the request.
	ErrUnavailable = errors.New("store: substrate unavailable")
	// ErrInvalidRecordInput indicates that a record input is missing required fields.
	ErrInvalidRecordInput = errors.New("store: invalid record input")
	// ErrInvalidLinkInput indicates that a link input is missing required fields.
	ErrInvalidLinkInput = errors.New("store: invalid link input")
)

// Record is an immutable, content-addressed entry in the substrate. The
// address is derived from author, creation time and content; the content
// bytes are opaque to the store.
type Record struct {
	Address   string
	Author    string
	Content   []byte
	CreatedAt time.Time
}

// RecordInput describes a record to be created. The store assigns the
// address and the creation timestamp.
type RecordInput struct {
	Author  string
	Content []byte
}

// Link is a directed, tagged relation between a base key and a target key.
// Either side may name a record address, an agent identity, or a derived
// index key; the store does not interpret them.
type Link struct {
	ID        string
	Base      string
	Tag       string
	Target    string
	CreatedAt time.Time
}

// LinkInput describes a link to be created. An empty Target inside a
// CreateRecord call is completed with the address of the record being
// created, so callers can link to a record whose address is not yet known.
type LinkInput struct {
	Base   string
	Tag    string
	Target string
}

// Store is the narrow interface to the content-addressed substrate. All
// higher layers depend on this abstraction, never on a concrete backend.
//
// CreateLink and DeleteLink are idempotent set operations keyed by
// (base, tag, target): creating an existing link or deleting an absent one
// succeeds without effect. ListLinks and ListBacklinks return links in
// creation order.
type Store interface {
	// CreateRecord persists the record together with the given links in a
	// single atomic step: either the record and every link become visible,
	// or nothing does.
	CreateRecord(ctx context.Context, input RecordInput, links []LinkInput) (Record, error)
	GetRecord(ctx context.Context, address string) (Record, error)
	ListRecordsByAuthor(ctx context.Context, author string) ([]Record, error)
	CreateLink(ctx context.Context, input LinkInput) (Link, error)
	DeleteLink(ctx context.Context, base, tag, target string) error
	ListLinks(ctx context.Context, base, tag string) ([]Link, error)
	ListBacklinks(ctx context.Context, target, tag string) ([]Link, error)
}

func validateRecordInput(input RecordInput) error {
	if input.Author == "" {
		return ErrInvalidRecordInput
	}
	return nil
}

func validateLinkInput(input LinkInput, allowEmptyTarget bool) error {
	if input.Base == "" || input.Tag == "" {
		return ErrInvalidLinkInput
	}
	if input.Target == "" && !allowEmptyTarget {
		return ErrInvalidLinkInput
	}
	return nil
}
