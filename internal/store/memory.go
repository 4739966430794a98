package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store with in-process maps. It stands in for the
// distributed substrate in tests and single-node deployments.
type MemoryStore struct {
	mu      sync.Mutex
	clock   func() time.Time
	ids     IDProvider
	records map[string]Record
	links   []Link
	linkSet map[string]struct{}
}

// MemoryStoreConfig configures a MemoryStore.
type MemoryStoreConfig struct {
	Clock      func() time.Time
	IDProvider IDProvider
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	return &MemoryStore{
		clock:   clock,
		ids:     ids,
		records: make(map[string]Record),
		linkSet: make(map[string]struct{}),
	}
}

// CreateRecord persists the record and its links atomically under one lock.
func (s *MemoryStore) CreateRecord(_ context.Context, input RecordInput, links []LinkInput) (Record, error) {
	if err := validateRecordInput(input); err != nil {
		return Record{}, err
	}
	for _, link := range links {
		if err := validateLinkInput(link, true); err != nil {
			return Record{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.clock().UTC()
	address := DeriveAddress(input.Author, createdAt, input.Content)
	if existing, ok := s.records[address]; ok {
		return existing, nil
	}

	record := Record{
		Address:   address,
		Author:    input.Author,
		Content:   append([]byte(nil), input.Content...),
		CreatedAt: createdAt,
	}
	s.records[address] = record
	appended := make([]string, 0, len(links))
	for _, link := range links {
		target := link.Target
		if target == "" {
			target = address
		}
		key, err := s.appendLink(LinkInput{Base: link.Base, Tag: link.Tag, Target: target})
		if err != nil {
			delete(s.records, address)
			s.removeLinkKeys(appended)
			return Record{}, err
		}
		if key != "" {
			appended = append(appended, key)
		}
	}
	return record, nil
}

// GetRecord fetches a record by address.
func (s *MemoryStore) GetRecord(_ context.Context, address string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[address]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, address)
	}
	return record, nil
}

// ListRecordsByAuthor returns the author's records in creation order.
func (s *MemoryStore) ListRecordsByAuthor(_ context.Context, author string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]Record, 0)
	for _, record := range s.records {
		if record.Author == author {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Address < records[j].Address
	})
	return records, nil
}

// CreateLink idempotently creates a link.
func (s *MemoryStore) CreateLink(_ context.Context, input LinkInput) (Link, error) {
	if err := validateLinkInput(input, false); err != nil {
		return Link{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.appendLink(input); err != nil {
		return Link{}, err
	}
	for _, link := range s.links {
		if link.Base == input.Base && link.Tag == input.Tag && link.Target == input.Target {
			return link, nil
		}
	}
	return Link{}, fmt.Errorf("%w: link lookup after create", ErrUnavailable)
}

// DeleteLink idempotently removes a link.
func (s *MemoryStore) DeleteLink(_ context.Context, base, tag, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey(base, tag, target)
	if _, ok := s.linkSet[key]; !ok {
		return nil
	}
	delete(s.linkSet, key)
	kept := s.links[:0]
	for _, link := range s.links {
		if link.Base == base && link.Tag == tag && link.Target == target {
			continue
		}
		kept = append(kept, link)
	}
	s.links = kept
	return nil
}

// ListLinks returns links from base with the given tag in creation order.
func (s *MemoryStore) ListLinks(_ context.Context, base, tag string) ([]Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	links := make([]Link, 0)
	for _, link := range s.links {
		if link.Base == base && link.Tag == tag {
			links = append(links, link)
		}
	}
	return links, nil
}

// ListBacklinks returns links pointing at target with the given tag in creation order.
func (s *MemoryStore) ListBacklinks(_ context.Context, target, tag string) ([]Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	links := make([]Link, 0)
	for _, link := range s.links {
		if link.Target == target && link.Tag == tag {
			links = append(links, link)
		}
	}
	return links, nil
}

// appendLink requires s.mu to be held. It returns the key of a newly
// created link, or an empty key when the link already existed.
func (s *MemoryStore) appendLink(input LinkInput) (string, error) {
	key := linkKey(input.Base, input.Tag, input.Target)
	if _, ok := s.linkSet[key]; ok {
		return "", nil
	}
	linkID, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.linkSet[key] = struct{}{}
	s.links = append(s.links, Link{
		ID:        linkID,
		Base:      input.Base,
		Tag:       input.Tag,
		Target:    input.Target,
		CreatedAt: s.clock().UTC(),
	})
	return key, nil
}

// removeLinkKeys requires s.mu to be held.
func (s *MemoryStore) removeLinkKeys(keys []string) {
	if len(keys) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		drop[key] = struct{}{}
		delete(s.linkSet, key)
	}
	kept := s.links[:0]
	for _, link := range s.links {
		if _, ok := drop[linkKey(link.Base, link.Tag, link.Target)]; ok {
			continue
		}
		kept = append(kept, link)
	}
	s.links = kept
}

func linkKey(base, tag, target string) string {
	return base + "\x00" + tag + "\x00" + target
}
