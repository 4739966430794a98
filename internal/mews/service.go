package mews

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mewsnet/mewsfeed/backend/internal/follows"
	"github.com/mewsnet/mewsfeed/backend/internal/licks"
	"github.com/mewsnet/mewsfeed/backend/internal/store"
	"go.uber.org/zap"
)

// Link tags for reverse references written at creation time. The base is
// the referenced mew, the target the referencing one, so reply and requote
// counts are single link listings.
const (
	replyLinkTag   = "reply"
	requoteLinkTag = "requote"
)

var (
	errMissingStore   = errors.New("store is required")
	errMissingFollows = errors.New("follows service is required")
	errMissingLicks   = errors.New("licks service is required")
	errMissingAuthor  = errors.New("author identity is required")
	noOpLogger        = zap.NewNop()
)

// ServiceError carries a dotted operation code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew  = "mews.service.new"
	opCreateMew   = "mews.create_mew"
	opGetMew      = "mews.get_mew"
	opMewsBy      = "mews.mews_by"
	opMewsFeed    = "mews.mews_feed"
	opMewContext  = "mews.get_feed_mew_and_context"
	opMewsWithTag = "mews.get_mews_with_tag"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of the feed engine.
type ServiceConfig struct {
	Store   store.Store
	Follows *follows.Service
	Licks   *licks.Service
	Policy  Policy
	Logger  *zap.Logger
}

// Service is the feed engine: it validates and publishes mews, maintains
// the tag index, and computes per-agent feeds.
type Service struct {
	store   store.Store
	follows *follows.Service
	licks   *licks.Service
	policy  Policy
	logger  *zap.Logger
}

// NewService constructs the feed engine.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.Follows == nil {
		return nil, newServiceError(opServiceNew, "missing_follows", errMissingFollows)
	}
	if cfg.Licks == nil {
		return nil, newServiceError(opServiceNew, "missing_licks", errMissingLicks)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		store:   cfg.Store,
		follows: cfg.Follows,
		licks:   cfg.Licks,
		policy:  cfg.Policy,
		logger:  logger,
	}, nil
}

// Policy exposes the configured content length bounds for client-side
// pre-validation. Enforcement always happens in CreateMew regardless.
func (s *Service) Policy() Policy {
	return s.policy
}

// CreateMew validates the input, derives the tag index and reference links
// from the text, and persists everything in one atomic store operation.
// Validation failures leave the store untouched.
func (s *Service) CreateMew(ctx context.Context, author string, input CreateMewInput) (Mew, error) {
	if author == "" {
		return Mew{}, newServiceError(opCreateMew, "missing_author", fmt.Errorf("%w: %v", ErrMalformedInput, errMissingAuthor))
	}
	if err := input.MewType.Validate(); err != nil {
		return Mew{}, newServiceError(opCreateMew, "invalid_mew_type", err)
	}
	if err := ValidateMewText(input.Text, s.policy); err != nil {
		return Mew{}, newServiceError(opCreateMew, "invalid_text", err)
	}

	// Referenced addresses must exist before anything is written.
	referenced := make([]string, 0, len(input.Links)+1)
	referenced = append(referenced, input.Links...)
	if input.MewType.Of != "" {
		referenced = append(referenced, input.MewType.Of)
	}
	for _, address := range referenced {
		if _, err := s.store.GetRecord(ctx, address); err != nil {
			s.logError(opCreateMew, "referenced_mew_missing", err,
				zap.String("author", author),
				zap.String("address", address))
			return Mew{}, newServiceError(opCreateMew, "referenced_mew_missing", err)
		}
	}

	content, err := encodeMewContent(input)
	if err != nil {
		return Mew{}, newServiceError(opCreateMew, "encode_failed", err)
	}

	links := make([]store.LinkInput, 0)
	for _, tag := range ExtractTags(input.Text) {
		links = append(links, store.LinkInput{
			Base: tagIndexBase(tag.Kind, tag.Value),
			Tag:  string(tag.Kind),
		})
	}
	switch input.MewType.Kind {
	case MewKindReply:
		links = append(links, store.LinkInput{Base: input.MewType.Of, Tag: replyLinkTag})
	case MewKindRequote:
		links = append(links, store.LinkInput{Base: input.MewType.Of, Tag: requoteLinkTag})
	case MewKindOriginal:
	}

	record, err := s.store.CreateRecord(ctx, store.RecordInput{Author: author, Content: content}, links)
	if err != nil {
		s.logError(opCreateMew, "record_create_failed", err, zap.String("author", author))
		return Mew{}, newServiceError(opCreateMew, "record_create_failed", err)
	}

	mew, err := decodeMew(record)
	if err != nil {
		return Mew{}, newServiceError(opCreateMew, "decode_failed", err)
	}
	return mew, nil
}

// GetMew fetches a single mew by address.
func (s *Service) GetMew(ctx context.Context, address string) (Mew, error) {
	record, err := s.store.GetRecord(ctx, address)
	if err != nil {
		return Mew{}, newServiceError(opGetMew, "record_fetch_failed", err)
	}
	mew, err := decodeMew(record)
	if err != nil {
		return Mew{}, newServiceError(opGetMew, "decode_failed", err)
	}
	return mew, nil
}

// MewsBy returns all mews authored by the agent, newest first, enriched
// with context relative to the caller.
func (s *Service) MewsBy(ctx context.Context, caller, agent string) ([]FeedMew, error) {
	if agent == "" {
		return nil, newServiceError(opMewsBy, "missing_agent", ErrMalformedInput)
	}
	mewList, err := s.mewsAuthoredBy(ctx, agent)
	if err != nil {
		s.logError(opMewsBy, "author_listing_failed", err, zap.String("agent", agent))
		return nil, newServiceError(opMewsBy, "author_listing_failed", err)
	}
	sortNewestFirst(mewList)
	return s.enrichAll(ctx, caller, mewList, opMewsBy)
}

// MewsFeed computes the caller's feed: the union of their own mews and the
// mews of everyone they follow, newest first, paginated.
func (s *Service) MewsFeed(ctx context.Context, caller string, options FeedOptions) (FeedPage, error) {
	if caller == "" {
		return FeedPage{}, newServiceError(opMewsFeed, "missing_caller", ErrMalformedInput)
	}

	var boundary *feedCursor
	if options.Cursor != "" {
		cursor, err := decodeFeedCursor(options.Cursor)
		if err != nil {
			return FeedPage{}, newServiceError(opMewsFeed, "invalid_cursor", err)
		}
		boundary = &cursor
	}

	following, err := s.follows.Following(ctx, caller)
	if err != nil {
		s.logError(opMewsFeed, "following_lookup_failed", err, zap.String("caller", caller))
		return FeedPage{}, newServiceError(opMewsFeed, "following_lookup_failed", err)
	}

	authors := append([]string{caller}, following...)
	combined := make([]Mew, 0)
	for _, author := range authors {
		mewList, err := s.mewsAuthoredBy(ctx, author)
		if err != nil {
			s.logError(opMewsFeed, "author_listing_failed", err, zap.String("author", author))
			return FeedPage{}, newServiceError(opMewsFeed, "author_listing_failed", err)
		}
		combined = append(combined, mewList...)
	}
	sortNewestFirst(combined)

	if boundary != nil {
		kept := combined[:0]
		for _, mew := range combined {
			if boundary.isAfter(mew) {
				kept = append(kept, mew)
			}
		}
		combined = kept
	}

	truncated := false
	if options.Limit > 0 && len(combined) > options.Limit {
		combined = combined[:options.Limit]
		truncated = true
	}

	enriched, err := s.enrichAll(ctx, caller, combined, opMewsFeed)
	if err != nil {
		return FeedPage{}, err
	}

	page := FeedPage{Mews: enriched}
	if truncated && len(combined) > 0 {
		last := combined[len(combined)-1]
		page.Cursor = EncodeFeedCursor(last.CreatedAt, last.Address)
	}
	return page, nil
}

// GetFeedMewAndContext returns a single mew with lick, reply and requote
// context populated relative to the caller.
func (s *Service) GetFeedMewAndContext(ctx context.Context, caller, address string) (FeedMew, error) {
	mew, err := s.GetMew(ctx, address)
	if err != nil {
		return FeedMew{}, err
	}
	enriched, err := s.enrichFeedMew(ctx, caller, mew)
	if err != nil {
		s.logError(opMewContext, "enrich_failed", err, zap.String("address", address))
		return FeedMew{}, newServiceError(opMewContext, "enrich_failed", err)
	}
	return enriched, nil
}

// MewsWithTag returns the mews indexed under the given tag token, in index
// creation order (newest last).
func (s *Service) MewsWithTag(ctx context.Context, caller string, kind TagKind, value string) ([]FeedMew, error) {
	switch kind {
	case TagKindHashtag, TagKindCashtag, TagKindMention:
	default:
		return nil, newServiceError(opMewsWithTag, "unknown_tag_kind", fmt.Errorf("%w: %q", ErrMalformedInput, kind))
	}
	if value == "" {
		return nil, newServiceError(opMewsWithTag, "missing_tag_value", ErrMalformedInput)
	}

	links, err := s.store.ListLinks(ctx, tagIndexBase(kind, FoldTagValue(value)), string(kind))
	if err != nil {
		s.logError(opMewsWithTag, "index_lookup_failed", err, zap.String("tag", value))
		return nil, newServiceError(opMewsWithTag, "index_lookup_failed", err)
	}

	mewList := make([]Mew, 0, len(links))
	for _, link := range links {
		mew, err := s.GetMew(ctx, link.Target)
		if err != nil {
			return nil, err
		}
		mewList = append(mewList, mew)
	}
	return s.enrichAll(ctx, caller, mewList, opMewsWithTag)
}

func (s *Service) mewsAuthoredBy(ctx context.Context, author string) ([]Mew, error) {
	records, err := s.store.ListRecordsByAuthor(ctx, author)
	if err != nil {
		return nil, err
	}
	mewList := make([]Mew, 0, len(records))
	for _, record := range records {
		mew, err := decodeMew(record)
		if err != nil {
			return nil, err
		}
		mewList = append(mewList, mew)
	}
	return mewList, nil
}

func (s *Service) enrichAll(ctx context.Context, caller string, mewList []Mew, operation string) ([]FeedMew, error) {
	enriched := make([]FeedMew, 0, len(mewList))
	for _, mew := range mewList {
		feedMew, err := s.enrichFeedMew(ctx, caller, mew)
		if err != nil {
			s.logError(operation, "enrich_failed", err, zap.String("address", mew.Address))
			return nil, newServiceError(operation, "enrich_failed", err)
		}
		enriched = append(enriched, feedMew)
	}
	return enriched, nil
}

func (s *Service) enrichFeedMew(ctx context.Context, caller string, mew Mew) (FeedMew, error) {
	lickCount, err := s.licks.LickCount(ctx, mew.Address)
	if err != nil {
		return FeedMew{}, err
	}
	lickedByCaller := false
	if caller != "" {
		lickedByCaller, err = s.licks.LickedBy(ctx, caller, mew.Address)
		if err != nil {
			return FeedMew{}, err
		}
	}
	replies, err := s.store.ListLinks(ctx, mew.Address, replyLinkTag)
	if err != nil {
		return FeedMew{}, err
	}
	requotes, err := s.store.ListLinks(ctx, mew.Address, requoteLinkTag)
	if err != nil {
		return FeedMew{}, err
	}
	return FeedMew{
		Mew:            mew,
		LickCount:      lickCount,
		ReplyCount:     len(replies),
		RequoteCount:   len(requotes),
		LickedByCaller: lickedByCaller,
	}, nil
}

func sortNewestFirst(mewList []Mew) {
	sort.Slice(mewList, func(i, j int) bool {
		if !mewList[i].CreatedAt.Equal(mewList[j].CreatedAt) {
			return mewList[i].CreatedAt.After(mewList[j].CreatedAt)
		}
		return mewList[i].Address > mewList[j].Address
	})
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("mews service error", attrs...)
}
