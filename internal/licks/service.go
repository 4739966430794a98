package licks

import (
	"context"
	"errors"

	"github.com/mewsnet/mewsfeed/backend/internal/store"
	"go.uber.org/zap"
)

// lickLinkTag marks reaction edges: base is the licking agent, target the
// licked record address.
const lickLinkTag = "lick"

var (
	// ErrMissingAgent indicates an empty agent identity.
	ErrMissingAgent = errors.New("licks: agent identity is required")
	// ErrMissingAddress indicates an empty record address.
	ErrMissingAddress = errors.New("licks: record address is required")

	errMissingStore = errors.New("licks: store is required")
)

// ServiceConfig describes the dependencies of the reaction manager.
type ServiceConfig struct {
	Store  store.Store
	Logger *zap.Logger
}

// Service maintains lick reactions as idempotent link edges keyed by
// (agent, record).
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService constructs the reaction manager.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: cfg.Store, logger: logger}, nil
}

// Lick creates the (self, address) edge. The record must exist; licking an
// already-licked record is a no-op success.
func (s *Service) Lick(ctx context.Context, self, address string) error {
	if self == "" {
		return ErrMissingAgent
	}
	if address == "" {
		return ErrMissingAddress
	}
	if _, err := s.store.GetRecord(ctx, address); err != nil {
		return err
	}
	_, err := s.store.CreateLink(ctx, store.LinkInput{Base: self, Tag: lickLinkTag, Target: address})
	if err != nil {
		s.logger.Error("lick edge create failed",
			zap.String("agent", self),
			zap.String("address", address),
			zap.Error(err))
		return err
	}
	return nil
}

// Unlick removes the (self, address) edge. Unlicking an unliked record is
// a no-op success.
func (s *Service) Unlick(ctx context.Context, self, address string) error {
	if self == "" {
		return ErrMissingAgent
	}
	if address == "" {
		return ErrMissingAddress
	}
	if err := s.store.DeleteLink(ctx, self, lickLinkTag, address); err != nil {
		s.logger.Error("lick edge delete failed",
			zap.String("agent", self),
			zap.String("address", address),
			zap.Error(err))
		return err
	}
	return nil
}

// LickCount returns the number of agents that licked the record.
func (s *Service) LickCount(ctx context.Context, address string) (int, error) {
	if address == "" {
		return 0, ErrMissingAddress
	}
	links, err := s.store.ListBacklinks(ctx, address, lickLinkTag)
	if err != nil {
		return 0, err
	}
	return len(links), nil
}

// LickedBy reports whether the agent licked the record.
func (s *Service) LickedBy(ctx context.Context, agent, address string) (bool, error) {
	if agent == "" {
		return false, ErrMissingAgent
	}
	if address == "" {
		return false, ErrMissingAddress
	}
	links, err := s.store.ListLinks(ctx, agent, lickLinkTag)
	if err != nil {
		return false, err
	}
	for _, link := range links {
		if link.Target == address {
			return true, nil
		}
	}
	return false, nil
}

// LicksBy returns the record addresses the agent licked, in lick order.
func (s *Service) LicksBy(ctx context.Context, agent string) ([]string, error) {
	if agent == "" {
		return nil, ErrMissingAgent
	}
	links, err := s.store.ListLinks(ctx, agent, lickLinkTag)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(links))
	for _, link := range links {
		addresses = append(addresses, link.Target)
	}
	return addresses, nil
}
