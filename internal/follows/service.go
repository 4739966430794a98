package follows

import (
	"context"
	"errors"
	"fmt"

	"github.com/mewsnet/mewsfeed/backend/internal/store"
	"go.uber.org/zap"
)

// followLinkTag marks social-graph edges: base is the follower, target the
// followee.
const followLinkTag = "follow"

var (
	// ErrSelfFollow indicates an agent tried to follow itself.
	ErrSelfFollow = errors.New("follows: agents cannot follow themselves")
	// ErrMissingAgent indicates an empty agent identity.
	ErrMissingAgent = errors.New("follows: agent identity is required")

	errMissingStore = errors.New("follows: store is required")
)

// ServiceConfig describes the dependencies of the social graph manager.
type ServiceConfig struct {
	Store  store.Store
	Logger *zap.Logger
}

// Service maintains the bidirectional follow graph as idempotent link
// edges in the record store.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService constructs the social graph manager.
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

// Follow creates the (self, target) edge. Following an agent twice is a
// no-op success.
func (s *Service) Follow(ctx context.Context, self, target string) error {
	if self == "" || target == "" {
		return ErrMissingAgent
	}
	if self == target {
		return fmt.Errorf("%w: %s", ErrSelfFollow, self)
	}
	_, err := s.store.CreateLink(ctx, store.LinkInput{Base: self, Tag: followLinkTag, Target: target})
	if err != nil {
		s.logger.Error("follow edge create failed",
			zap.String("follower", self),
			zap.String("followee", target),
			zap.Error(err))
		return err
	}
	return nil
}

// Unfollow removes the (self, target) edge. An absent edge is a no-op
// success, not an error.
func (s *Service) Unfollow(ctx context.Context, self, target string) error {
	if self == "" || target == "" {
		return ErrMissingAgent
	}
	if err := s.store.DeleteLink(ctx, self, followLinkTag, target); err != nil {
		s.logger.Error("follow edge delete failed",
			zap.String("follower", self),
			zap.String("followee", target),
			zap.Error(err))
		return err
	}
	return nil
}

// Following returns the agents the given agent follows, in edge-creation
// order.
func (s *Service) Following(ctx context.Context, agent string) ([]string, error) {
	if agent == "" {
		return nil, ErrMissingAgent
	}
	links, err := s.store.ListLinks(ctx, agent, followLinkTag)
	if err != nil {
		return nil, err
	}
	agents := make([]string, 0, len(links))
	for _, link := range links {
		agents = append(agents, link.Target)
	}
	return agents, nil
}

// Followers returns the agents following the given agent, in edge-creation
// order.
func (s *Service) Followers(ctx context.Context, agent string) ([]string, error) {
	if agent == "" {
		return nil, ErrMissingAgent
	}
	links, err := s.store.ListBacklinks(ctx, agent, followLinkTag)
	if err != nil {
		return nil, err
	}
	agents := make([]string, 0, len(links))
	for _, link := range links {
		agents = append(agents, link.Base)
	}
	return agents, nil
}
