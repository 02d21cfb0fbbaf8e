package fusion

import (
	"context"

	"github.com/feedfuser/feedfuser/model"
)

// SourceStateStore persists per-source conditional-GET state across
// requests, keyed by fused feed id. Implemented by store.Store.
type SourceStateStore interface {
	Hydrate(ctx context.Context, feedID string, sources []*model.Source)
	Update(ctx context.Context, feedID string, sources []*model.Source)
	InvalidateFeed(ctx context.Context, feedID string, sources []*model.Source)
}

// ServiceConfig holds the configuration for creating a Service.
type ServiceConfig struct {
	// ConfigRoot is the directory holding the feeds/ spec directory.
	ConfigRoot string
	// Coordinator runs fetch cycles (default: NewCoordinator defaults).
	Coordinator *Coordinator
	// States persists conditional-GET state between requests. Optional;
	// without it every cycle fetches unconditionally.
	States SourceStateStore
	// AllowPrivateIPs permits sources resolving to private addresses.
	AllowPrivateIPs bool
}

// Service ties the spec loader, the source-state store, and the fetch
// coordinator into the request-level operation: id in, fused feed out.
type Service struct {
	configRoot      string
	coordinator     *Coordinator
	states          SourceStateStore
	allowPrivateIPs bool
}

// NewService creates a Service from the given configuration.
func NewService(config ServiceConfig) (*Service, error) {
	if config.ConfigRoot == "" {
		return nil, model.NewFeedError(model.ErrorTypeConfiguration, "config root must be specified").
			WithOperation("create_service").
			WithComponent("fusion_service")
	}
	if config.Coordinator == nil {
		config.Coordinator = NewCoordinator(CoordinatorConfig{})
	}

	return &Service{
		configRoot:      config.ConfigRoot,
		coordinator:     config.Coordinator,
		states:          config.States,
		allowPrivateIPs: config.AllowPrivateIPs,
	}, nil
}

// FuseFeed loads the spec for feedID, runs one fetch cycle with stored
// conditional-GET state, and returns the fused feed. The id is sanitized
// before it touches the filesystem.
func (s *Service) FuseFeed(ctx context.Context, feedID string) (*model.FusedFeed, error) {
	return s.fuse(ctx, feedID, false)
}

// RefreshFeed drops stored source state for feedID and runs a fresh cycle
// with unconditional GETs.
func (s *Service) RefreshFeed(ctx context.Context, feedID string) (*model.FusedFeed, error) {
	return s.fuse(ctx, feedID, true)
}

func (s *Service) fuse(ctx context.Context, feedID string, refresh bool) (*model.FusedFeed, error) {
	id := model.SanitizeFeedID(feedID)
	if id == "" {
		return nil, model.CreateSpecNotFoundError(feedID, model.SpecPath(s.configRoot, id))
	}

	feed, err := model.LoadFeedSpec(s.configRoot, id)
	if err != nil {
		return nil, err
	}

	if err := model.ValidateSourceURLs(feed.Sources, s.allowPrivateIPs); err != nil {
		return nil, model.CreateSpecInvalidError(err, id, model.SpecPath(s.configRoot, id))
	}

	if s.states != nil {
		if refresh {
			s.states.InvalidateFeed(ctx, id, feed.Sources)
		} else {
			s.states.Hydrate(ctx, id, feed.Sources)
		}
	}

	s.coordinator.Fetch(ctx, feed)

	if s.states != nil {
		s.states.Update(ctx, id, feed.Sources)
	}

	return feed, nil
}

// ListFeedIDs returns the ids of every fused feed spec under the config
// root.
func (s *Service) ListFeedIDs() ([]string, error) {
	return model.ListFeedIDs(s.configRoot)
}
