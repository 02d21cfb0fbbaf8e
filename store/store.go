// Package store keeps per-source fetch state between fusion cycles so the
// fetcher can issue conditional GETs. State lives in an in-memory ristretto
// cache behind a gocache manager and is purely advisory: a miss only means
// the next fetch is unconditional.
package store

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"

	"github.com/feedfuser/feedfuser/model"
)

// SourceState is the cached fetch state of one source within one fused
// feed: the HTTP validators plus the raw body they vouch for, so a 304
// can be served from the cached document.
type SourceState struct {
	ETag         string
	LastModified string
	Raw          []byte
	HTMLURI      string
	StoredAt     time.Time
}

// Config holds the configuration for creating a Store.
type Config struct {
	// ExpireAfter bounds how long stored source state is reused (default: 1h).
	ExpireAfter time.Duration
	// MaxSources caps how many source states are kept (default: 4096).
	MaxSources int64
}

// Store persists conditional-GET state per (feed id, source URI).
type Store struct {
	states      *cache.Cache[*SourceState]
	backing     *ristretto.Cache[string, *SourceState]
	expireAfter time.Duration
}

// NewStore creates a Store, applying defaults for any zero config values.
func NewStore(config Config) (*Store, error) {
	if config.ExpireAfter <= 0 {
		config.ExpireAfter = 1 * time.Hour
	}
	if config.MaxSources <= 0 {
		config.MaxSources = 4096
	}

	// Every state costs 1, so MaxCost is simply the source cap.
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config[string, *SourceState]{
		NumCounters: config.MaxSources * 10,
		MaxCost:     config.MaxSources,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Store{
		states:      cache.New[*SourceState](ristretto_store.NewRistretto(ristrettoCache)),
		backing:     ristrettoCache,
		expireAfter: config.ExpireAfter,
	}, nil
}

// stateKey scopes state to its fused feed, so two feeds sharing a source
// URI never share validators.
func stateKey(feedID, uri string) string {
	return feedID + "|" + uri
}

// Hydrate copies stored fetch state onto the sources ahead of a cycle.
// Sources without stored state are left untouched. A homepage link
// declared in the spec wins over one remembered from an earlier fetch.
func (s *Store) Hydrate(ctx context.Context, feedID string, sources []*model.Source) {
	for _, src := range sources {
		state, err := s.states.Get(ctx, stateKey(feedID, src.URI))
		if err != nil || state == nil {
			continue
		}
		src.ETag = state.ETag
		src.LastModified = state.LastModified
		src.Raw = state.Raw
		if src.HTMLURI == "" {
			src.HTMLURI = state.HTMLURI
		}
	}
}

// Update stores the post-cycle state of every source that carries
// validators or a cached body. Sources whose fetch failed outright have
// nothing new to keep and are skipped, preserving whatever state they
// had before.
func (s *Store) Update(ctx context.Context, feedID string, sources []*model.Source) {
	stored := false
	for _, src := range sources {
		if src.ETag == "" && src.LastModified == "" && len(src.Raw) == 0 {
			continue
		}
		state := &SourceState{
			ETag:         src.ETag,
			LastModified: src.LastModified,
			Raw:          src.Raw,
			HTMLURI:      src.HTMLURI,
			StoredAt:     time.Now(),
		}
		err := s.states.Set(ctx, stateKey(feedID, src.URI), state,
			gocache_store.WithExpiration(s.expireAfter),
			gocache_store.WithCost(1),
		)
		if err != nil {
			model.WarnLog("failed to store source state for "+src.URI, err)
			continue
		}
		stored = true
	}
	if stored {
		// Ristretto admits writes asynchronously; wait so the state is
		// visible to the next cycle.
		s.backing.Wait()
	}
}

// InvalidateFeed drops stored state for every source of the feed, forcing
// the next cycle to fetch unconditionally.
func (s *Store) InvalidateFeed(ctx context.Context, feedID string, sources []*model.Source) {
	for _, src := range sources {
		if err := s.states.Delete(ctx, stateKey(feedID, src.URI)); err != nil {
			model.WarnLog("failed to invalidate source state for "+src.URI, err)
		}
	}
	s.backing.Wait()
}
