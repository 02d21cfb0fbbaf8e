package fusion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/feedfuser/feedfuser/model"
)

// CoordinatorConfig holds the configuration for creating a Coordinator.
type CoordinatorConfig struct {
	// Fetcher performs the per-source work (default: NewFetcher defaults).
	Fetcher *Fetcher
	// MaxWorkers caps concurrent source fetches within a cycle (default: 5).
	MaxWorkers int
	// WaitTimeout bounds each source fetch, queueing included (default: 10s).
	WaitTimeout time.Duration
}

// Coordinator fans a fetch cycle out across a fused feed's sources with
// bounded parallelism. One slow or broken source never blocks the others:
// each fetch runs under its own deadline and failures are contained to
// their source.
type Coordinator struct {
	fetcher     *Fetcher
	maxWorkers  int
	waitTimeout time.Duration
}

// NewCoordinator creates a Coordinator, applying defaults for any zero
// config values.
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	if config.Fetcher == nil {
		config.Fetcher = NewFetcher(FetcherConfig{})
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 5
	}
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = 10 * time.Second
	}
	return &Coordinator{
		fetcher:     config.Fetcher,
		maxWorkers:  config.MaxWorkers,
		waitTimeout: config.WaitTimeout,
	}
}

// Fetch fetches every source of the feed exactly once and waits for the
// whole cycle. Failed sources are logged and contribute no entries, but
// keep their position and cache metadata; panics in a fetch are contained
// to that source.
func (c *Coordinator) Fetch(ctx context.Context, feed *model.FusedFeed) {
	sem := make(chan struct{}, c.maxWorkers)
	var wg sync.WaitGroup

	for _, src := range feed.Sources {
		src.Entries = nil
		src.Fetched = false

		wg.Add(1)
		go func(src *model.Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					model.ErrorLog(fmt.Sprintf("fetch of %s panicked: %v", src.URI, r), nil)
				}
			}()

			sem <- struct{}{}
			defer func() { <-sem }()

			fetchCtx, cancel := context.WithTimeout(ctx, c.waitTimeout)
			defer cancel()

			if err := c.fetcher.Fetch(fetchCtx, src); err != nil {
				var feedErr *model.FeedError
				if errors.As(err, &feedErr) {
					model.LogFeedError(feedErr)
				} else {
					model.WarnLog("dropping source for this cycle: "+src.URI, err)
				}
			}
		}(src)
	}

	wg.Wait()
}
