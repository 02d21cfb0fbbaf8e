package mcpserver

import (
	"context"

	"github.com/feedfuser/feedfuser/model"
)

// FeedRefresher refetches every source of a fused feed, bypassing stored
// conditional request state.
type FeedRefresher interface {
	RefreshFeed(ctx context.Context, feedID string) (*model.FusedFeed, error)
}
