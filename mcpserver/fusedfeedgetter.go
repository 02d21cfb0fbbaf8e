package mcpserver

import (
	"context"

	"github.com/feedfuser/feedfuser/model"
)

// FusedFeedGetter runs a fusion cycle for one feed and returns the merged result.
type FusedFeedGetter interface {
	FuseFeed(ctx context.Context, feedID string) (*model.FusedFeed, error)
}
