// Package mcpserver exposes fused feeds as tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/feedfuser/feedfuser/model"
	"github.com/feedfuser/feedfuser/version"
)

var sessionCounter int64

// Config carries the collaborators and transport for an MCP server.
type Config struct {
	FeedLister FeedLister
	FeedGetter FusedFeedGetter
	// FeedRefresher is optional; when nil the refresh tool is not registered.
	FeedRefresher FeedRefresher
	Transport     model.Transport
}

// Server exposes fused feeds as MCP tools over a single transport.
type Server struct {
	lister    FeedLister
	getter    FusedFeedGetter
	refresher FeedRefresher
	sessionID string
	transport model.Transport
}

// generateSessionID builds an ID unique to this process and server instance.
func generateSessionID() string {
	counter := atomic.AddInt64(&sessionCounter, 1)
	return fmt.Sprintf("feedfuser-session-%d-%d", time.Now().UnixNano(), counter)
}

// NewServer checks the config and assembles a server. The refresher may be
// nil, every other collaborator is required.
func NewServer(config Config) (*Server, error) {
	if config.Transport == model.UndefinedTransport {
		return nil, model.NewFeedError(model.ErrorTypeTransport, "transport must be specified").
			WithOperation("create_server").
			WithComponent("mcp_server")
	}
	if config.FeedLister == nil {
		return nil, model.NewFeedError(model.ErrorTypeConfiguration, "FeedLister is required").
			WithOperation("create_server").
			WithComponent("mcp_server")
	}
	if config.FeedGetter == nil {
		return nil, model.NewFeedError(model.ErrorTypeConfiguration, "FeedGetter is required").
			WithOperation("create_server").
			WithComponent("mcp_server")
	}
	return &Server{
		transport: config.Transport,
		lister:    config.FeedLister,
		getter:    config.FeedGetter,
		refresher: config.FeedRefresher,
		sessionID: generateSessionID(),
	}, nil
}

// GetFusedFeedParams contains parameters for the get_fused_feed tool.
type GetFusedFeedParams struct {
	ID string
}

// RefreshFusedFeedParams contains parameters for the refresh_fused_feed tool.
type RefreshFusedFeedParams struct {
	ID string
}

var listFusedFeedsTool = &mcp.Tool{
	Name:        "list_fused_feeds",
	Description: "list the ids of all configured fused feeds",
	InputSchema: &jsonschema.Schema{Type: "object"}, // no arguments
}

var getFusedFeedTool = &mcp.Tool{
	Name:        "get_fused_feed",
	Description: "get a fused feed by id, merging entries from all of its sources",
	InputSchema: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"ID"},
		Properties: map[string]*jsonschema.Schema{
			"ID": {
				Type:        "string",
				Description: "Fused feed ID",
			},
		},
	},
}

var refreshFusedFeedTool = &mcp.Tool{
	Name:        "refresh_fused_feed",
	Description: "refetch every source of a fused feed, bypassing stored conditional request state",
	InputSchema: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"ID"},
		Properties: map[string]*jsonschema.Schema{
			"ID": {
				Type:        "string",
				Description: "Fused feed ID",
			},
		},
	},
}

func (s *Server) handleListFeeds(_ context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
	ids, err := s.lister.ListFeedIDs()
	if err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func (s *Server) handleGetFusedFeed(ctx context.Context, _ *mcp.CallToolRequest, args GetFusedFeedParams) (*mcp.CallToolResult, any, error) {
	feed, err := s.getter.FuseFeed(ctx, args.ID)
	if err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(model.NewFusedFeedResult(args.ID, feed))
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func (s *Server) handleRefreshFusedFeed(ctx context.Context, _ *mcp.CallToolRequest, args RefreshFusedFeedParams) (*mcp.CallToolResult, any, error) {
	feed, err := s.refresher.RefreshFeed(ctx, args.ID)
	if err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(model.NewFusedFeedResult(args.ID, feed))
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// Run serves MCP clients until ctx is canceled or the transport fails.
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    "Fused Feed Server",
			Version: version.GetVersion(),
		},
		nil,
	)

	mcp.AddTool(srv, listFusedFeedsTool, s.handleListFeeds)
	mcp.AddTool(srv, getFusedFeedTool, s.handleGetFusedFeed)
	if s.refresher != nil {
		mcp.AddTool(srv, refreshFusedFeedTool, s.handleRefreshFusedFeed)
	}

	switch s.transport {
	case model.StdioTransport:
		return srv.Run(ctx, &mcp.StdioTransport{})
	case model.HTTPWithSSETransport:
		return srv.Run(ctx, &mcp.StreamableServerTransport{SessionID: s.sessionID})
	default:
		return model.NewFeedError(model.ErrorTypeTransport, "unsupported transport").
			WithOperation("run_server").
			WithComponent("mcp_server")
	}
}
