// Package cmd implements the feedfuser CLI commands.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/feedfuser/feedfuser/fusion"
	"github.com/feedfuser/feedfuser/httpserver"
	"github.com/feedfuser/feedfuser/mcpserver"
	"github.com/feedfuser/feedfuser/model"
	"github.com/feedfuser/feedfuser/store"
)

// FusionFlags are the flags shared by every command that runs fetch cycles.
type FusionFlags struct {
	ConfigRoot        string        `name:"config-root" default:"." help:"Directory containing the feeds/ spec directory."`
	Timeout           time.Duration `name:"timeout" default:"10s" help:"Timeout for fetching a single source."`
	WaitTimeout       time.Duration `name:"wait-timeout" default:"10s" help:"Budget for one source within a fetch cycle, queueing included."`
	MaxWorkers        int           `name:"max-workers" default:"5" help:"Maximum concurrent source fetches."`
	ExpireAfter       time.Duration `name:"expire-after" default:"1h" help:"Expire stored source state after this duration."`
	RequestsPerSecond float64       `name:"requests-per-second" default:"2" help:"Rate limit for upstream requests."`
	BurstCapacity     int           `name:"burst-capacity" default:"5" help:"Burst capacity for upstream rate limiting."`
	CircuitBreaker    bool          `name:"circuit-breaker" default:"true" negatable:"" help:"Stop fetching sources that fail repeatedly."`
	AllowPrivateIPs   bool          `name:"allow-private-ips" help:"Allow sources resolving to private or loopback addresses."`
}

// buildService wires the fetcher, coordinator, and source-state store into
// a fusion service.
func (f *FusionFlags) buildService() (*fusion.Service, error) {
	fetcher := fusion.NewFetcher(fusion.FetcherConfig{
		Timeout:               f.Timeout,
		RequestsPerSecond:     f.RequestsPerSecond,
		BurstCapacity:         f.BurstCapacity,
		AllowPrivateIPs:       f.AllowPrivateIPs,
		CircuitBreakerEnabled: &f.CircuitBreaker,
	})

	coordinator := fusion.NewCoordinator(fusion.CoordinatorConfig{
		Fetcher:     fetcher,
		MaxWorkers:  f.MaxWorkers,
		WaitTimeout: f.WaitTimeout,
	})

	states, err := store.NewStore(store.Config{ExpireAfter: f.ExpireAfter})
	if err != nil {
		return nil, err
	}

	return fusion.NewService(fusion.ServiceConfig{
		ConfigRoot:      f.ConfigRoot,
		Coordinator:     coordinator,
		States:          states,
		AllowPrivateIPs: f.AllowPrivateIPs,
	})
}

// ServeCmd republishes fused feeds as Atom and RSS over HTTP.
type ServeCmd struct {
	FusionFlags
	Addr            string        `name:"addr" default:":8080" help:"HTTP listen address."`
	ShutdownTimeout time.Duration `name:"shutdown-timeout" default:"5s" help:"Timeout for graceful shutdown."`
}

// Run starts the HTTP server and blocks until the context is canceled.
func (c *ServeCmd) Run(_ *model.Globals, ctx context.Context) error {
	service, err := c.buildService()
	if err != nil {
		return err
	}

	server, err := httpserver.NewServer(httpserver.Config{
		Addr:            c.Addr,
		Fuser:           service,
		ShutdownTimeout: c.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	return server.Run(ctx)
}

// McpCmd serves fused feeds as tools over the Model Context Protocol.
type McpCmd struct {
	FusionFlags
	Transport string `name:"transport" default:"stdio" enum:"stdio,http-with-sse" help:"Transport to use for the MCP server."`
}

// Run starts the MCP server and blocks until the context is canceled.
func (c *McpCmd) Run(_ *model.Globals, ctx context.Context) error {
	transport, err := model.ParseTransport(c.Transport)
	if err != nil {
		return err
	}

	service, err := c.buildService()
	if err != nil {
		return err
	}

	server, err := mcpserver.NewServer(mcpserver.Config{
		Transport:     transport,
		FeedLister:    service,
		FeedGetter:    service,
		FeedRefresher: service,
	})
	if err != nil {
		return err
	}

	return server.Run(ctx)
}

// ImportOPMLCmd converts an OPML subscription list into a fused feed spec.
type ImportOPMLCmd struct {
	FeedID          string `arg:"" name:"feed-id" help:"Id of the fused feed to create."`
	Source          string `arg:"" name:"source" help:"Path or URL of the OPML document."`
	ConfigRoot      string `name:"config-root" default:"." help:"Directory containing the feeds/ spec directory."`
	Name            string `name:"name" help:"Name of the fused feed (default: the OPML title, then the feed id)."`
	Force           bool   `name:"force" help:"Overwrite an existing spec file."`
	AllowPrivateIPs bool   `name:"allow-private-ips" help:"Allow sources resolving to private or loopback addresses."`
}

// Run imports the OPML document and writes the resulting spec file.
func (c *ImportOPMLCmd) Run(_ *model.Globals, _ context.Context) error {
	id := model.SanitizeFeedID(c.FeedID)
	if id == "" {
		return model.NewFeedError(model.ErrorTypeValidation, fmt.Sprintf("feed id %q is empty after sanitization", c.FeedID)).
			WithOperation("import_opml").
			WithComponent("cli")
	}

	opml, err := model.LoadOPML(c.Source)
	if err != nil {
		return err
	}

	subscriptions := opml.Feeds()
	if len(subscriptions) == 0 {
		return model.NewFeedError(model.ErrorTypeConfiguration, fmt.Sprintf("no feed URLs found in OPML source: %s", c.Source)).
			WithOperation("import_opml").
			WithComponent("cli")
	}

	name := c.Name
	if name == "" {
		name = opml.Head.Title
	}
	if name == "" {
		name = id
	}

	feed := &model.FusedFeed{Name: name}
	for _, sub := range subscriptions {
		feed.Sources = append(feed.Sources, &model.Source{
			URI:     sub.XMLURL,
			HTMLURI: sub.HTMLURL,
		})
	}

	if err := model.ValidateSourceURLs(feed.Sources, c.AllowPrivateIPs); err != nil {
		return model.NewFeedErrorWithCause(model.ErrorTypeValidation, fmt.Sprintf("OPML contains %v", err), err).
			WithFeedID(id).
			WithOperation("import_opml").
			WithComponent("cli")
	}

	path, err := model.WriteFeedSpec(c.ConfigRoot, id, feed, c.Force)
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d sources)\n", path, len(feed.Sources))
	return nil
}
