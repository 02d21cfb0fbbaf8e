// feedfuser fuses collections of upstream feeds into single Atom and RSS
// feeds, republished over HTTP and the Model Context Protocol.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/feedfuser/feedfuser/version"
)

var cli CLI

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx := kong.Parse(&cli,
		kong.Name("feedfuser"),
		kong.Description("Fuse multiple upstream feeds into single Atom and RSS feeds."),
		kong.UsageOnError(),
		kong.Vars{"version": version.GetFullVersion()},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}
