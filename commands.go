package main

import (
	"github.com/feedfuser/feedfuser/cmd"
	"github.com/feedfuser/feedfuser/model"
)

// CLI is the top-level command grammar.
type CLI struct {
	model.Globals

	Serve      cmd.ServeCmd      `cmd:"" help:"Serve fused feeds as Atom and RSS over HTTP."`
	Mcp        cmd.McpCmd        `cmd:"" help:"Serve fused feeds over the Model Context Protocol."`
	ImportOpml cmd.ImportOPMLCmd `cmd:"" name:"import-opml" help:"Create a fused feed spec from an OPML subscription list."`
}
