package model

import "github.com/alecthomas/kong"

// Globals holds the flags shared by every feedfuser command.
type Globals struct {
	Version kong.VersionFlag `name:"version" help:"Print version information and quit"`
}
