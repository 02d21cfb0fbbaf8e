// Package version resolves the feedfuser build version from ldflags or,
// failing that, from the binary's embedded VCS build info.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

const unknown = "unknown"

// Set at build time via
// -ldflags "-X github.com/feedfuser/feedfuser/version.Version=v1.2.3".
var (
	Version   = "dev"
	GitCommit = unknown
	BuildDate = unknown
)

// Info describes the running binary.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}

// Get returns the build information, filling in commit and date from
// debug.ReadBuildInfo when ldflags left them unset.
func Get() Info {
	info := Info{
		Version:   strings.TrimPrefix(Version, "v"),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	if Version != "dev" {
		return info
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == unknown {
				info.GitCommit = shortCommit(setting.Value)
			}
		case "vcs.time":
			if info.BuildDate == unknown {
				info.BuildDate = setting.Value
			}
		}
	}
	return info
}

func shortCommit(revision string) string {
	if len(revision) > 7 {
		return revision[:7]
	}
	return revision
}

// GetVersion returns the bare version string, used in User-Agent headers
// and the MCP server implementation info.
func GetVersion() string {
	return Get().Version
}

// GetFullVersion returns the version suffixed with the short commit hash
// when one is known. This is what --version prints.
func GetFullVersion() string {
	info := Get()
	if info.GitCommit != unknown {
		return info.Version + "-" + info.GitCommit
	}
	return info.Version
}
