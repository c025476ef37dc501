package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Version is set at build time with -ldflags "-X jvsview/internal/version.Version=...".
var Version = "dev"

// Info holds version information returned by the API.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	info := Info{
		Version:   strings.TrimPrefix(Version, "v"),
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			}
		}
	}
	return info
}
