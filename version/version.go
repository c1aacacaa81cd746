package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Injected at build time via -ldflags "-X github.com/Robobluez/streamview/version.version=v1.2.3 ..."
var (
	version = ""
	commit  = ""
	date    = ""
)

// Info is the build metadata of the running binary.
type Info struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Platform  string
}

var (
	infoOnce sync.Once
	info     Info
)

// Get returns the build metadata.
func Get() Info {
	infoOnce.Do(func() { info = readInfo(version, commit, date, debug.ReadBuildInfo) })
	return info
}

// GetVersion returns the version string (e.g. "v0.1.0").
func GetVersion() string { return Get().Version }

// GetShort returns a compact version string like "v0.1.0 (abc1234)".
func GetShort() string {
	i := Get()
	if i.Commit != "" && i.Commit != "unknown" {
		return fmt.Sprintf("%s (%s)", i.Version, i.Commit)
	}
	return i.Version
}

// GetFull returns a multi-line version string with all build metadata.
func GetFull() string {
	i := Get()
	return fmt.Sprintf("streamview %s\nCommit: %s\nBuilt:  %s\nGo:     %s %s",
		i.Version, i.Commit, i.Date, i.GoVersion, i.Platform)
}

func readInfo(v, c, d string, buildInfo func() (*debug.BuildInfo, bool)) Info {
	out := Info{
		Version:   v,
		Commit:    c,
		Date:      d,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	// ldflags win when complete
	if v != "" && c != "" && d != "" {
		return out
	}

	// Fallback: extract from Go build info (works with `go install`)
	out.Version, out.Commit, out.Date = "dev", "unknown", "unknown"
	bi, ok := buildInfo()
	if !ok {
		return out
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		out.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value[:min(7, len(s.Value))]
		case "vcs.time":
			out.Date = s.Value
		}
	}
	return out
}
