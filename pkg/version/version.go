package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Overridden by the release build:
//
//	-ldflags "-X github.com/dl-alexandre/rcache/pkg/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the linked-in build info. Binaries built with `go install`
// carry no ldflags, so the module version and VCS stamp are used instead.
func Get() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.GitCommit == "unknown":
			info.GitCommit = s.Value
			if len(info.GitCommit) > 12 {
				info.GitCommit = info.GitCommit[:12]
			}
		case s.Key == "vcs.time" && info.BuildTime == "unknown":
			info.BuildTime = s.Value
		}
	}
	return info
}

func (i *Info) String() string {
	return fmt.Sprintf("rcache %s (commit %s, built %s) %s %s",
		i.Version, i.GitCommit, i.BuildTime, i.GoVersion, i.Platform)
}
