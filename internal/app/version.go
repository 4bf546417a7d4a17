package app

import "fmt"

// Stamped at build time, for example:
//
//	go build -ldflags "-X github.com/auroraviz/aurora/internal/app.version=v1.2.0"
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Build returns the metadata stamped into this binary.
func Build() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// String renders a one-line banner for startup logging.
func (b BuildInfo) String() string {
	return fmt.Sprintf("Aurora %s (commit %s, built %s)", b.Version, b.Commit, b.BuildTime)
}
