package version

import (
	"fmt"
	"runtime"
)

// Name is the product name reported to clients
const Name = "spook"

// Build information that can be set via ldflags during build
var (
	Version = "dev"

	// GitCommit is the git commit hash this binary was built from
	GitCommit = "unknown"

	BuildDate = "unknown"

	GoVersion = runtime.Version()
)

// BuildInfo contains all build-related information
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetVersion returns the current version
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	switch {
	case GitCommit == "" || GitCommit == "unknown":
		return "dev-unknown"
	case len(GitCommit) >= 8:
		return "dev-" + GitCommit[:8]
	default:
		return "dev-" + GitCommit
	}
}

// GetFullVersion returns a detailed version string
func GetFullVersion() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s)",
		Name, GetVersion(), GitCommit, BuildDate, GoVersion)
}

// UserAgent identifies outgoing HTTP and WebSocket requests
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Name, GetVersion())
}

// GetBuildInfo returns all build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Name:      Name,
		Version:   GetVersion(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}
