// Package version exposes the application version derived from build metadata.
//
// Priority: -ldflags override > VCS info from debug.BuildInfo > "dev" fallback.
//
// Usage:
//
//	version.GitCommit         // "a3f8c2d1" or "dev"
//	version.Full()            // "aoma-mesh/a3f8c2d1" or "aoma-mesh/dev"
//	version.BuildTag("2.0.0") // "2.0.0-20260115-093042"
package version

import (
	"runtime/debug"
	"time"
)

// AppName is the application name used in version strings and protocol handshakes.
const AppName = "aoma-mesh"

// gitCommitOverride is set via -ldflags at build time for container builds
// where .git is unavailable. Empty string means no override.
var gitCommitOverride string

// GitCommit is the short git commit hash (8 chars) from build info.
// Set to "dev" when build info is unavailable (e.g., `go test`, non-git builds).
var GitCommit = initGitCommit()

func initGitCommit() string {
	if gitCommitOverride != "" {
		if len(gitCommitOverride) > 8 {
			return gitCommitOverride[:8]
		}
		return gitCommitOverride
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}

// Full returns "aoma-mesh/<commit>" for use in user-agent strings, logging, etc.
func Full() string {
	return AppName + "/" + GitCommit
}

// BuildTag appends a per-process timestamp to the base version so every
// running instance carries a unique, sortable build identifier.
func BuildTag(base string) string {
	return base + "-" + time.Now().Format("20060102-150405")
}
