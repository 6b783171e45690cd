// Package version holds build metadata injected via -ldflags at build time.
package version

// Version and Commit default to "dev" for local builds; release builds
// set them with -ldflags "-X .../internal/version.Version=... -X .../internal/version.Commit=...".
var (
	Version = "dev"
	Commit  = "unknown"
)
