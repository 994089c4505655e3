// Package version provides build information for the provision binaries.
package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
)

var (
	// Version is the release of the binary, set at build time via ldflags.
	Version = "dev"

	// BuildTime is set at build time via ldflags.
	BuildTime = "unknown"

	// Commit is the git commit SHA, set at build time via ldflags.
	Commit = "unknown"
)

// Semver parses Version. Development builds have no semantic version.
func Semver() (*semver.Version, error) {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil, fmt.Errorf("version %q is not a release version: %w", Version, err)
	}
	return v, nil
}

// IsRelease returns true if Version is a semantic version without a
// prerelease suffix.
func IsRelease() bool {
	v, err := Semver()
	return err == nil && v.Prerelease() == ""
}

// Info returns version information as a single line.
func Info() string {
	commitID := Commit
	if len(commitID) > 8 {
		commitID = commitID[:8]
	}

	return fmt.Sprintf("provision %s (%s) - %s %s/%s",
		Version,
		commitID,
		BuildTime,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// Map returns version information keyed by name.
func Map() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    Commit,
		"buildTime": BuildTime,
		"goVersion": runtime.Version(),
		"os":        runtime.GOOS,
		"arch":      runtime.GOARCH,
	}
}
