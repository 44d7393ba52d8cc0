// Package version holds the build version of the server.
package version

import "strings"

// Version is the semver of the current build.
var Version = "0.3.1"

// DevVersion is the version suffix used for development builds.
var DevVersion = "dev"

// GetCurrentVersion returns the version string for the given mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return strings.Join([]string{Version, DevVersion}, "-")
	}
	return Version
}
