// Package cowstore holds build information of the cowstore module.
package cowstore

import "fmt"

const (
	// MajorVersion is incremented on incompatible API changes.
	MajorVersion = 0
	// MinorVersion is incremented on new features.
	MinorVersion = 1
	// PatchVersion is incremented on fixes.
	PatchVersion = 0
)

var (
	// BuildTime is set by the build via -ldflags.
	BuildTime = "unknown"
)

// Version returns the major, minor and patch version.
func Version() (int, int, int) {
	return MajorVersion, MinorVersion, PatchVersion
}

// VersionString returns the version as semver string.
func VersionString() string {
	return fmt.Sprintf("%d.%d.%d", MajorVersion, MinorVersion, PatchVersion)
}
