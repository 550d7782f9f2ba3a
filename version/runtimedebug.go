package version

import (
	"errors"
	"runtime/debug"
)

const develVersion = "(devel)"

// BuildInfo returns the build information
func BuildInfo() (*debug.BuildInfo, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, errors.New("fetching build info failed")
	}

	if bi == nil {
		return nil, errors.New("build information is empty")
	}

	return bi, nil
}

// Version returns the version of the main module, or "(devel)" when the
// binary carries no version information.
func Version() string {
	bi, err := BuildInfo()
	if err != nil || bi.Main.Version == "" {
		return develVersion
	}
	return bi.Main.Version
}
