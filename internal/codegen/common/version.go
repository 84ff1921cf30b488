package common

import (
	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

// Version is set via ldflags at build time: -ldflags "-X github.com/Alia5/bindgen/internal/codegen/common.Version=x.y.z"
var Version = ""

const devVersion = "0.0.1-dev"

// GetVersion returns the version that was set at build time via ldflags.
// Returns 0.0.1-dev if Version is empty (development builds only).
func GetVersion() (*semver.Version, error) {
	if Version == "" {
		return semver.MustParse(devVersion), nil
	}
	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid version format: %s (expected x.y.z)", Version)
	}
	return v, nil
}
