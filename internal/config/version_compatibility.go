package config

import (
	"fmt"

	"github.com/Masterminds/semver"

	"github.com/monotask/mono/internal/fs"
)

// CheckEngineVersion verifies that runningVersion satisfies the root
// package.json's engines.mono constraint, if one is declared. A repo
// with no such constraint always passes.
func CheckEngineVersion(runningVersion string, rootPackageJSON *fs.PackageJSON) error {
	v, err := semver.NewVersion(runningVersion)
	if err != nil {
		return nil
	}
	if rootPackageJSON == nil || rootPackageJSON.Engines["mono"] == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(rootPackageJSON.Engines["mono"])
	if err != nil {
		return fmt.Errorf("package.json: the 'engines.mono' constraint is not valid")
	}
	if !constraint.Check(v) {
		return fmt.Errorf("package.json: version %q does not meet the 'engines.mono' constraint %q", runningVersion, rootPackageJSON.Engines["mono"])
	}
	return nil
}
