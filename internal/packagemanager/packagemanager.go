// Package packagemanager identifies which Node package manager a
// repository uses and locates its lockfile and workspace glob
// declarations. It deliberately never parses a lockfile's format: per
// this repository's non-goals, the lockfile is hashed as an opaque blob
// (see LockfileHash) rather than walked for resolved dependency
// versions.
//
// Adapted from https://github.com/replit/upm
package packagemanager

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/monopath"
)

// PackageManager describes one supported Node package manager.
type PackageManager struct {
	Name     string
	Slug     string
	Lockfile string

	// Command is the executable used to run a package script, e.g. "npm".
	Command string

	// ArgSeparator, when non-empty, is inserted before pass-through
	// arguments so the package manager forwards them to the script
	// instead of trying to parse them as its own flags.
	ArgSeparator []string

	getWorkspaceGlobs   func(root monopath.AbsoluteSystemPath) ([]string, error)
	getWorkspaceIgnores func(root monopath.AbsoluteSystemPath) ([]string, error)
	matches             func(manager, version string) bool
	detect              func(root monopath.AbsoluteSystemPath) bool
}

var packageManagers = []PackageManager{npm, yarn, berry, pnpm}

var packageManagerStringPattern = regexp.MustCompile(`(npm|pnpm|yarn)@(\d+)\.\d+\.\d+(-.+)?`)

// ParsePackageManagerString splits a package.json "packageManager" field
// like "pnpm@7.5.0" into its manager name and version.
func ParsePackageManagerString(packageManager string) (manager string, version string, err error) {
	match := packageManagerStringPattern.FindString(packageManager)
	if match == "" {
		return "", "", fmt.Errorf(`could not parse "packageManager" field, expected "name@semver", got %q`, packageManager)
	}
	parts := strings.SplitN(match, "@", 2)
	return parts[0], parts[1], nil
}

// GetPackageManager identifies the package manager for a repository,
// first from the root package.json's "packageManager" field, falling
// back to detecting a lockfile on disk.
func GetPackageManager(root monopath.AbsoluteSystemPath, rootPkg *fs.PackageJSON) (*PackageManager, error) {
	if rootPkg.PackageManager != "" {
		manager, _, err := ParsePackageManagerString(rootPkg.PackageManager)
		if err != nil {
			return nil, err
		}
		for i := range packageManagers {
			if packageManagers[i].Slug == manager {
				return &packageManagers[i], nil
			}
		}
	}

	for i := range packageManagers {
		if packageManagers[i].detect(root) {
			return &packageManagers[i], nil
		}
	}

	return nil, errors.New(`could not detect a package manager; set "packageManager" in the root package.json`)
}

// GetWorkspaces resolves the package manager's workspace globs against
// root and returns the matching package.json paths.
func (pm PackageManager) GetWorkspaces(root monopath.AbsoluteSystemPath) ([]monopath.AnchoredSystemPath, error) {
	globs, err := pm.getWorkspaceGlobs(root)
	if err != nil {
		return nil, err
	}
	ignores, err := pm.getWorkspaceIgnores(root)
	if err != nil {
		return nil, err
	}
	return expandWorkspaceGlobs(root, globs, ignores)
}

// GetWorkspaceIgnores returns the globs this package manager excludes
// when searching for workspaces (e.g. npm's implicit node_modules/**),
// for reuse outside of GetWorkspaces - the global hash needs the same
// ignore list when globbing file dependencies.
func (pm PackageManager) GetWorkspaceIgnores(root monopath.AbsoluteSystemPath) ([]string, error) {
	return pm.getWorkspaceIgnores(root)
}

// LockfilePath returns the path to this package manager's lockfile
// relative to root.
func (pm PackageManager) LockfilePath(root monopath.AbsoluteSystemPath) monopath.AbsoluteSystemPath {
	return root.Join(pm.Lockfile)
}

// LockfileHash hashes the lockfile's raw bytes as an opaque blob: this
// repo does not parse any package manager's lockfile format (an explicit
// non-goal), so the only signal available is "did the bytes change",
// which is exactly what the global hash needs to know.
func LockfileHash(path monopath.AbsoluteSystemPath, hashFile func([]byte) string) (string, error) {
	if !path.FileExists() {
		return "", nil
	}
	data, err := path.ReadFile()
	if err != nil {
		return "", err
	}
	return hashFile(data), nil
}
