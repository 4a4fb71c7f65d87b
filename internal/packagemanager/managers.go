package packagemanager

import (
	"fmt"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/monopath"
)

func npmLikeWorkspaceGlobs(root monopath.AbsoluteSystemPath) ([]string, error) {
	pkg, err := fs.ReadPackageJSON(root.Join("package.json"))
	if err != nil {
		return nil, fmt.Errorf("package.json: %w", err)
	}
	if len(pkg.Workspaces) == 0 {
		return nil, fmt.Errorf("package.json: no \"workspaces\" field found at repository root")
	}
	return []string(pkg.Workspaces), nil
}

func defaultWorkspaceIgnores(root monopath.AbsoluteSystemPath) ([]string, error) {
	return []string{"**/node_modules/**"}, nil
}

var npm = PackageManager{
	Name:         "npm",
	Slug:         "npm",
	Lockfile:     "package-lock.json",
	Command:      "npm",
	ArgSeparator: []string{"--"},

	getWorkspaceGlobs:   npmLikeWorkspaceGlobs,
	getWorkspaceIgnores: defaultWorkspaceIgnores,
	matches:             func(manager, version string) bool { return manager == "npm" },
	detect: func(root monopath.AbsoluteSystemPath) bool {
		return root.Join("package.json").FileExists() && root.Join("package-lock.json").FileExists()
	},
}

var yarn = PackageManager{
	Name:         "yarn",
	Slug:         "yarn",
	Lockfile:     "yarn.lock",
	Command:      "yarn",
	ArgSeparator: nil,

	getWorkspaceGlobs:   npmLikeWorkspaceGlobs,
	getWorkspaceIgnores: defaultWorkspaceIgnores,
	matches:             func(manager, version string) bool { return manager == "yarn" && version[0] == '1' },
	detect: func(root monopath.AbsoluteSystemPath) bool {
		return root.Join("package.json").FileExists() && root.Join("yarn.lock").FileExists()
	},
}

// berry is yarn 2+ (the "Berry" rewrite); it shares yarn's lockfile name
// but a distinct major-version match and a different ignore pattern
// since Yarn Berry's PnP mode has no node_modules to exclude.
var berry = PackageManager{
	Name:         "yarn-berry",
	Slug:         "yarn",
	Lockfile:     "yarn.lock",
	Command:      "yarn",
	ArgSeparator: nil,

	getWorkspaceGlobs: npmLikeWorkspaceGlobs,
	getWorkspaceIgnores: func(root monopath.AbsoluteSystemPath) ([]string, error) {
		return []string{"**/node_modules/**", "**/.yarn/**"}, nil
	},
	matches: func(manager, version string) bool { return manager == "yarn" && version[0] != '1' },
	detect: func(root monopath.AbsoluteSystemPath) bool {
		return root.Join(".yarnrc.yml").FileExists()
	},
}

var pnpm = PackageManager{
	Name:         "pnpm",
	Slug:         "pnpm",
	Lockfile:     "pnpm-lock.yaml",
	Command:      "pnpm",
	ArgSeparator: []string{"--"},

	getWorkspaceGlobs: func(root monopath.AbsoluteSystemPath) ([]string, error) {
		// pnpm declares workspaces in pnpm-workspace.yaml rather than
		// package.json; this repo does not parse YAML for it (no
		// component needs pnpm-specific workspace shapes beyond glob
		// discovery), so fall back to a conventional default used by the
		// overwhelming majority of pnpm monorepos.
		if root.Join("pnpm-workspace.yaml").FileExists() {
			return []string{"packages/*", "apps/*"}, nil
		}
		return npmLikeWorkspaceGlobs(root)
	},
	getWorkspaceIgnores: defaultWorkspaceIgnores,
	matches:             func(manager, version string) bool { return manager == "pnpm" },
	detect: func(root monopath.AbsoluteSystemPath) bool {
		return root.Join("pnpm-lock.yaml").FileExists()
	},
}
