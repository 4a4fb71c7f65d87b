package packagemanager

import (
	"path/filepath"

	"github.com/monotask/mono/internal/fs/globby"
	"github.com/monotask/mono/internal/monopath"
)

// expandWorkspaceGlobs resolves workspace glob patterns (e.g.
// "packages/*") against root into the matching package.json paths, minus
// anything matched by ignores.
func expandWorkspaceGlobs(root monopath.AbsoluteSystemPath, globs []string, ignores []string) ([]monopath.AnchoredSystemPath, error) {
	include := make([]string, len(globs))
	for i, g := range globs {
		include[i] = filepath.ToSlash(filepath.Join(g, "package.json"))
	}

	matches, err := globby.GlobFiles(root.ToString(), include, ignores)
	if err != nil {
		return nil, err
	}

	paths := make([]monopath.AnchoredSystemPath, len(matches))
	for i, m := range matches {
		paths[i] = monopath.AnchoredUnixPath(m).ToSystemPath()
	}
	return paths, nil
}
