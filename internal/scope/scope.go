// Package scope resolves which packages a run's tasks should execute
// against, from an explicit package list plus optional dependency and
// dependent expansion.
package scope

import (
	"fmt"

	"github.com/pyr-sh/dag"

	"github.com/monotask/mono/internal/util"
	"github.com/monotask/mono/internal/workspace"
)

// Opts holds the flags that narrow a run's entrypoint packages.
type Opts struct {
	// Packages explicitly names entrypoint packages. Empty means "every
	// package in the repository".
	Packages []string

	// IncludeDependencies pulls in every package an entrypoint package
	// depends on.
	IncludeDependencies bool

	// IncludeDependents pulls in every package that depends on an
	// entrypoint package.
	IncludeDependents bool
}

// ResolvePackages returns the set of packages a run's tasks should
// execute against, and whether that set is every package (no filter
// was given).
func ResolvePackages(opts *Opts, workspaceGraph *dag.AcyclicGraph, workspaceInfos *workspace.Catalog, rootNode string) (util.Set, bool, error) {
	filtered := make(util.Set)
	isAllPackages := len(opts.Packages) == 0

	if isAllPackages {
		for name := range workspaceInfos.PackageJSONs {
			if name != rootNode && name != util.RootPkgName {
				filtered.Add(name)
			}
		}
		return filtered, true, nil
	}

	for _, name := range opts.Packages {
		if _, ok := workspaceInfos.PackageJSONs[name]; !ok {
			return nil, false, fmt.Errorf("no package named %q exists in this repository", name)
		}
		filtered.Add(name)
	}

	if opts.IncludeDependents {
		for _, pkg := range filtered.UnsafeListOfStrings() {
			if err := addRelated(filtered, pkg, workspaceGraph, rootNode, (*dag.AcyclicGraph).Descendents); err != nil {
				return nil, false, err
			}
		}
	}

	if opts.IncludeDependencies {
		for _, pkg := range filtered.UnsafeListOfStrings() {
			if err := addRelated(filtered, pkg, workspaceGraph, rootNode, (*dag.AcyclicGraph).Ancestors); err != nil {
				return nil, false, err
			}
		}
	}

	filtered.Delete(rootNode)
	return filtered, isAllPackages, nil
}

func addRelated(into util.Set, pkg string, g *dag.AcyclicGraph, rootNode string, walk func(*dag.AcyclicGraph, dag.Vertex) (dag.Set, error)) error {
	related, err := walk(g, pkg)
	if err != nil {
		return fmt.Errorf("error calculating affected packages for %v: %w", pkg, err)
	}
	for v := range related {
		if name, ok := v.(string); ok && name != rootNode {
			into.Add(name)
		}
	}
	return nil
}
