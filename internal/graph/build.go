package graph

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pyr-sh/dag"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/packagemanager"
	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/util"
	"github.com/monotask/mono/internal/workspace"
)

// rootNodeName is the synthetic vertex every leaf package connects to,
// matching core.RootNodeName - duplicated here rather than imported to
// avoid a graph<->core import cycle (core already imports graph).
const rootNodeName = "___ROOT___"

// BuildCompleteGraph discovers every workspace package under repoRoot,
// loads its package.json and mono.json, and wires the internal
// dependency edges between them. It is the one-time setup every run
// shares; task-specific scoping and hashing happen afterward.
//
// Dependency resolution here is name-matching only: a dependency is
// internal if some discovered workspace package has that name, external
// otherwise. Unlike a full package-manager-aware resolver, nothing here
// walks a lockfile to pin external dependencies to resolved versions -
// this repo hashes the lockfile as an opaque blob (see
// internal/packagemanager.LockfileHash) rather than parsing it, so there
// is nothing for a per-package sub-lockfile to resolve against.
func BuildCompleteGraph(repoRoot monopath.AbsoluteSystemPath, rootPackageJSON *fs.PackageJSON, pm *packagemanager.PackageManager, singlePackageMode bool) (*CompleteGraph, error) {
	catalog := workspace.NewCatalog()
	workspaceGraph := &dag.AcyclicGraph{}

	rootMonoJSON, err := fs.LoadMonoConfig(repoRoot, rootPackageJSON, singlePackageMode)
	if err != nil {
		return nil, fmt.Errorf("error reading mono.json: %w", err)
	}

	if singlePackageMode {
		rootPackageJSON.Dir = monopath.AnchoredSystemPath("")
		catalog.PackageJSONs[util.RootPkgName] = rootPackageJSON
		catalog.MonoConfigs[util.RootPkgName] = rootMonoJSON
		workspaceGraph.Add(util.RootPkgName)
		return &CompleteGraph{
			WorkspaceGraph:  *workspaceGraph,
			Pipeline:        rootMonoJSON.Pipeline,
			WorkspaceInfos:  catalog,
			RootNode:        rootNodeName,
			TaskDefinitions: make(map[string]*fs.TaskDefinition),
			RepoRoot:        repoRoot,
		}, nil
	}

	catalog.PackageJSONs[util.RootPkgName] = rootPackageJSON
	catalog.MonoConfigs[util.RootPkgName] = rootMonoJSON
	workspaceGraph.Add(util.RootPkgName)

	workspacePaths, err := pm.GetWorkspaces(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("error resolving workspaces: %w", err)
	}

	var loadErrs *multierror.Error
	for _, pkgJSONRel := range workspacePaths {
		wsDir := pkgJSONRel.Dir()
		pkgJSONPath := repoRoot.Join(wsDir.ToString(), "package.json")
		if !pkgJSONPath.FileExists() {
			continue
		}
		pkg, err := fs.ReadPackageJSON(pkgJSONPath)
		if err != nil {
			loadErrs = multierror.Append(loadErrs, fmt.Errorf("error reading %v: %w", pkgJSONPath, err))
			continue
		}
		if pkg.Name == "" {
			continue
		}
		if _, ok := catalog.PackageJSONs[pkg.Name]; ok {
			loadErrs = multierror.Append(loadErrs, fmt.Errorf("duplicate package name %q found at %v", pkg.Name, wsDir))
			continue
		}
		pkg.PackageJSONPath = wsDir.Join("package.json")
		pkg.Dir = wsDir

		monoJSON, err := fs.LoadMonoConfig(repoRoot.Join(wsDir.ToString()), pkg, false)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			loadErrs = multierror.Append(loadErrs, fmt.Errorf("error reading %v's mono.json: %w", pkg.Name, err))
			continue
		}

		catalog.PackageJSONs[pkg.Name] = pkg
		if monoJSON != nil {
			catalog.MonoConfigs[pkg.Name] = monoJSON
		}
		workspaceGraph.Add(pkg.Name)
	}
	if err := loadErrs.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, pkg := range catalog.PackageJSONs {
		if pkg.Name == util.RootPkgName {
			continue
		}
		if err := populateDependencyEdges(workspaceGraph, catalog, pkg); err != nil {
			return nil, err
		}
	}

	return &CompleteGraph{
		WorkspaceGraph:  *workspaceGraph,
		Pipeline:        rootMonoJSON.Pipeline,
		WorkspaceInfos:  catalog,
		RootNode:        rootNodeName,
		TaskDefinitions: make(map[string]*fs.TaskDefinition),
		RepoRoot:        repoRoot,
	}, nil
}

// populateDependencyEdges splits pkg's declared dependencies into
// internal (another discovered workspace package) and external, connects
// an edge to every internal dependency, and hashes the sorted external
// dependency name:version pairs into pkg.ExternalDepsHash.
func populateDependencyEdges(workspaceGraph *dag.AcyclicGraph, catalog *workspace.Catalog, pkg *fs.PackageJSON) error {
	pkg.Lock()
	defer pkg.Unlock()

	depSet := util.Set{}
	for dep := range pkg.Dependencies {
		depSet.Add(dep)
	}
	for dep := range pkg.DevDependencies {
		depSet.Add(dep)
	}
	for dep := range pkg.OptionalDependencies {
		depSet.Add(dep)
	}
	for dep := range pkg.PeerDependencies {
		depSet.Add(dep)
	}

	pkg.UnresolvedExternalDeps = make(map[string]string)
	var internalDeps []string
	var externalDeps []string

	for _, depName := range depSet.UnsafeListOfStrings() {
		if _, ok := catalog.PackageJSONs[depName]; ok && depName != pkg.Name {
			internalDeps = append(internalDeps, depName)
			workspaceGraph.Connect(dag.BasicEdge(pkg.Name, depName))
			continue
		}
		externalDeps = append(externalDeps, depName)
		if v, ok := pkg.Dependencies[depName]; ok {
			pkg.UnresolvedExternalDeps[depName] = v
		} else if v, ok := pkg.DevDependencies[depName]; ok {
			pkg.UnresolvedExternalDeps[depName] = v
		} else if v, ok := pkg.OptionalDependencies[depName]; ok {
			pkg.UnresolvedExternalDeps[depName] = v
		} else if v, ok := pkg.PeerDependencies[depName]; ok {
			pkg.UnresolvedExternalDeps[depName] = v
		}
	}

	if len(internalDeps) == 0 {
		workspaceGraph.Connect(dag.BasicEdge(pkg.Name, rootNodeName))
	}

	sort.Strings(internalDeps)
	sort.Strings(externalDeps)
	pkg.InternalDeps = internalDeps

	hashInputs := make([]string, 0, len(externalDeps))
	for _, name := range externalDeps {
		hashInputs = append(hashInputs, fmt.Sprintf("%s@%s", name, pkg.UnresolvedExternalDeps[name]))
	}
	pkg.ExternalDepsHash = fs.HashObject(hashInputs...)

	return nil
}
