package scope

import (
	"testing"

	"github.com/pyr-sh/dag"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/workspace"
)

func buildGraph() (*dag.AcyclicGraph, *workspace.Catalog) {
	var g dag.AcyclicGraph
	for _, name := range []string{"//", "a", "b", "c"} {
		g.Add(name)
	}
	// a depends on b, b depends on c
	g.Connect(dag.BasicEdge("a", "b"))
	g.Connect(dag.BasicEdge("b", "c"))

	catalog := workspace.NewCatalog()
	for _, name := range []string{"//", "a", "b", "c"} {
		catalog.PackageJSONs[name] = &fs.PackageJSON{}
	}
	return &g, catalog
}

func TestResolvePackagesEmptyMeansEverything(t *testing.T) {
	g, catalog := buildGraph()
	got, isAll, err := ResolvePackages(&Opts{}, g, catalog, "//")
	if err != nil {
		t.Fatalf("ResolvePackages: %v", err)
	}
	if !isAll {
		t.Error("expected isAllPackages=true")
	}
	if got.Includes("//") {
		t.Error("root pseudo-package should not be included")
	}
	for _, name := range []string{"a", "b", "c"} {
		if !got.Includes(name) {
			t.Errorf("expected %q in scope", name)
		}
	}
}

func TestResolvePackagesUnknownPackageErrors(t *testing.T) {
	g, catalog := buildGraph()
	_, _, err := ResolvePackages(&Opts{Packages: []string{"nope"}}, g, catalog, "//")
	if err == nil {
		t.Error("expected an error for an unknown package")
	}
}

func TestResolvePackagesExplicitListDoesNotExpand(t *testing.T) {
	g, catalog := buildGraph()
	got, isAll, err := ResolvePackages(&Opts{Packages: []string{"a"}}, g, catalog, "//")
	if err != nil {
		t.Fatalf("ResolvePackages: %v", err)
	}
	if isAll {
		t.Error("expected isAllPackages=false for an explicit package list")
	}
	if got.Len() != 1 || !got.Includes("a") {
		t.Errorf("got %v, want exactly {a}", got.UnsafeListOfStrings())
	}
}

func TestResolvePackagesIncludeDependencies(t *testing.T) {
	g, catalog := buildGraph()
	got, _, err := ResolvePackages(&Opts{Packages: []string{"a"}, IncludeDependencies: true}, g, catalog, "//")
	if err != nil {
		t.Fatalf("ResolvePackages: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if !got.Includes(name) {
			t.Errorf("expected %q pulled in as a dependency of a, got %v", name, got.UnsafeListOfStrings())
		}
	}
}

func TestResolvePackagesIncludeDependents(t *testing.T) {
	g, catalog := buildGraph()
	got, _, err := ResolvePackages(&Opts{Packages: []string{"c"}, IncludeDependents: true}, g, catalog, "//")
	if err != nil {
		t.Fatalf("ResolvePackages: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if !got.Includes(name) {
			t.Errorf("expected %q pulled in as a dependent of c, got %v", name, got.UnsafeListOfStrings())
		}
	}
}
