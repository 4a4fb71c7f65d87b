package inference

import (
	"testing"

	"github.com/monotask/mono/internal/fs"
)

func TestInferFrameworkAllStrategy(t *testing.T) {
	pkg := &fs.PackageJSON{
		UnresolvedExternalDeps: map[string]string{"next": "^13.0.0"},
	}
	got := InferFramework(pkg)
	if got == nil || got.Slug != "nextjs" {
		t.Fatalf("got %v, want nextjs", got)
	}
}

func TestInferFrameworkSomeStrategy(t *testing.T) {
	pkg := &fs.PackageJSON{
		UnresolvedExternalDeps: map[string]string{"nuxt-edge": "^3.0.0"},
	}
	got := InferFramework(pkg)
	if got == nil || got.Slug != "nuxtjs" {
		t.Fatalf("got %v, want nuxtjs", got)
	}
}

func TestInferFrameworkNoMatch(t *testing.T) {
	pkg := &fs.PackageJSON{
		UnresolvedExternalDeps: map[string]string{"lodash": "^4.0.0"},
	}
	if got := InferFramework(pkg); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestInferFrameworkNilPackage(t *testing.T) {
	if got := InferFramework(nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestInferFrameworkFallsBackToDependenciesInSinglePackageMode(t *testing.T) {
	pkg := &fs.PackageJSON{
		Workspaces:   fs.Workspaces{},
		Dependencies: map[string]string{"astro": "^2.0.0"},
	}
	got := InferFramework(pkg)
	if got == nil || got.Slug != "astro" {
		t.Fatalf("got %v, want astro", got)
	}
}

func TestInferFrameworkAllStrategyRequiresEveryDependency(t *testing.T) {
	pkg := &fs.PackageJSON{
		UnresolvedExternalDeps: map[string]string{"solid-js": "^1.0.0"},
	}
	if got := InferFramework(pkg); got != nil {
		t.Errorf("solidstart needs both solid-js and solid-start, got a match: %v", got)
	}
}
