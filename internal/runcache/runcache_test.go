package runcache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/nodes"
	"github.com/monotask/mono/internal/monopath"
)

func Test_TaskCache_OutputGlobs(t *testing.T) {
	repoRoot := monopath.AbsoluteSystemPath("/repo")
	pkg := fs.PackageJSON{Dir: monopath.AnchoredSystemPath("apps/docs")}
	taskDefinition := fs.TaskDefinition{
		Outputs: fs.TaskOutputs{
			Inclusions: []string{".next/**", "dist"},
			Exclusions: []string{".next/cache/**"},
		},
		ShouldCache: true,
	}
	pt := nodes.PackageTask{
		TaskID:         "docs#build",
		Task:           "build",
		PackageName:    "docs",
		Pkg:            &pkg,
		TaskDefinition: &taskDefinition,
		Dir:            "apps/docs",
	}

	rc := New(nil, repoRoot, Opts{}, nil)
	tc := rc.TaskCache(&pt, "somehash")

	assert.False(t, tc.cachingDisabled)
	assert.Contains(t, tc.repoRelativeGlobs.Inclusions, "apps/docs/.next/**")
	assert.Contains(t, tc.repoRelativeGlobs.Inclusions, "apps/docs/dist/**")
	assert.Contains(t, tc.repoRelativeGlobs.Exclusions, "apps/docs/.next/cache/**")
}

func Test_TaskCache_CachingDisabled(t *testing.T) {
	repoRoot := monopath.AbsoluteSystemPath("/repo")
	pkg := fs.PackageJSON{Dir: monopath.AnchoredSystemPath("apps/docs")}
	taskDefinition := fs.TaskDefinition{ShouldCache: false}
	pt := nodes.PackageTask{
		TaskID:         "docs#build",
		Task:           "build",
		PackageName:    "docs",
		Pkg:            &pkg,
		TaskDefinition: &taskDefinition,
	}

	rc := New(nil, repoRoot, Opts{}, nil)
	tc := rc.TaskCache(&pt, "somehash")

	assert.True(t, tc.cachingDisabled)
}
