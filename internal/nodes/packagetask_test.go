package nodes

import (
	"path/filepath"
	"testing"

	"github.com/monotask/mono/internal/fs"
)

func TestRepoRelativeSystemLogFile(t *testing.T) {
	pt := &PackageTask{Dir: "apps/web", Task: "build"}
	want := filepath.Join("apps/web", ".mono", "mono-build.log")
	if got := pt.RepoRelativeSystemLogFile(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLogFilenameEscapesColon(t *testing.T) {
	pt := &PackageTask{Dir: "apps/web", Task: "build:prod"}
	got := pt.RepoRelativeSystemLogFile()
	want := filepath.Join("apps/web", ".mono", "mono-build$colon$prod.log")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOutputPrefix(t *testing.T) {
	pt := &PackageTask{PackageName: "web", Task: "build"}
	if got := pt.OutputPrefix(false); got != "web:build" {
		t.Errorf("multi-package got %q, want %q", got, "web:build")
	}
	if got := pt.OutputPrefix(true); got != "build" {
		t.Errorf("single-package got %q, want %q", got, "build")
	}
}

func TestHashableOutputsIncludesLogFileAndSorts(t *testing.T) {
	pt := &PackageTask{
		Dir:  "apps/web",
		Task: "build",
		TaskDefinition: &fs.TaskDefinition{
			Outputs: fs.TaskOutputs{
				Inclusions: []string{"dist/**", "build/**"},
				Exclusions: []string{"**/*.map"},
			},
		},
	}

	got := pt.HashableOutputs()
	if len(got.Inclusions) != 3 {
		t.Fatalf("got %d inclusions, want 3 (two declared plus the log file)", len(got.Inclusions))
	}
	found := false
	for _, inc := range got.Inclusions {
		if inc == ".mono/mono-build.log" {
			found = true
		}
	}
	if !found {
		t.Errorf("inclusions %v should contain the task's own log file", got.Inclusions)
	}
}
