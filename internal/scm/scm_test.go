package scm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/monotask/mono/internal/monopath"
)

func TestNewReturnsNilWithoutGitDir(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if got := New(root); got != nil {
		t.Errorf("got %v, want nil for a repo with no .git", got)
	}
}

func TestNewReturnsGitWhenGitDirPresent(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if err := os.Mkdir(root.Join(".git").ToString(), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	got := New(root)
	if got == nil {
		t.Fatal("expected a non-nil SCM")
	}
	if _, ok := got.(*git); !ok {
		t.Errorf("got %T, want *git", got)
	}
}

func TestNewFallbackReturnsStubWithError(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	got, err := NewFallback(root)
	if err != ErrFallback {
		t.Errorf("err got %v, want ErrFallback", err)
	}
	if _, ok := got.(*stub); !ok {
		t.Errorf("got %T, want *stub", got)
	}
}

func TestFromInRepoWalksUpToGitRoot(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if err := os.Mkdir(root.Join(".git").ToString(), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	nested := root.Join("packages", "web")
	if err := os.MkdirAll(nested.ToString(), 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	got, err := FromInRepo(nested)
	if err != nil {
		t.Fatalf("FromInRepo: %v", err)
	}
	if _, ok := got.(*git); !ok {
		t.Errorf("got %T, want *git", got)
	}
}

func TestStubListFilesHonorsGitignore(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if err := os.WriteFile(root.Join(".gitignore").ToString(), []byte("ignored.txt\n"), 0o644); err != nil {
		t.Fatalf("write .gitignore: %v", err)
	}
	if err := os.WriteFile(root.Join("kept.txt").ToString(), []byte("x"), 0o644); err != nil {
		t.Fatalf("write kept.txt: %v", err)
	}
	if err := os.WriteFile(root.Join("ignored.txt").ToString(), []byte("x"), 0o644); err != nil {
		t.Fatalf("write ignored.txt: %v", err)
	}

	s := &stub{repoRoot: root}
	files, err := s.ListFiles(root)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	hasKept, hasIgnored := false, false
	for _, f := range files {
		if filepath.Base(f) == "kept.txt" {
			hasKept = true
		}
		if filepath.Base(f) == "ignored.txt" {
			hasIgnored = true
		}
	}
	if !hasKept {
		t.Error("expected kept.txt to be listed")
	}
	if hasIgnored {
		t.Error("expected ignored.txt to be excluded by .gitignore")
	}
}

func TestStubChangedFilesReturnsEverything(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if err := os.WriteFile(root.Join("a.txt").ToString(), []byte("x"), 0o644); err != nil {
		t.Fatalf("write a.txt: %v", err)
	}

	s := &stub{repoRoot: root}
	files, err := s.ChangedFiles("HEAD~1", false, root)
	if err != nil {
		t.Fatalf("ChangedFiles: %v", err)
	}
	if len(files) == 0 {
		t.Error("expected ChangedFiles to degrade to listing every file")
	}
}
