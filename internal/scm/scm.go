// Package scm abstracts over a repository's version-control system so
// the hasher can default a task's `inputs` to "every version-controlled
// file" without hand-rolling gitignore semantics. Only git is
// implemented; anything else falls back to a .gitignore-aware walk.
//
// Adapted from https://github.com/thought-machine/please/tree/master/src/scm
package scm

import (
	"github.com/pkg/errors"

	"github.com/monotask/mono/internal/monopath"
)

// ErrFallback is returned (alongside a usable stub SCM) when no .git
// directory is found walking up from the working directory.
var ErrFallback = errors.New("no .git directory found; falling back to a .gitignore-aware file walk, which may be slower")

// SCM is the narrow surface this repo needs from a version-control
// system: enumerate tracked+untracked-but-not-ignored files, and list
// what changed since a given ref.
type SCM interface {
	// ListFiles returns every version-controlled file under dir,
	// relative to the repository root.
	ListFiles(dir monopath.AbsoluteSystemPath) ([]string, error)
	// ChangedFiles returns files that differ from fromCommit, optionally
	// including untracked files, relative to relativeTo.
	ChangedFiles(fromCommit string, includeUntracked bool, relativeTo monopath.AbsoluteSystemPath) ([]string, error)
}

// New returns a git-backed SCM for repoRoot, or nil if repoRoot has no
// .git directory.
func New(repoRoot monopath.AbsoluteSystemPath) SCM {
	if repoRoot.Join(".git").DirExists() {
		return &git{repoRoot: repoRoot}
	}
	return nil
}

// NewFallback returns a git-backed SCM if available, otherwise a
// gitignore-aware stub plus ErrFallback so the caller can log a warning
// without treating it as fatal.
func NewFallback(repoRoot monopath.AbsoluteSystemPath) (SCM, error) {
	if found := New(repoRoot); found != nil {
		return found, nil
	}
	return &stub{repoRoot: repoRoot}, ErrFallback
}

// FromInRepo walks up from cwd looking for a .git directory and returns
// the SCM rooted there.
func FromInRepo(cwd monopath.AbsoluteSystemPath) (SCM, error) {
	dir := cwd
	for {
		if dir.Join(".git").DirExists() {
			return NewFallback(dir)
		}
		parent := dir.Dir()
		if parent == dir {
			return NewFallback(cwd)
		}
		dir = parent
	}
}
