package scm

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/monotask/mono/internal/monopath"
)

// git implements SCM by shelling out to the git binary. Process
// invocation keeps this package free of a cgo or pure-Go git
// reimplementation dependency for a handful of read-only queries.
type git struct {
	repoRoot monopath.AbsoluteSystemPath
}

// ListFiles returns every file git tracks under dir, plus any untracked
// file not excluded by .gitignore - i.e. every file a `git add .` would
// pick up.
func (g *git) ListFiles(dir monopath.AbsoluteSystemPath) ([]string, error) {
	tracked, err := g.run("ls-files", "--", dir.ToString())
	if err != nil {
		return nil, errors.Wrap(err, "listing tracked files")
	}
	untracked, err := g.run("ls-files", "--other", "--exclude-standard", "--", dir.ToString())
	if err != nil {
		return nil, errors.Wrap(err, "listing untracked files")
	}
	return append(tracked, untracked...), nil
}

// ChangedFiles returns files that differ from fromCommit relative to
// HEAD, plus any untracked file when includeUntracked is set.
func (g *git) ChangedFiles(fromCommit string, includeUntracked bool, relativeTo monopath.AbsoluteSystemPath) ([]string, error) {
	if relativeTo == "" {
		relativeTo = g.repoRoot
	}

	args := []string{"diff", "--name-only", "HEAD"}
	if fromCommit != "" {
		args = []string{"diff", "--name-only", fromCommit + "...HEAD"}
	}
	changed, err := g.run(append(args, "--", relativeTo.ToString())...)
	if err != nil {
		return nil, errors.Wrapf(err, "finding changes relative to %v", relativeTo)
	}

	files := changed
	if includeUntracked {
		untracked, err := g.run("ls-files", "--other", "--exclude-standard", "--", relativeTo.ToString())
		if err != nil {
			return nil, errors.Wrap(err, "finding untracked files")
		}
		files = append(files, untracked...)
	}

	normalized := make([]string, 0, len(files))
	for _, f := range files {
		if f == "" {
			continue
		}
		rel, err := g.fixGitRelativePath(f, relativeTo)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, rel)
	}
	return normalized, nil
}

func (g *git) run(args ...string) ([]string, error) {
	out, err := exec.Command("git", args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, out)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}

func (g *git) fixGitRelativePath(worktreePath string, relativeTo monopath.AbsoluteSystemPath) (string, error) {
	abs := g.repoRoot.Join(worktreePath)
	rel, err := filepath.Rel(relativeTo.ToString(), abs.ToString())
	if err != nil {
		return "", errors.Wrapf(err, "relativizing %v against %v", abs, relativeTo)
	}
	return filepath.ToSlash(rel), nil
}
