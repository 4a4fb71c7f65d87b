package scm

import (
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/monotask/mono/internal/monopath"
)

// stub is used when no .git directory can be found: it walks the
// filesystem directly, honoring a .gitignore file if one exists so a
// non-git checkout still gets reasonable "everything version-controlled"
// semantics rather than literally everything including node_modules.
type stub struct {
	repoRoot monopath.AbsoluteSystemPath
}

// ListFiles walks dir, skipping anything matched by a .gitignore at the
// repo root, if present.
func (s *stub) ListFiles(dir monopath.AbsoluteSystemPath) ([]string, error) {
	matcher, _ := ignore.CompileIgnoreFile(s.repoRoot.Join(".gitignore").ToString())

	var files []string
	err := filepath.Walk(dir.ToString(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.repoRoot.ToString(), path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if matcher != nil && matcher.MatchesPath(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}

// ChangedFiles always returns every file under relativeTo: with no git
// history to diff against, "changed since a commit" degrades to "treat
// everything as changed", which is the conservative, correct-but-slower
// choice (a cold cache rather than a silently stale one).
func (s *stub) ChangedFiles(fromCommit string, includeUntracked bool, relativeTo monopath.AbsoluteSystemPath) ([]string, error) {
	return s.ListFiles(relativeTo)
}
