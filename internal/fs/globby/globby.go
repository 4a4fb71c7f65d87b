// Package globby expands a task's `inputs`/`outputs` glob patterns into a
// concrete, sorted file list relative to a package directory.
package globby

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/karrick/godirwalk"
)

// GlobFiles walks workspacePath and returns every file matching at least
// one of include and none of exclude, as paths relative to workspacePath
// using unix separators. An empty include list matches every file not
// excluded; internal/taskhash calls it that way when a task declares no
// inputs.
func GlobFiles(workspacePath string, include []string, exclude []string) ([]string, error) {
	includeGlobs, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	excludeGlobs, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}

	var matches []string
	err = godirwalk.Walk(workspacePath, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, dirent *godirwalk.Dirent) error {
			if dirent.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(workspacePath, osPathname)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if matchesAny(excludeGlobs, rel) {
				return nil
			}
			if len(includeGlobs) == 0 || matchesAny(includeGlobs, rel) {
				matches = append(matches, rel)
			}
			return nil
		},
		ErrorCallback: func(osPathname string, err error) godirwalk.ErrorAction {
			if os.IsNotExist(err) {
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		// gobwas/glob's "**" does not absorb the "/" around it, so also
		// compile the form where "**/" stands for zero directories.
		variants := []string{p}
		if strings.HasPrefix(p, "**/") {
			variants = append(variants, strings.TrimPrefix(p, "**/"))
		}
		if strings.Contains(p, "/**/") {
			variants = append(variants, strings.Replace(p, "/**/", "/", -1))
		}
		for _, v := range variants {
			g, err := glob.Compile(v, '/')
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, g)
		}
	}
	return compiled, nil
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// ExpandDirectoryGlob rewrites a bare directory-name pattern like "dist"
// into "dist/**" so it matches every file under that directory: a plain
// path in `outputs` means "everything under it", not a literal
// single-file match.
func ExpandDirectoryGlob(pattern string) string {
	if strings.ContainsAny(pattern, "*?[{") || strings.HasSuffix(pattern, "/") {
		return pattern
	}
	return pattern + "/**"
}
