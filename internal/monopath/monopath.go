// Package monopath provides a small set of distinct path types so that
// absolute paths, repo-anchored paths, system-separator paths, and
// unix-separator paths cannot be silently substituted for one another at
// compile time. Mixing these up (joining two absolute paths, or handing a
// unix-separator path to a Windows API) is exactly the kind of bug that is
// cheap to make and annoying to track down; distinct types turn it into a
// compile error instead.
//
// Only the three path types this repository's collaborators actually
// need are kept, rather than a larger type system distinguishing every
// possible combination.
// AbsoluteSystemPath is a fully resolved path on disk, using the host's
// separators. AnchoredSystemPath and AnchoredUnixPath are paths relative
// to some repository root, in system or unix form respectively - the unix
// form is what gets hashed and compared, since it's stable across
// platforms.
package monopath
