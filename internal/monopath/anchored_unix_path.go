package monopath

import (
	"path"
	"path/filepath"
)

// AnchoredUnixPath is a path relative to some repository root, using unix
// `/` separators regardless of host platform. This is the canonical form
// used wherever a path is hashed or compared, so fingerprints don't
// change depending on whether the run happened on Windows or not.
type AnchoredUnixPath string

// ToString returns the string representation of this path.
func (p AnchoredUnixPath) ToString() string {
	return string(p)
}

// ToSystemPath converts this path to the host's separator form.
func (p AnchoredUnixPath) ToSystemPath() AnchoredSystemPath {
	return AnchoredSystemPath(filepath.FromSlash(p.ToString()))
}

// Join appends further unix-separated path segments.
func (p AnchoredUnixPath) Join(segments ...string) AnchoredUnixPath {
	return AnchoredUnixPath(path.Join(append([]string{p.ToString()}, segments...)...))
}
