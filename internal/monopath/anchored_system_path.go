package monopath

import "path/filepath"

// AnchoredSystemPath is a path relative to some repository root (the
// "anchor"), using the host's path separators.
type AnchoredSystemPath string

// ToString returns the string representation of this path.
func (p AnchoredSystemPath) ToString() string {
	return string(p)
}

// ToUnixPath converts this path to unix-separator form.
func (p AnchoredSystemPath) ToUnixPath() AnchoredUnixPath {
	return AnchoredUnixPath(filepath.ToSlash(p.ToString()))
}

// RestoreAnchor prefixes p with anchor to produce an AbsoluteSystemPath.
func (p AnchoredSystemPath) RestoreAnchor(anchor AbsoluteSystemPath) AbsoluteSystemPath {
	return AbsoluteSystemPath(filepath.Join(anchor.ToString(), p.ToString()))
}

// Join appends further path segments.
func (p AnchoredSystemPath) Join(segments ...string) AnchoredSystemPath {
	return AnchoredSystemPath(filepath.Join(append([]string{p.ToString()}, segments...)...))
}

// Dir returns the parent of p.
func (p AnchoredSystemPath) Dir() AnchoredSystemPath {
	return AnchoredSystemPath(filepath.Dir(p.ToString()))
}
