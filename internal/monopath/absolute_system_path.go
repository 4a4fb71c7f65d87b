package monopath

import (
	"os"
	"path/filepath"
)

const dirPermissions = os.ModeDir | 0775

// AbsoluteSystemPath is a fully resolved path on disk, using the host's
// path separators.
type AbsoluteSystemPath string

// ToString returns the string representation of this path. Used for
// interfacing with APIs that require a plain string.
func (p AbsoluteSystemPath) ToString() string {
	return string(p)
}

// Join appends path segments using the host's separator.
func (p AbsoluteSystemPath) Join(segments ...string) AbsoluteSystemPath {
	return AbsoluteSystemPath(filepath.Join(append([]string{p.ToString()}, segments...)...))
}

// Dir returns the parent directory of this path.
func (p AbsoluteSystemPath) Dir() AbsoluteSystemPath {
	return AbsoluteSystemPath(filepath.Dir(p.ToString()))
}

// Base returns the final element of this path.
func (p AbsoluteSystemPath) Base() string {
	return filepath.Base(p.ToString())
}

// Ext returns this path's file extension, including the leading dot.
func (p AbsoluteSystemPath) Ext() string {
	return filepath.Ext(p.ToString())
}

// RelativeTo calculates the AnchoredSystemPath between basePath and p.
func (p AbsoluteSystemPath) RelativeTo(basePath AbsoluteSystemPath) (AnchoredSystemPath, error) {
	processed, err := filepath.Rel(basePath.ToString(), p.ToString())
	return AnchoredSystemPath(processed), err
}

// ContainsPath reports whether other is nested under p.
func (p AbsoluteSystemPath) ContainsPath(other AbsoluteSystemPath) (bool, error) {
	rel, err := filepath.Rel(p.ToString(), other.ToString())
	if err != nil {
		return false, err
	}
	return rel != ".." && !filepathHasDotDotPrefix(rel), nil
}

func filepathHasDotDotPrefix(rel string) bool {
	sep := string(filepath.Separator)
	return len(rel) >= 3 && rel[:3] == ".."+sep
}

// FileExists reports whether p exists and is a regular file.
func (p AbsoluteSystemPath) FileExists() bool {
	info, err := os.Lstat(p.ToString())
	return err == nil && !info.IsDir()
}

// DirExists reports whether p exists and is a directory.
func (p AbsoluteSystemPath) DirExists() bool {
	info, err := os.Lstat(p.ToString())
	return err == nil && info.IsDir()
}

// Lstat wraps os.Lstat for this path.
func (p AbsoluteSystemPath) Lstat() (os.FileInfo, error) {
	return os.Lstat(p.ToString())
}

// MkdirAll creates p and all required parents.
func (p AbsoluteSystemPath) MkdirAll() error {
	return os.MkdirAll(p.ToString(), dirPermissions|0644)
}

// EnsureDir makes sure the directory containing p exists.
func (p AbsoluteSystemPath) EnsureDir() error {
	return os.MkdirAll(p.Dir().ToString(), dirPermissions)
}

// Open wraps os.Open for this path.
func (p AbsoluteSystemPath) Open() (*os.File, error) {
	return os.Open(p.ToString())
}

// OpenFile wraps os.OpenFile for this path.
func (p AbsoluteSystemPath) OpenFile(flag int, mode os.FileMode) (*os.File, error) {
	return os.OpenFile(p.ToString(), flag, mode)
}

// Create wraps os.Create for this path.
func (p AbsoluteSystemPath) Create() (*os.File, error) {
	return os.Create(p.ToString())
}

// ReadFile reads the full contents of p.
func (p AbsoluteSystemPath) ReadFile() ([]byte, error) {
	return os.ReadFile(p.ToString())
}

// WriteFile writes contents to p, creating or truncating it.
func (p AbsoluteSystemPath) WriteFile(contents []byte, mode os.FileMode) error {
	return os.WriteFile(p.ToString(), contents, mode)
}

// Remove removes the file or empty directory at p.
func (p AbsoluteSystemPath) Remove() error {
	return os.Remove(p.ToString())
}

// RemoveAll wraps os.RemoveAll for this path.
func (p AbsoluteSystemPath) RemoveAll() error {
	return os.RemoveAll(p.ToString())
}

// Rename wraps os.Rename(p, dest) for two AbsoluteSystemPaths.
func (p AbsoluteSystemPath) Rename(dest AbsoluteSystemPath) error {
	return os.Rename(p.ToString(), dest.ToString())
}

// Symlink wraps os.Symlink(target, p).
func (p AbsoluteSystemPath) Symlink(target string) error {
	return os.Symlink(target, p.ToString())
}

// Readlink wraps os.Readlink for this path.
func (p AbsoluteSystemPath) Readlink() (string, error) {
	return os.Readlink(p.ToString())
}
