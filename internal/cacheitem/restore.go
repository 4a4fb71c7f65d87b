package cacheitem

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DataDog/zstd"

	"github.com/monotask/mono/internal/monopath"
)

var errTraversal = errors.New("archive entry attempts to write outside of the restore anchor")

// Open prepares an existing archive at path for reading.
func Open(path monopath.AbsoluteSystemPath) (*CacheItem, error) {
	handle, err := path.Open()
	if err != nil {
		return nil, err
	}
	zr := zstd.NewReader(handle)
	ci := &CacheItem{
		Path:   path,
		handle: handle,
		zr:     zr,
		tr:     tar.NewReader(zr),
	}
	return ci, nil
}

// Restore writes every entry in the archive to anchor, returning the
// anchor-relative paths it wrote. Directories are created as encountered
// and symlinks point wherever their header says; the archive is only
// ever produced by Create with entries in a safe write order (parent
// directories before children), so a single forward pass suffices - a
// more general two-pass deferred-symlink restore would only matter for
// archives this package's own writer never produces.
func (ci *CacheItem) Restore(anchor monopath.AbsoluteSystemPath) ([]monopath.AnchoredSystemPath, error) {
	var restored []monopath.AnchoredSystemPath

	for {
		header, err := ci.tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return restored, err
		}

		name := strings.TrimSuffix(header.Name, "/")
		relPath := monopath.AnchoredUnixPath(name).ToSystemPath()
		destPath := relPath.RestoreAnchor(anchor)

		ok, err := anchor.ContainsPath(destPath)
		if err != nil {
			return restored, err
		}
		if !ok {
			return restored, errTraversal
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := destPath.MkdirAll(); err != nil {
				return restored, err
			}
		case tar.TypeReg:
			if err := destPath.EnsureDir(); err != nil {
				return restored, err
			}
			f, err := destPath.OpenFile(os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return restored, err
			}
			if _, err := io.Copy(f, ci.tr); err != nil {
				_ = f.Close()
				return restored, err
			}
			if err := f.Close(); err != nil {
				return restored, err
			}
		case tar.TypeSymlink:
			if err := destPath.EnsureDir(); err != nil {
				return restored, err
			}
			_ = destPath.Remove()
			if err := destPath.Symlink(filepath.FromSlash(header.Linkname)); err != nil {
				return restored, err
			}
		default:
			continue
		}
		restored = append(restored, relPath)
	}
	return restored, nil
}
