package cacheitem

import (
	"archive/tar"
	"bufio"
	"io"
	"os"
	"time"

	"github.com/DataDog/zstd"

	"github.com/monotask/mono/internal/monopath"
)

// Create opens path for writing into a fresh tar+zstd archive. The
// filesystem cache writes into a .tmp-suffixed path and renames it into
// place once Close succeeds, so a half-written archive is never visible
// under its final content-addressed name.
func Create(path monopath.AbsoluteSystemPath) (*CacheItem, error) {
	handle, err := path.OpenFile(os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	ci := &CacheItem{Path: path, handle: handle}
	fileBuffer := bufio.NewWriterSize(handle, 1<<20)
	zw := zstd.NewWriter(fileBuffer)
	ci.zw = zw
	ci.fileBuffer = fileBuffer
	ci.tw = tar.NewWriter(zw)
	return ci, nil
}

// AddFile appends one file, directory, or symlink under fsAnchor/filePath
// to the archive, using a zeroed uid/gid/timestamps so two builds with
// identical content produce byte-identical archives.
func (ci *CacheItem) AddFile(fsAnchor monopath.AbsoluteSystemPath, filePath monopath.AnchoredSystemPath) error {
	sourcePath := filePath.RestoreAnchor(fsAnchor)

	info, err := sourcePath.Lstat()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		link, err = sourcePath.Readlink()
		if err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	header.Name = filePath.ToUnixPath().ToString()
	if info.IsDir() {
		header.Name += "/"
	}
	header.Uid = 0
	header.Gid = 0
	header.Uname = ""
	header.Gname = ""
	header.AccessTime = time.Unix(0, 0)
	header.ModTime = time.Unix(0, 0)
	header.ChangeTime = time.Unix(0, 0)

	if header.Typeflag != tar.TypeReg && header.Typeflag != tar.TypeDir && header.Typeflag != tar.TypeSymlink {
		return errUnsupportedFileType
	}

	if err := ci.tw.WriteHeader(header); err != nil {
		return err
	}

	if header.Typeflag == tar.TypeReg && header.Size > 0 {
		f, err := sourcePath.Open()
		if err != nil {
			return err
		}
		if _, err := io.Copy(ci.tw, f); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}
