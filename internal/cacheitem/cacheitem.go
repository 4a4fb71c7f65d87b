// Package cacheitem wraps a single cache archive on disk: a
// zstd-compressed tar stream holding one task's declared output files
// at a content-addressed path named by the task's hash.
package cacheitem

import (
	"archive/tar"
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/DataDog/zstd"

	"github.com/monotask/mono/internal/monopath"
)

var errUnsupportedFileType = errors.New("attempted to archive an unsupported file type")

// CacheItem is a tar archive under construction or being read back.
type CacheItem struct {
	Path monopath.AbsoluteSystemPath

	tw         *tar.Writer
	tr         *tar.Reader
	zw         io.WriteCloser
	zr         io.ReadCloser
	fileBuffer *bufio.Writer
	handle     *os.File
}

// Close flushes and releases every handle this CacheItem opened.
func (ci *CacheItem) Close() error {
	if ci.zw != nil {
		if err := ci.zw.Close(); err != nil {
			return err
		}
	}
	if ci.fileBuffer != nil {
		if err := ci.fileBuffer.Flush(); err != nil {
			return err
		}
	}
	if ci.zr != nil {
		if err := ci.zr.Close(); err != nil {
			return err
		}
	}
	if ci.handle != nil {
		return ci.handle.Close()
	}
	return nil
}
