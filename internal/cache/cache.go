// Package cache coordinates reading and writing task output archives: a
// local filesystem cache keyed by task hash, with archives written
// atomically (write to a .tmp path, then rename) so a crash mid-write
// never leaves a corrupt entry visible to a concurrent reader.
package cache

import (
	"fmt"

	"github.com/monotask/mono/internal/monopath"
)

// ItemStatus reports where a cache hit was found, if any.
type ItemStatus struct {
	Local  bool
	Remote bool
}

// Hit reports whether the item was found anywhere.
func (s ItemStatus) Hit() bool {
	return s.Local || s.Remote
}

// Cache fetches and stores task output archives keyed by content hash.
type Cache interface {
	// Fetch restores the archive for hash into anchor, returning which
	// paths were written.
	Fetch(anchor monopath.AbsoluteSystemPath, hash string) (ItemStatus, []monopath.AnchoredSystemPath, int, error)
	// Exists reports whether hash has a cache entry, without restoring it.
	Exists(hash string) ItemStatus
	// Put stores files (anchor-relative) under hash, recording duration
	// (in milliseconds) for the run-summary's time-saved calculation.
	Put(anchor monopath.AbsoluteSystemPath, hash string, duration int, files []monopath.AnchoredSystemPath) error
	Clean(anchor monopath.AbsoluteSystemPath)
	Shutdown()
}

// Opts configures the cache a run should use.
type Opts struct {
	Dir            monopath.AbsoluteSystemPath
	SkipRemote     bool
	SkipFilesystem bool
	Workers        int
}

// ErrNoCachesEnabled is returned when every configured cache is disabled.
var ErrNoCachesEnabled = fmt.Errorf("no caches are enabled")

// New constructs the cache stack a run should use: the local filesystem
// cache, the remote HTTP cache, or both layered with the filesystem
// checked first, per opts.
func New(opts Opts, repoRoot monopath.AbsoluteSystemPath, remote Cache) (Cache, error) {
	var caches []Cache

	if !opts.SkipFilesystem {
		fsCache, err := newFsCache(opts, repoRoot)
		if err != nil {
			return nil, err
		}
		caches = append(caches, fsCache)
	}
	if !opts.SkipRemote && remote != nil {
		caches = append(caches, remote)
	}
	if len(caches) == 0 {
		return newNoopCache(), ErrNoCachesEnabled
	}
	if len(caches) == 1 {
		return caches[0], nil
	}
	return &multiplexCache{caches: caches}, nil
}

// multiplexCache checks each underlying cache in order, stopping at the
// first hit and backfilling any cache that missed so a later lookup for
// the same hash hits locally.
type multiplexCache struct {
	caches []Cache
}

func (m *multiplexCache) Fetch(anchor monopath.AbsoluteSystemPath, hash string) (ItemStatus, []monopath.AnchoredSystemPath, int, error) {
	for i, c := range m.caches {
		status, files, duration, err := c.Fetch(anchor, hash)
		if err != nil {
			return status, files, duration, err
		}
		if status.Hit() {
			for _, backfill := range m.caches[:i] {
				_ = backfill.Put(anchor, hash, duration, files)
			}
			return status, files, duration, nil
		}
	}
	return ItemStatus{}, nil, 0, nil
}

func (m *multiplexCache) Exists(hash string) ItemStatus {
	var status ItemStatus
	for _, c := range m.caches {
		s := c.Exists(hash)
		status.Local = status.Local || s.Local
		status.Remote = status.Remote || s.Remote
	}
	return status
}

func (m *multiplexCache) Put(anchor monopath.AbsoluteSystemPath, hash string, duration int, files []monopath.AnchoredSystemPath) error {
	for _, c := range m.caches {
		if err := c.Put(anchor, hash, duration, files); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiplexCache) Clean(anchor monopath.AbsoluteSystemPath) {
	for _, c := range m.caches {
		c.Clean(anchor)
	}
}

func (m *multiplexCache) Shutdown() {
	for _, c := range m.caches {
		c.Shutdown()
	}
}
