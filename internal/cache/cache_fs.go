package cache

import (
	"encoding/json"
	"fmt"

	"github.com/nightlyone/lockfile"

	"github.com/monotask/mono/internal/cacheitem"
	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/util"
)

type fsCache struct {
	cacheDirectory monopath.AbsoluteSystemPath
}

func newFsCache(opts Opts, repoRoot monopath.AbsoluteSystemPath) (*fsCache, error) {
	dir := opts.Dir
	if dir == "" {
		dir = repoRoot.Join(util.DefaultConfigDir, util.DefaultCacheDir)
	}
	if err := dir.MkdirAll(); err != nil {
		return nil, err
	}
	return &fsCache{cacheDirectory: dir}, nil
}

func (f *fsCache) archivePath(hash string) monopath.AbsoluteSystemPath {
	return f.cacheDirectory.Join(hash + ".tar.zst")
}

func (f *fsCache) metaPath(hash string) monopath.AbsoluteSystemPath {
	return f.cacheDirectory.Join(hash + "-meta.json")
}

func (f *fsCache) lockPath(hash string) monopath.AbsoluteSystemPath {
	return f.cacheDirectory.Join(hash + ".lock")
}

// acquireWriteLock guards hash's archive against two separate mono
// processes (not just goroutines within one process) racing to write it.
// A process that loses the race returns alreadyWriting so its caller can
// treat the other writer's result as authoritative instead of erroring.
func (f *fsCache) acquireWriteLock(hash string) (lockfile.Lockfile, bool, error) {
	lock, err := lockfile.New(f.lockPath(hash).ToString())
	if err != nil {
		return "", false, err
	}
	if err := lock.TryLock(); err != nil {
		return "", true, nil
	}
	return lock, false, nil
}

func (f *fsCache) Fetch(anchor monopath.AbsoluteSystemPath, hash string) (ItemStatus, []monopath.AnchoredSystemPath, int, error) {
	archivePath := f.archivePath(hash)
	if !archivePath.FileExists() {
		return ItemStatus{Local: false}, nil, 0, nil
	}

	item, err := cacheitem.Open(archivePath)
	if err != nil {
		return ItemStatus{Local: false}, nil, 0, err
	}
	restored, err := item.Restore(anchor)
	if err != nil {
		_ = item.Close()
		return ItemStatus{Local: false}, nil, 0, err
	}
	if err := item.Close(); err != nil {
		return ItemStatus{Local: false}, restored, 0, err
	}

	meta, err := readMeta(f.metaPath(hash))
	if err != nil {
		return ItemStatus{Local: true}, restored, 0, nil
	}
	return ItemStatus{Local: true}, restored, meta.Duration, nil
}

func (f *fsCache) Exists(hash string) ItemStatus {
	return ItemStatus{Local: f.archivePath(hash).FileExists()}
}

// Put writes the archive to a temp path and renames it into place, so a
// concurrent Fetch for the same hash never observes a partially written
// file: rename is atomic within the same filesystem.
func (f *fsCache) Put(anchor monopath.AbsoluteSystemPath, hash string, duration int, files []monopath.AnchoredSystemPath) error {
	lock, alreadyWriting, err := f.acquireWriteLock(hash)
	if err != nil {
		return err
	}
	if alreadyWriting {
		return nil
	}
	defer func() { _ = lock.Unlock() }()

	finalPath := f.archivePath(hash)
	tmpPath := f.cacheDirectory.Join(hash + ".tar.zst.tmp")

	item, err := cacheitem.Create(tmpPath)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := item.AddFile(anchor, file); err != nil {
			_ = item.Close()
			_ = tmpPath.Remove()
			return err
		}
	}
	if err := item.Close(); err != nil {
		_ = tmpPath.Remove()
		return err
	}
	if err := tmpPath.Rename(finalPath); err != nil {
		return err
	}

	return writeMeta(f.metaPath(hash), &cacheMetadata{Hash: hash, Duration: duration})
}

func (f *fsCache) Clean(_ monopath.AbsoluteSystemPath) {}

func (f *fsCache) Shutdown() {}

type cacheMetadata struct {
	Hash     string `json:"hash"`
	Duration int    `json:"duration"`
}

func writeMeta(path monopath.AbsoluteSystemPath, meta *cacheMetadata) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return path.WriteFile(b, 0644)
}

func readMeta(path monopath.AbsoluteSystemPath) (*cacheMetadata, error) {
	b, err := path.ReadFile()
	if err != nil {
		return nil, err
	}
	var meta cacheMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, fmt.Errorf("corrupt cache metadata at %v: %w", path, err)
	}
	return &meta, nil
}
