package cache

import (
	"time"

	"github.com/monotask/mono/internal/cacheitem"
	"github.com/monotask/mono/internal/client"
	"github.com/monotask/mono/internal/monopath"
)

// httpCache adapts a RemoteCacheClient to the Cache interface, staging
// the downloaded archive to a local temp file so cacheitem can restore
// it using the same tar+zstd reader the filesystem cache uses.
type httpCache struct {
	client     *client.RemoteCacheClient
	stagingDir monopath.AbsoluteSystemPath
}

// NewHTTPCache wraps remoteClient as a Cache, staging downloaded
// archives under stagingDir before handing them to cacheitem.
func NewHTTPCache(remoteClient *client.RemoteCacheClient, stagingDir monopath.AbsoluteSystemPath) (Cache, error) {
	if err := stagingDir.MkdirAll(); err != nil {
		return nil, err
	}
	return &httpCache{client: remoteClient, stagingDir: stagingDir}, nil
}

func (h *httpCache) stagePath(hash string) monopath.AbsoluteSystemPath {
	return h.stagingDir.Join(hash + ".tar.zst")
}

func (h *httpCache) Fetch(anchor monopath.AbsoluteSystemPath, hash string) (ItemStatus, []monopath.AnchoredSystemPath, int, error) {
	body, hit, err := h.client.FetchArtifact(hash)
	if err != nil {
		return ItemStatus{Remote: false}, nil, 0, err
	}
	if !hit {
		return ItemStatus{Remote: false}, nil, 0, nil
	}

	stagePath := h.stagePath(hash)
	if err := stagePath.WriteFile(body, 0644); err != nil {
		return ItemStatus{Remote: false}, nil, 0, err
	}
	defer func() { _ = stagePath.Remove() }()

	item, err := cacheitem.Open(stagePath)
	if err != nil {
		return ItemStatus{Remote: false}, nil, 0, err
	}
	restored, err := item.Restore(anchor)
	if err != nil {
		_ = item.Close()
		return ItemStatus{Remote: false}, nil, 0, err
	}
	if err := item.Close(); err != nil {
		return ItemStatus{Remote: false}, restored, 0, err
	}
	return ItemStatus{Remote: true}, restored, 0, nil
}

func (h *httpCache) Exists(hash string) ItemStatus {
	ok, err := h.client.ArtifactExists(hash)
	if err != nil {
		return ItemStatus{Remote: false}
	}
	return ItemStatus{Remote: ok}
}

func (h *httpCache) Put(anchor monopath.AbsoluteSystemPath, hash string, duration int, files []monopath.AnchoredSystemPath) error {
	start := time.Now()
	stagePath := h.stagePath(hash)
	item, err := cacheitem.Create(stagePath)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := item.AddFile(anchor, file); err != nil {
			_ = item.Close()
			_ = stagePath.Remove()
			return err
		}
	}
	if err := item.Close(); err != nil {
		_ = stagePath.Remove()
		return err
	}
	defer func() { _ = stagePath.Remove() }()

	body, err := stagePath.ReadFile()
	if err != nil {
		return err
	}
	if duration == 0 {
		duration = int(time.Since(start).Milliseconds())
	}
	return h.client.PutArtifact(hash, body, duration)
}

func (h *httpCache) Clean(_ monopath.AbsoluteSystemPath) {}

func (h *httpCache) Shutdown() {}
