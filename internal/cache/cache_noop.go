package cache

import "github.com/monotask/mono/internal/monopath"

// noopCache is handed back alongside ErrNoCachesEnabled so a caller that
// chooses to proceed anyway (warning instead of aborting) has a cache that
// always misses rather than a nil interface.
type noopCache struct{}

func newNoopCache() *noopCache {
	return &noopCache{}
}

func (c *noopCache) Fetch(_ monopath.AbsoluteSystemPath, _ string) (ItemStatus, []monopath.AnchoredSystemPath, int, error) {
	return ItemStatus{}, nil, 0, nil
}

func (c *noopCache) Exists(_ string) ItemStatus {
	return ItemStatus{}
}

func (c *noopCache) Put(_ monopath.AbsoluteSystemPath, _ string, _ int, _ []monopath.AnchoredSystemPath) error {
	return nil
}

func (c *noopCache) Clean(_ monopath.AbsoluteSystemPath) {}

func (c *noopCache) Shutdown() {}
