package cache

import (
	"testing"

	"github.com/monotask/mono/internal/monopath"
)

type fakeCache struct {
	entries      map[string][]monopath.AnchoredSystemPath
	putCallCount int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]monopath.AnchoredSystemPath)}
}

func (c *fakeCache) Fetch(_ monopath.AbsoluteSystemPath, hash string) (ItemStatus, []monopath.AnchoredSystemPath, int, error) {
	if files, ok := c.entries[hash]; ok {
		return ItemStatus{Local: true}, files, 5, nil
	}
	return ItemStatus{}, nil, 0, nil
}

func (c *fakeCache) Exists(hash string) ItemStatus {
	if _, ok := c.entries[hash]; ok {
		return ItemStatus{Local: true}
	}
	return ItemStatus{}
}

func (c *fakeCache) Put(_ monopath.AbsoluteSystemPath, hash string, _ int, files []monopath.AnchoredSystemPath) error {
	c.putCallCount++
	c.entries[hash] = files
	return nil
}

func (c *fakeCache) Clean(_ monopath.AbsoluteSystemPath) {}
func (c *fakeCache) Shutdown()                            {}

func TestMultiplexCacheBackfillsEarlierMisses(t *testing.T) {
	first := newFakeCache()
	second := newFakeCache()
	files := []monopath.AnchoredSystemPath{monopath.AnchoredSystemPath("dist/out.js")}
	second.entries["hash-1"] = files

	m := &multiplexCache{caches: []Cache{first, second}}

	anchor := monopath.AbsoluteSystemPath("/repo")
	status, got, _, err := m.Fetch(anchor, "hash-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !status.Hit() {
		t.Fatal("expected a hit from the second cache")
	}
	if len(got) != 1 || got[0] != files[0] {
		t.Errorf("Fetch returned %v, want %v", got, files)
	}
	if first.putCallCount != 1 {
		t.Errorf("first cache should be backfilled once, got %v Put calls", first.putCallCount)
	}
}

func TestMultiplexCacheExistsIsTrueIfAnyCacheHasIt(t *testing.T) {
	first := newFakeCache()
	second := newFakeCache()
	second.entries["hash-1"] = nil

	m := &multiplexCache{caches: []Cache{first, second}}
	if !m.Exists("hash-1").Hit() {
		t.Error("Exists should report a hit when the second cache has the entry")
	}
	if m.Exists("hash-2").Hit() {
		t.Error("Exists should report a miss when neither cache has the entry")
	}
}

func TestNewReturnsNoopCacheWhenEverythingIsDisabled(t *testing.T) {
	opts := Opts{SkipFilesystem: true, SkipRemote: true}
	got, err := New(opts, monopath.AbsoluteSystemPath("/repo"), nil)
	if err != ErrNoCachesEnabled {
		t.Fatalf("err got %v, want ErrNoCachesEnabled", err)
	}
	if got == nil {
		t.Fatal("New should still return a usable cache alongside ErrNoCachesEnabled")
	}

	status, files, _, fetchErr := got.Fetch(monopath.AbsoluteSystemPath("/repo"), "any-hash")
	if fetchErr != nil || status.Hit() || files != nil {
		t.Errorf("noop cache Fetch should always miss cleanly, got status=%v files=%v err=%v", status, files, fetchErr)
	}
}

func TestNewSkipsRemoteWhenNilEvenIfNotExplicitlySkipped(t *testing.T) {
	opts := Opts{SkipFilesystem: true, SkipRemote: false}
	got, err := New(opts, monopath.AbsoluteSystemPath("/repo"), nil)
	if err != ErrNoCachesEnabled {
		t.Fatalf("err got %v, want ErrNoCachesEnabled", err)
	}
	if got == nil {
		t.Fatal("expected a non-nil noop cache")
	}
}
