// Package colorcache assigns each package a stable terminal color the
// first time its output is prefixed, so a multi-package run's
// interleaved log lines stay visually distinguishable by package.
package colorcache

import (
	"sync"

	"github.com/fatih/color"

	"github.com/monotask/mono/internal/util"
)

type colorFn = func(format string, a ...interface{}) string

func terminalPackageColors() []colorFn {
	return []colorFn{color.CyanString, color.MagentaString, color.GreenString, color.YellowString, color.BlueString}
}

// ColorCache hands out one of a small rotating palette of colors per
// package name, memoizing the assignment so the same package always
// gets the same color within a run.
type ColorCache struct {
	mu         sync.Mutex
	index      int
	termColors []colorFn
	cache      map[string]colorFn
}

// New creates an empty ColorCache.
func New() *ColorCache {
	return &ColorCache{
		termColors: terminalPackageColors(),
		cache:      make(map[string]colorFn),
	}
}

func (c *ColorCache) colorForKey(key string) colorFn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn, ok := c.cache[key]; ok {
		return fn
	}
	c.index++
	fn := c.termColors[util.PositiveMod(c.index, len(c.termColors))]
	c.cache[key] = fn
	return fn
}

// PrefixWithColor renders prefix in a consistent color keyed off
// cacheKey (normally the package name).
func (c *ColorCache) PrefixWithColor(cacheKey string, prefix string) string {
	fn := c.colorForKey(cacheKey)
	return fn("%s: ", prefix)
}
