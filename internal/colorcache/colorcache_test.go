package colorcache

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestPrefixWithColorIsStablePerKey(t *testing.T) {
	c := New()

	first := c.PrefixWithColor("web", "web")
	second := c.PrefixWithColor("web", "web")
	if first != second {
		t.Errorf("same key got different colors: %q vs %q", first, second)
	}
}

func TestPrefixWithColorRotatesAcrossKeys(t *testing.T) {
	prevNoColor := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prevNoColor }()

	c := New()

	// Same prefix text for every key, so only the color can differ.
	seen := make(map[string]bool)
	for _, key := range []string{"a", "b", "c", "d", "e", "f"} {
		seen[c.PrefixWithColor(key, "pkg")] = true
	}
	if len(seen) < 2 {
		t.Error("expected the rotating palette to assign more than one distinct color across several keys")
	}
}

func TestPrefixWithColorIncludesPrefixText(t *testing.T) {
	c := New()
	got := c.PrefixWithColor("web", "web")
	if !strings.Contains(got, "web: ") {
		t.Errorf("got %q, want it to contain %q", got, "web: ")
	}
}
