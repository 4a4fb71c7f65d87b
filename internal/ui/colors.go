package ui

import (
	"os"

	"github.com/fatih/color"
)

// ColorMode controls whether output color is forced on, forced off, or
// left to color's own TTY/NO_COLOR detection.
type ColorMode int

// The recognized color modes.
const (
	ColorModeUndefined ColorMode = iota + 1
	ColorModeSuppressed
	ColorModeForced
)

// GetColorModeFromEnv reads FORCE_COLOR the way the supports-color npm
// package does, since mono.json-driven tooling in this ecosystem
// already expects that convention.
func GetColorModeFromEnv() ColorMode {
	switch forceColor := os.Getenv("FORCE_COLOR"); {
	case forceColor == "false" || forceColor == "0":
		return ColorModeSuppressed
	case forceColor == "true" || forceColor == "1" || forceColor == "2" || forceColor == "3":
		return ColorModeForced
	default:
		return ColorModeUndefined
	}
}

func applyColorMode(colorMode ColorMode) ColorMode {
	switch colorMode {
	case ColorModeForced:
		color.NoColor = false
	case ColorModeSuppressed:
		color.NoColor = true
	case ColorModeUndefined:
	}

	if color.NoColor {
		return ColorModeSuppressed
	}
	return ColorModeForced
}
