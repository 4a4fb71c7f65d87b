// Package ui holds the terminal presentation helpers shared by every
// command: colorized prefixes, TTY detection, and the cli.Ui factory
// chain (basic -> colored -> concurrent -> prefixed) each task's output
// is routed through.
package ui

import (
	"io"
	"os"
	"regexp"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var ansiRegex = regexp.MustCompile("[\x1b\x9b][[()#;?]*(?:(?:(?:[a-zA-Z0-9]*(?:;[a-zA-Z0-9]*)*)?\a)|(?:(?:[0-9]{1,4}(?:;[0-9]{0,4})*)?[0-9A-PRZcf-ntqry=><~]))")

// IsTTY is true when stdout looks like an interactive terminal.
var IsTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

// IsCI is true when stdout isn't a TTY or a recognized CI env var is set,
// which is when a run should skip the interactive spinner and replay
// logs plainly instead.
var IsCI = !IsTTY || os.Getenv("CI") != "" || os.Getenv("BUILD_NUMBER") != "" || os.Getenv("TEAMCITY_VERSION") != ""

var gray = color.New(color.Faint)
var bold = color.New(color.Bold)

// ERROR_PREFIX is a colored " ERROR " badge for error lines.
var ERROR_PREFIX = color.New(color.Bold, color.FgRed, color.ReverseVideo).Sprint(" ERROR ")

// WARNING_PREFIX is a colored " WARNING " badge for warning lines.
var WARNING_PREFIX = color.New(color.Bold, color.FgYellow, color.ReverseVideo).Sprint(" WARNING ")

// InfoPrefix is a colored " INFO " badge for informational lines.
var InfoPrefix = color.New(color.Bold, color.FgWhite, color.ReverseVideo).Sprint(" INFO ")

// Dim renders str in dimmed/faint color.
func Dim(str string) string {
	return gray.Sprint(str)
}

// Bold renders str in bold.
func Bold(str string) string {
	return bold.Sprint(str)
}

type stripAnsiWriter struct {
	wrapped io.Writer
}

func (w *stripAnsiWriter) Write(p []byte) (int, error) {
	_, err := w.wrapped.Write(ansiRegex.ReplaceAll(p, nil))
	if err != nil {
		return 0, err
	}
	// The underlying write consumed fewer bytes than p (escapes were
	// stripped); report p's full length so callers don't treat this as
	// a short write.
	return len(p), nil
}
