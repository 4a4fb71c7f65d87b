package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/cli"
)

// Factory builds a cli.Ui bound to a specific input/output/error stream
// triple, so the same factory chain can be reused against both the
// real terminal and a test harness's buffers.
type Factory interface {
	Build(in io.Reader, out io.Writer, err io.Writer) cli.Ui
}

// BasicUIFactory builds a plain, non-colored, non-threadsafe cli.Ui.
type BasicUIFactory struct{}

// basicUI mirrors cli.BasicUi, inlined so Output can fuse a trailing
// newline consistently across platforms.
type basicUI struct {
	Reader      io.Reader
	Writer      io.Writer
	ErrorWriter io.Writer
}

func (u *basicUI) Ask(query string) (string, error) {
	return u.ask(query, false)
}

func (u *basicUI) AskSecret(query string) (string, error) {
	return u.ask(query, true)
}

func (u *basicUI) ask(query string, _ bool) (string, error) {
	if _, err := fmt.Fprint(u.Writer, query+" "); err != nil {
		return "", err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	lineCh := make(chan string, 1)
	go func() {
		r := bufio.NewReader(u.Reader)
		line, err := r.ReadString('\n')
		if err != nil {
			errCh <- err
			return
		}
		lineCh <- strings.TrimRight(line, "\r\n")
	}()

	select {
	case err := <-errCh:
		return "", err
	case line := <-lineCh:
		return line, nil
	case <-sigCh:
		fmt.Fprintln(u.Writer)
		return "", errors.New("interrupted")
	}
}

func (u *basicUI) Error(message string) {
	w := u.Writer
	if u.ErrorWriter != nil {
		w = u.ErrorWriter
	}
	fmt.Fprintf(w, "%v\n", message)
}

func (u *basicUI) Info(message string) {
	u.Output(message)
}

func (u *basicUI) Output(message string) {
	fmt.Fprintf(u.Writer, "%v\n", message)
}

func (u *basicUI) Warn(message string) {
	u.Error(message)
}

// Build implements Factory.
func (factory *BasicUIFactory) Build(in io.Reader, out io.Writer, err io.Writer) cli.Ui {
	return &basicUI{Reader: in, Writer: out, ErrorWriter: err}
}

// ColoredUIFactory wraps a base factory's Ui in cli.ColoredUi, honoring
// ColorMode (suppressing color by stripping ANSI codes rather than
// relying on the base Ui never emitting them).
type ColoredUIFactory struct {
	ColorMode ColorMode
	Base      Factory
}

// Build implements Factory.
func (factory *ColoredUIFactory) Build(in io.Reader, out io.Writer, err io.Writer) cli.Ui {
	factory.ColorMode = applyColorMode(factory.ColorMode)

	var outWriter, errWriter io.Writer
	if factory.ColorMode == ColorModeSuppressed {
		outWriter = &stripAnsiWriter{wrapped: out}
		errWriter = &stripAnsiWriter{wrapped: err}
	} else {
		outWriter = out
		errWriter = err
	}

	return &cli.ColoredUi{
		Ui:          factory.Base.Build(in, outWriter, errWriter),
		OutputColor: cli.UiColorNone,
		InfoColor:   cli.UiColorNone,
		WarnColor:   cli.UiColor{Code: int(color.FgYellow), Bold: false},
		ErrorColor:  cli.UiColorRed,
	}
}

// ConcurrentUIFactory wraps a base factory's Ui in cli.ConcurrentUi, so
// the scheduler's goroutines can write to it without interleaving.
type ConcurrentUIFactory struct {
	Base Factory
}

// Build implements Factory.
func (factory *ConcurrentUIFactory) Build(in io.Reader, out io.Writer, err io.Writer) cli.Ui {
	return &cli.ConcurrentUi{Ui: factory.Base.Build(in, out, err)}
}

// PrefixedUIFactory wraps a base factory's Ui in cli.PrefixedUi, used to
// tag each task's output with its package:task label.
type PrefixedUIFactory struct {
	Base            Factory
	AskPrefix       string
	AskSecretPrefix string
	OutputPrefix    string
	InfoPrefix      string
	ErrorPrefix     string
	WarnPrefix      string
}

// Build implements Factory.
func (factory *PrefixedUIFactory) Build(in io.Reader, out io.Writer, err io.Writer) cli.Ui {
	return &cli.PrefixedUi{
		AskPrefix:       factory.AskPrefix,
		AskSecretPrefix: factory.AskSecretPrefix,
		OutputPrefix:    factory.OutputPrefix,
		InfoPrefix:      factory.InfoPrefix,
		ErrorPrefix:     factory.ErrorPrefix,
		WarnPrefix:      factory.WarnPrefix,
		Ui:              factory.Base.Build(in, out, err),
	}
}
