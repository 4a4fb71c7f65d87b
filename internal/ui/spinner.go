package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// charset is the dot-cycle animation.
var charset = spinner.CharSets[14]

// startStopper is the interface to interact with the spinner.
type startStopper interface {
	Start()
	Stop()
}

// Spinner indicates that a short synchronous step - hashing, workspace
// discovery - is in progress. Callers should check IsCI first: under CI
// the interval widens to 30s so the animation never pollutes captured
// logs with thousands of carriage returns.
type Spinner struct {
	spin startStopper
}

// NewSpinner returns a spinner that writes to w.
func NewSpinner(w io.Writer) *Spinner {
	interval := 125 * time.Millisecond
	if os.Getenv("CI") == "true" {
		interval = 30 * time.Second
	}
	s := spinner.New(charset, interval, spinner.WithHiddenCursor(true))
	s.Writer = w
	s.Color("faint")
	return &Spinner{spin: s}
}

// Start starts the spinner suffixed with a label.
func (s *Spinner) Start(label string) {
	s.suffix(fmt.Sprintf(" %s", label))
	s.spin.Start()
}

// Stop stops the spinner, replacing it with label.
func (s *Spinner) Stop(label string) {
	s.finalMSG(label)
	s.spin.Stop()
}

func (s *Spinner) lock() {
	if sp, ok := s.spin.(*spinner.Spinner); ok {
		sp.Lock()
	}
}

func (s *Spinner) unlock() {
	if sp, ok := s.spin.(*spinner.Spinner); ok {
		sp.Unlock()
	}
}

func (s *Spinner) suffix(label string) {
	s.lock()
	defer s.unlock()
	if sp, ok := s.spin.(*spinner.Spinner); ok {
		sp.Suffix = label
	}
}

func (s *Spinner) finalMSG(label string) {
	s.lock()
	defer s.unlock()
	if sp, ok := s.spin.(*spinner.Spinner); ok {
		sp.FinalMSG = label
		if label != "" {
			sp.FinalMSG += "\n"
		}
	}
}
