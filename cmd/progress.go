package cmd

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// progress shows a spinner on interactive terminals. The zero value is a
// no-op.
type progress struct {
	s *spinner.Spinner
}

func startProgress(w io.Writer, message string) *progress {
	if quiet || !isTerminal(w) {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()
	return &progress{s: s}
}

func (p *progress) update(message string) {
	if p.s != nil {
		p.s.Suffix = " " + message
	}
}

func (p *progress) stop() {
	if p.s != nil {
		p.s.Stop()
		p.s = nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func colorEnabled(w io.Writer) bool {
	return !noColor && os.Getenv("NO_COLOR") == "" && isTerminal(w)
}
