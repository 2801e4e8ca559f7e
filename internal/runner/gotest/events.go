package gotest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Actions emitted by test2json.
const (
	ActionRun    = "run"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// Event is one line of `go test -json` output.
type Event struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// Terminal reports whether the event ends a test or package.
func (e Event) Terminal() bool {
	switch e.Action {
	case ActionPass, ActionFail, ActionSkip:
		return true
	}
	return false
}

// Decode reads NDJSON events from r and calls fn for each of them. Lines
// that are not valid events are counted and skipped.
func Decode(r io.Reader, fn func(Event)) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var malformed int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			malformed++
			continue
		}
		fn(e)
	}
	if err := scanner.Err(); err != nil {
		return malformed, fmt.Errorf("reading test events: %w", err)
	}
	return malformed, nil
}
