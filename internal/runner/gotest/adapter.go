package gotest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"polarsync/internal/runner"
	"polarsync/pkg/logging"
)

var listedTest = regexp.MustCompile(`^(Test|Example)[\p{L}\p{N}_]*$`)

// Source starts `go <args>` in dir and returns its stdout and a wait
// function that reports how the process ended.
type Source func(ctx context.Context, dir string, args []string) (io.ReadCloser, func() error, error)

// Adapter runs Go packages with `go test -json`.
type Adapter struct {
	// Dir is the module directory tests are run from.
	Dir string
	// Packages are the package patterns to discover, "./..." when empty.
	Packages []string
	// Flags are passed to every go test invocation, for example "-tags=e2e".
	Flags []string
	// Source starts the go command. Nil runs the go binary from PATH.
	Source Source
}

var _ runner.Runner = (*Adapter)(nil)

// New returns an adapter for the packages in dir.
func New(dir string, packages, flags []string) *Adapter {
	return &Adapter{Dir: dir, Packages: packages, Flags: flags}
}

// Discover lists the tests of the configured packages.
func (a *Adapter) Discover(ctx context.Context) ([]runner.Item, error) {
	args := append([]string{"test", "-json", "-list", "."}, a.Flags...)
	args = append(args, a.packages()...)

	var items []runner.Item
	err := a.stream(ctx, args, func(e Event) {
		if e.Action != ActionOutput || e.Test != "" {
			return
		}
		name := strings.TrimSpace(e.Output)
		if listedTest.MatchString(name) {
			items = append(items, ItemFor(e.Package, name))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	logging.Debug("GoTest", "Discovered %d tests", len(items))
	return items, nil
}

// Execute runs the given items package by package and reports every phase
// to r.
func (a *Adapter) Execute(ctx context.Context, items []runner.Item, r runner.Reporter) (runner.Summary, error) {
	start := time.Now()
	t := newTracker(func(item runner.Item, rep runner.Report) {
		r.Report(ctx, item, rep)
	})

	for _, group := range groupByPackage(items) {
		args := append([]string{"test", "-json", "-count=1", "-run", runPattern(group.tests)}, a.Flags...)
		args = append(args, group.pkg)

		logging.Info("GoTest", "Running %d tests in %s", len(group.tests), group.pkg)
		if err := a.stream(ctx, args, t.handle); err != nil {
			t.summary.Elapsed = time.Since(start)
			return t.summary, fmt.Errorf("failed to run tests in %s: %w", group.pkg, err)
		}
	}

	t.summary.Elapsed = time.Since(start)
	return t.summary, nil
}

func (a *Adapter) packages() []string {
	if len(a.Packages) == 0 {
		return []string{"./..."}
	}
	return a.Packages
}

func (a *Adapter) stream(ctx context.Context, args []string, fn func(Event)) error {
	source := a.Source
	if source == nil {
		source = execSource
	}

	out, wait, err := source(ctx, a.Dir, args)
	if err != nil {
		return err
	}
	malformed, decodeErr := Decode(out, fn)
	_ = out.Close()
	waitErr := wait()

	if malformed > 0 {
		logging.Debug("GoTest", "Skipped %d non-JSON lines", malformed)
	}
	if decodeErr != nil {
		return decodeErr
	}
	return waitErr
}

type packageGroup struct {
	pkg   string
	tests []string
}

func groupByPackage(items []runner.Item) []packageGroup {
	var groups []packageGroup
	index := make(map[string]int)
	seen := make(map[string]bool)

	for _, item := range items {
		pkg, test := SplitID(item.ID)
		if pkg == "" || seen[pkg+idSeparator+test] {
			continue
		}
		seen[pkg+idSeparator+test] = true

		i, ok := index[pkg]
		if !ok {
			i = len(groups)
			index[pkg] = i
			groups = append(groups, packageGroup{pkg: pkg})
		}
		groups[i].tests = append(groups[i].tests, test)
	}
	return groups
}

func runPattern(tests []string) string {
	quoted := make([]string, len(tests))
	for i, t := range tests {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return "^(" + strings.Join(quoted, "|") + ")$"
}

// execSource runs the go binary. Exit status 1 with JSON output means
// failing tests, which the event stream already carries.
func execSource(ctx context.Context, dir string, args []string) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start go: %w", err)
	}

	wait := func() error {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil
		}
		if err != nil && stderr.Len() > 0 {
			return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return err
	}
	return out, wait, nil
}
