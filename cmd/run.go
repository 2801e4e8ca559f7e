package cmd

import (
	"fmt"

	"polarsync/internal/formatting"
	"polarsync/internal/runner/gotest"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	o := &overrides{}

	cmd := &cobra.Command{
		Use:   "run [packages]",
		Short: "Run the tests of the test run and record their results",
		Long: `Discovers the tests of the given packages (default ./...), selects those
with a test case in the run, executes them with go test -json and records
each outcome.

Passes are always recorded. Use --record-skipped to record skips with a
declared reason and --record-all to also record failures. A write that
keeps failing is reported and dropped; it never fails the run.

The command exits with status 1 when any selected test fails.`,
		Example: `  polarsync run --project RHEL --run nightly --record-all ./...
  polarsync run --go-flag=-tags=e2e --go-flag=-timeout=30m ./e2e/...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			r := gotest.New(cfg.GoTest.Dir, cfg.GoTest.Packages, cfg.GoTest.Flags)
			p := startProgress(cmd.ErrOrStderr(), "Discovering tests...")
			items, err := r.Discover(ctx)
			if err != nil {
				p.stop()
				return err
			}
			p.update(fmt.Sprintf("Resolving %d tests...", len(items)))
			sel, err := s.Select(ctx, items)
			p.stop()
			if err != nil {
				return err
			}

			report := formatting.NewReport(s.ID, cfg.Project, cfg.Run, sel)
			if len(sel.Selected) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No tests selected")
				return writeReport(cmd, report)
			}

			summary, runErr := r.Execute(ctx, sel.Selected, s)
			report = report.WithTests(summary).WithRecords(s.Metrics())
			if err := writeReport(cmd, report); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if summary.Failed > 0 {
				return &testFailuresError{failed: summary.Failed}
			}
			return nil
		},
	}

	o.register(cmd)
	return cmd
}
