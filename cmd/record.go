package cmd

import (
	"fmt"
	"io"
	"os"

	"polarsync/internal/formatting"
	"polarsync/internal/runner/gotest"

	"github.com/spf13/cobra"
)

func newRecordCmd() *cobra.Command {
	o := &overrides{}

	cmd := &cobra.Command{
		Use:   "record [log-file]",
		Short: "Record results from a saved go test -json log",
		Long: `Reads the output of a previous go test -json run from a file, or from
stdin when no file or "-" is given, and records the outcome of every test
that belongs to the test run. Tests are selected exactly as the run
command would select them.`,
		Example: `  go test -json ./... > results.json; polarsync record results.json
  go test -json ./... | polarsync record --record-all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o, nil)
			if err != nil {
				return err
			}

			in, closeIn, err := openLog(cmd, args)
			if err != nil {
				return err
			}
			replay, err := gotest.NewReplay(in)
			closeIn()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			p := startProgress(cmd.ErrOrStderr(), "Recording results...")
			out, err := s.Execute(ctx, replay)
			p.stop()
			if err != nil {
				return err
			}

			report := formatting.NewReport(s.ID, cfg.Project, cfg.Run, out.Selection).
				WithTests(out.Tests).
				WithRecords(out.Records)
			return writeReport(cmd, report)
		},
	}

	o.register(cmd)
	return cmd
}

func openLog(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open test log: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
