package cmd

import (
	"fmt"

	"polarsync/internal/formatting"
	"polarsync/internal/runner/gotest"

	"github.com/spf13/cobra"
)

func newSelectCmd() *cobra.Command {
	o := &overrides{}
	var listOnly bool

	cmd := &cobra.Command{
		Use:   "select [packages]",
		Short: "Show which tests belong to the test run without running them",
		Long: `Discovers the tests of the given packages (default ./...), resolves each
against the test cases of the run and prints the selection.

With --list only the selected test IDs are printed, one per line.`,
		Example: `  polarsync select --project RHEL --run nightly ./...
  polarsync select --backend local --local-path cases.db -o json`,
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

			p := startProgress(cmd.ErrOrStderr(), "Discovering tests...")
			items, err := gotest.New(cfg.GoTest.Dir, cfg.GoTest.Packages, cfg.GoTest.Flags).Discover(ctx)
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

			if listOnly {
				for _, it := range sel.Selected {
					fmt.Fprintln(cmd.OutOrStdout(), it.ID)
				}
				return nil
			}
			return writeReport(cmd, formatting.NewReport(s.ID, cfg.Project, cfg.Run, sel))
		},
	}

	o.register(cmd)
	cmd.Flags().BoolVar(&listOnly, "list", false, "Print only the selected test IDs")
	return cmd
}
