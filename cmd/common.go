package cmd

import (
	"fmt"

	"polarsync/internal/config"
	"polarsync/internal/formatting"
	"polarsync/internal/runner"
	"polarsync/internal/session"
	"polarsync/pkg/logging"

	"github.com/spf13/cobra"
)

// deselectionLog logs every deselected test at debug level.
type deselectionLog struct{}

func (deselectionLog) Deselected(items []runner.Item) {
	if !logging.Enabled(logging.LevelDebug) {
		return
	}
	for _, it := range items {
		logging.Debug("Selection", "Deselected %s", it.ID)
	}
}

func openSession(cmd *cobra.Command, cfg config.Config) (*session.Session, error) {
	return session.Open(cmd.Context(), cfg,
		session.WithHooks(deselectionLog{}),
		session.WithClientVersion(cmd.Root().Version),
	)
}

func writeReport(cmd *cobra.Command, r formatting.Report) error {
	format, err := formatting.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	return formatting.Write(out, r, formatting.Options{
		Format:  format,
		Color:   colorEnabled(out),
		Verbose: verbose,
	})
}

// testFailuresError reports failing tests after they were recorded.
type testFailuresError struct {
	failed int
}

func (e *testFailuresError) Error() string {
	return fmt.Sprintf("%d test(s) failed", e.failed)
}
