package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"polarsync/internal/backend"
	"polarsync/internal/config"
	"polarsync/internal/formatting"
	"polarsync/internal/retry"
	"polarsync/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error or failing tests.
	ExitCodeError = 1
	// ExitCodeConfig indicates invalid or missing configuration.
	ExitCodeConfig = 2
	// ExitCodeBackend indicates the test case backend could not be reached
	// or a lookup gave up.
	ExitCodeBackend = 3
)

// Persistent flags shared by every command.
var (
	configPath   string
	debug        bool
	quiet        bool
	outputFormat string
	noColor      bool
	verbose      bool
)

// rootCmd represents the base command of polarsync.
var rootCmd = newRootCmd()

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code derived from the
// returned error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "polarsync version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if config.IsConfigurationError(err) {
		return ExitCodeConfig
	}
	if retry.IsFatal(err) {
		return ExitCodeBackend
	}
	var fault *backend.Fault
	if errors.As(err, &fault) {
		return ExitCodeBackend
	}
	return ExitCodeError
}

func initLogging(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	switch {
	case debug:
		level = logging.LevelDebug
	case quiet:
		level = logging.LevelWarn
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	if _, err := formatting.ParseFormat(outputFormat); err != nil {
		return err
	}
	return nil
}

// newRootCmd builds the command tree. Tests build a fresh tree per case so
// that flag state does not leak between executions.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "polarsync",
		Short: "Select Go tests by their Polarion test cases and record the results",
		Long: `polarsync resolves the tests of a Go module against the test cases of a
Polarion test run, runs only the tests that belong to the run and records
their outcome back into the run.

Test cases are looked up through the Polarion query service (remote backend)
or in an exported SQLite database (local backend). Lookups are widened to
cover sibling tests with a single query, and transient service faults are
retried.`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", fmt.Sprintf("config file (default ./%s, then $HOME/.config/polarsync/config.yaml)", config.LocalConfigFileName))
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors, no progress spinner")
	pf.StringVarP(&outputFormat, "output", "o", "table", "Summary format: table, json, yaml")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&verbose, "verbose", "v", false, "List every deselected test")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newSelectCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newRecordCmd())
	root.AddCommand(newMockServerCmd())
	return root
}
