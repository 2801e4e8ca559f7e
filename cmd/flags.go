package cmd

import (
	"fmt"

	"polarsync/internal/config"
	"polarsync/internal/lookup"
	"polarsync/pkg/logging"

	"github.com/spf13/cobra"
)

// overrides are command line settings applied over the configuration file.
// Only flags that were set explicitly override file values.
type overrides struct {
	backend       string
	endpoint      string
	localPath     string
	project       string
	run           string
	assignee      string
	importance    []string
	level         int
	baseNamespace string

	collectBlocked       bool
	collectFailed        bool
	skipExecuted         bool
	requireRunMembership bool

	recordSkipped bool
	recordAll     bool
	recordNone    bool
	blockers      []string

	dir     string
	goFlags []string
}

func (o *overrides) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.backend, "backend", "", "Test case backend: remote or local")
	f.StringVar(&o.endpoint, "endpoint", "", "Query service MCP endpoint URL")
	f.StringVar(&o.localPath, "local-path", "", "SQLite test case database for the local backend")
	f.StringVar(&o.project, "project", "", "Polarion project ID")
	f.StringVar(&o.run, "run", "", "Polarion test run ID")
	f.StringVar(&o.assignee, "assignee", "", "Only select test cases assigned to this user")
	f.StringSliceVar(&o.importance, "importance", nil, "Only select test cases with these importance values")
	f.IntVar(&o.level, "level", lookup.Auto, "Lookup breadth level, -1 to derive it from the number of tests")
	f.StringVar(&o.baseNamespace, "base-namespace", "", "Package segment where test case IDs start")

	f.BoolVar(&o.collectBlocked, "collect-blocked", false, "Also select tests already recorded as blocked")
	f.BoolVar(&o.collectFailed, "collect-failed", false, "Also select tests already recorded as failed")
	f.BoolVar(&o.skipExecuted, "skip-executed", false, "Deselect tests that already have a result in the run")
	f.BoolVar(&o.requireRunMembership, "require-run-membership", true, "Deselect tests whose test case is not part of the run")

	f.BoolVar(&o.recordSkipped, "record-skipped", false, "Record skips with a known reason as skipped or blocked")
	f.BoolVar(&o.recordAll, "record-all", false, "Record failures and skips in addition to passes")
	f.BoolVar(&o.recordNone, "record-none", false, "Do not record any result")
	f.StringSliceVar(&o.blockers, "blocker-pattern", nil, "Regular expression marking a skip as blocked (repeatable)")

	f.StringVar(&o.dir, "dir", "", "Module directory to run go test in")
	f.StringArrayVar(&o.goFlags, "go-flag", nil, "Extra go test flag, for example -tags=e2e (repeatable)")
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config, packages []string) {
	changed := cmd.Flags().Changed

	if changed("backend") {
		cfg.Backend = config.BackendKind(o.backend)
	}
	if changed("endpoint") {
		cfg.Remote.Endpoint = o.endpoint
	}
	if changed("local-path") {
		cfg.Local.Path = o.localPath
	}
	if changed("project") {
		cfg.Project = o.project
	}
	if changed("run") {
		cfg.Run = o.run
	}
	if changed("assignee") {
		cfg.Selection.Assignee = o.assignee
	}
	if changed("importance") {
		cfg.Selection.Importance = o.importance
	}
	if changed("level") {
		cfg.Selection.BreadthLevel = o.level
	}
	if changed("base-namespace") {
		cfg.Selection.BaseNamespace = o.baseNamespace
	}
	if changed("collect-blocked") {
		cfg.Selection.CollectBlocked = o.collectBlocked
	}
	if changed("collect-failed") {
		cfg.Selection.CollectFailed = o.collectFailed
	}
	if changed("skip-executed") {
		cfg.Selection.SkipAlreadyExecuted = o.skipExecuted
	}
	if changed("require-run-membership") {
		v := o.requireRunMembership
		cfg.Selection.RequireRunMembership = &v
	}
	if changed("record-skipped") {
		cfg.Record.Skipped = o.recordSkipped
	}
	if changed("record-all") {
		cfg.Record.All = o.recordAll
	}
	if changed("record-none") {
		cfg.Record.None = o.recordNone
	}
	if changed("blocker-pattern") {
		cfg.Record.BlockerPatterns = o.blockers
	}
	if changed("dir") {
		cfg.GoTest.Dir = o.dir
	}
	if changed("go-flag") {
		cfg.GoTest.Flags = o.goFlags
	}
	if len(packages) > 0 {
		cfg.GoTest.Packages = packages
	}
}

// loadConfig resolves the configuration file, applies flag overrides and
// validates the result.
func loadConfig(cmd *cobra.Command, o *overrides, packages []string) (config.Config, error) {
	cfg, path, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	o.apply(cmd, &cfg, packages)

	if !debug && !quiet && cfg.LogLevel != "" {
		if level, err := logging.ParseLevel(cfg.LogLevel); err == nil {
			logging.InitForCLI(level, cmd.ErrOrStderr())
		}
	}

	if err := config.ValidateFile(cfg, path); err != nil {
		if errs, ok := err.(*config.ConfigurationErrorCollection); ok {
			fmt.Fprintln(cmd.ErrOrStderr(), errs.GetDetailedReport())
			for _, field := range hintedFields {
				if len(errs.GetErrorsByField(field)) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "Hint: set %s with --%s\n", field, fieldFlags[field])
				}
			}
		}
		return cfg, err
	}
	return cfg, nil
}

// fieldFlags maps required fields without their own suggestion to the flag
// that sets them.
var fieldFlags = map[string]string{
	"project":    "project",
	"run":        "run",
	"local.path": "local-path",
}

var hintedFields = []string{"project", "run", "local.path"}
