package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"polarsync/internal/lookup"
	"polarsync/pkg/logging"
)

// Validate checks a fully merged configuration. It returns nil or a
// *ConfigurationErrorCollection listing every problem found.
func Validate(cfg Config) error {
	errs := &ConfigurationErrorCollection{}

	validateRequired(errs, "project", cfg.Project)
	validateRequired(errs, "run", cfg.Run)

	switch cfg.Backend {
	case BackendRemote:
		validateEndpoint(errs, cfg.Remote.Endpoint)
		if cfg.Remote.Timeout < 0 {
			errs.AddValidation("remote.timeout", "timeout must not be negative")
		}
	case BackendLocal:
		validateRequired(errs, "local.path", cfg.Local.Path)
	default:
		errs.AddValidation("backend", fmt.Sprintf("unknown backend %q", cfg.Backend),
			fmt.Sprintf("Use %q or %q", BackendRemote, BackendLocal))
	}

	if cfg.Selection.BreadthLevel < lookup.Auto {
		errs.AddValidation("selection.breadth_level",
			fmt.Sprintf("breadth level %d is invalid", cfg.Selection.BreadthLevel),
			"Use -1 for automatic or a non-negative level")
	}
	for i, imp := range cfg.Selection.Importance {
		if strings.TrimSpace(imp) == "" {
			errs.AddValidation(fmt.Sprintf("selection.importance[%d]", i), "importance value must not be empty")
		}
	}
	if cfg.Backend == BackendLocal && cfg.Selection.Assignee != "" {
		logging.Warn("Config", "selection.assignee is ignored by the local backend")
	}

	validatePatterns(errs, "record.blocker_patterns", cfg.Record.BlockerPatterns)
	validatePatterns(errs, "record.skip_reason_markers", cfg.Record.SkipReasonMarkers)
	if cfg.Record.None && (cfg.Record.All || cfg.Record.Skipped) {
		logging.Warn("Config", "record.none is set, record.all and record.skipped have no effect")
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		errs.AddValidation("log_level", err.Error())
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ValidateFile validates cfg and attributes every error to the file it was
// loaded from.
func ValidateFile(cfg Config, path string) error {
	err := Validate(cfg)
	if err == nil || path == "" {
		return err
	}
	if errs, ok := err.(*ConfigurationErrorCollection); ok {
		errs.withFile(path, filepath.Base(path))
	}
	return err
}

func validateRequired(errs *ConfigurationErrorCollection, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.AddValidation(field, "is required")
	}
}

func validateEndpoint(errs *ConfigurationErrorCollection, endpoint string) {
	if endpoint == "" {
		errs.AddValidation("remote.endpoint", "is required for the remote backend",
			"Set remote.endpoint or pass --endpoint")
		return
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.AddValidation("remote.endpoint", fmt.Sprintf("invalid endpoint URL %q", endpoint),
			"Use an absolute http or https URL")
	}
}

func validatePatterns(errs *ConfigurationErrorCollection, field string, patterns []string) {
	for i, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			errs.AddValidation(fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("invalid regular expression %q: %v", p, err))
		}
	}
}
