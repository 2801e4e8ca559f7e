package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRemote() Config {
	cfg := GetDefaultConfig()
	cfg.Project = "RHEL"
	cfg.Run = "nightly"
	cfg.Remote.Endpoint = "https://polarion.example.com/mcp"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "valid remote",
			mutate: func(*Config) {},
		},
		{
			name: "valid local",
			mutate: func(c *Config) {
				c.Backend = BackendLocal
				c.Remote.Endpoint = ""
				c.Local.Path = "cases.db"
			},
		},
		{
			name:   "missing project and run",
			mutate: func(c *Config) { c.Project, c.Run = "", "" },
			fields: []string{"project", "run"},
		},
		{
			name:   "missing endpoint",
			mutate: func(c *Config) { c.Remote.Endpoint = "" },
			fields: []string{"remote.endpoint"},
		},
		{
			name:   "relative endpoint",
			mutate: func(c *Config) { c.Remote.Endpoint = "localhost/mcp" },
			fields: []string{"remote.endpoint"},
		},
		{
			name:   "local without path",
			mutate: func(c *Config) { c.Backend = BackendLocal },
			fields: []string{"local.path"},
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Backend = "jira" },
			fields: []string{"backend"},
		},
		{
			name:   "breadth below auto",
			mutate: func(c *Config) { c.Selection.BreadthLevel = -2 },
			fields: []string{"selection.breadth_level"},
		},
		{
			name:   "empty importance",
			mutate: func(c *Config) { c.Selection.Importance = []string{"high", " "} },
			fields: []string{"selection.importance[1]"},
		},
		{
			name: "bad regexes",
			mutate: func(c *Config) {
				c.Record.BlockerPatterns = []string{`BZ(`}
				c.Record.SkipReasonMarkers = []string{`ok`, `[`}
			},
			fields: []string{"record.blocker_patterns[0]", "record.skip_reason_markers[1]"},
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.LogLevel = "loud" },
			fields: []string{"log_level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validRemote()
			tt.mutate(&cfg)

			err := Validate(cfg)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var errs *ConfigurationErrorCollection
			require.ErrorAs(t, err, &errs)
			assert.Equal(t, len(tt.fields), errs.Count())
			for _, f := range tt.fields {
				assert.Len(t, errs.GetErrorsByField(f), 1, "field %s", f)
			}
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestValidateFile_AttributesErrors(t *testing.T) {
	cfg := validRemote()
	cfg.Run = ""

	err := ValidateFile(cfg, "/etc/polarsync/polarsync.yaml")
	var errs *ConfigurationErrorCollection
	require.ErrorAs(t, err, &errs)
	require.Equal(t, 1, errs.Count())
	assert.Equal(t, "polarsync.yaml", errs.Errors[0].FileName)
	assert.Contains(t, errs.Error(), "run: is required")
	assert.Contains(t, errs.GetDetailedReport(), "File: /etc/polarsync/polarsync.yaml")
}
