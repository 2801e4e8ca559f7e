package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"polarsync/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	// LocalConfigFileName is looked up in the working directory.
	LocalConfigFileName = "polarsync.yaml"
	userConfigDir       = ".config/polarsync"
	userConfigFileName  = "config.yaml"
)

// SearchPaths returns the implicit configuration locations in lookup order.
func SearchPaths() []string {
	paths := []string{LocalConfigFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, userConfigDir, userConfigFileName))
	}
	return paths
}

// Load resolves the configuration file and merges it over the defaults.
// An explicit path must exist. Without one the first existing search path
// is used, and defaults alone are returned when none exists. The returned
// string is the file that was loaded, empty when none was.
func Load(explicitPath string) (Config, string, error) {
	if explicitPath != "" {
		cfg, err := LoadFile(explicitPath)
		return cfg, explicitPath, err
	}

	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := LoadFile(path)
		return cfg, path, err
	}

	logging.Debug("Config", "No configuration file found, using defaults")
	return GetDefaultConfig(), "", nil
}

// LoadFile merges a single YAML file over the defaults. Fields absent from
// the file keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := GetDefaultConfig()
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		msg := fmt.Sprintf("failed to read config file: %v", err)
		if errors.Is(err, fs.ErrNotExist) {
			msg = "config file does not exist"
		}
		return cfg, NewConfigurationError(path, name, ErrorTypeIO, msg)
	}

	if err := Parse(data, &cfg); err != nil {
		var ce ConfigurationError
		if errors.As(err, &ce) {
			ce.FilePath = path
			ce.FileName = name
			return cfg, ce
		}
		return cfg, err
	}

	logging.Info("Config", "Loaded configuration from %s", path)
	return cfg, nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// Parse decodes YAML into cfg. Unknown keys are rejected so that typos do
// not silently fall back to defaults.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		ce := NewConfigurationErrorWithDetails("", "", ErrorTypeParse,
			"failed to parse YAML", err.Error(),
			[]string{"Check YAML indentation and key names"})
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			ce.LineNumber, _ = strconv.Atoi(m[1])
		}
		return ce
	}
	return nil
}
