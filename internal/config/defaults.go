package config

import (
	"time"

	"polarsync/internal/lookup"
	"polarsync/internal/reconcile"
)

// DefaultRemoteTimeout bounds a single tool call to the query service.
const DefaultRemoteTimeout = 30 * time.Second

// GetDefaultConfig returns the configuration used before any file or flag
// is applied.
func GetDefaultConfig() Config {
	return Config{
		Backend: BackendRemote,
		Remote: RemoteConfig{
			Timeout: DefaultRemoteTimeout,
		},
		Selection: SelectionConfig{
			BreadthLevel: lookup.Auto,
		},
		Record: RecordConfig{
			BlockerPatterns: append([]string(nil), reconcile.DefaultBlockerPatterns...),
		},
		GoTest: GoTestConfig{
			Dir: ".",
		},
		LogLevel: "info",
	}
}
