// Package config loads and validates polarsync configuration.
//
// Configuration is resolved in three layers: built-in defaults, a YAML file,
// and command line flags applied by the caller. The file is looked up at the
// explicit --config path first, then ./polarsync.yaml, then
// ~/.config/polarsync/config.yaml. A missing file is not an error when no
// explicit path was given.
//
// Example file:
//
//	backend: remote
//	project: RHEL
//	run: nightly-2026-10-14
//	remote:
//	  endpoint: https://polarion-mcp.example.com/mcp
//	  token_env: POLARSYNC_TOKEN
//	selection:
//	  breadth_level: -1
//	  assignee: jdoe
//	record:
//	  skipped: true
//	  blocker_patterns:
//	    - '\bBZ\s*#?\d+'
//
// Validation problems are reported as a ConfigurationErrorCollection so that
// every problem in a file surfaces in one pass.
package config
