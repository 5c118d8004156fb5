package preflight

import (
	"context"
	"path/filepath"

	"renderhook/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// RunAll executes all applicable preflight checks for the given config.
// The history directory is only checked when the journal is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectories(cfg)...)
	results = append(results, CheckRenderer(ctx, cfg))
	results = append(results, CheckWebhook(ctx, cfg.Webhook.URL))
	return results
}

// CheckDirectories verifies the state, log and (when enabled) history
// directories.
func CheckDirectories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.History.Path)))
	}
	return results
}
