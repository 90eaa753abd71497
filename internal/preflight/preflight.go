package preflight

import (
	"context"

	"citetally/internal/config"
	"citetally/internal/netcheck"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and network checks for the given config.
// The network check is skipped when no probe address is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Network.ProbeAddress != "" {
		results = append(results, CheckNetwork(ctx, netcheck.New(cfg.Network.ProbeAddress, cfg.ProbeTimeout())))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
