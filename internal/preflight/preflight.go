package preflight

import (
	"context"

	"courier/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config: state
// and log directories, the connectivity probe target, and the remote endpoint.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Connectivity.ProbeURL != "" {
		results = append(results, CheckEndpoint(ctx, "Connectivity probe", cfg.Connectivity.ProbeURL))
	}

	if cfg.Remote.Endpoint == "" {
		results = append(results, Result{Name: "Remote endpoint", Detail: "not configured"})
	} else {
		results = append(results, CheckEndpoint(ctx, "Remote endpoint", cfg.Remote.Endpoint))
	}

	return results
}

// Passed reports whether every result in results passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
