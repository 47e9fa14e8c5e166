package preflight

import (
	"context"

	"feedrelay/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// SourceChecker confirms a feed source is reachable. *reddit.Client
// satisfies it.
type SourceChecker interface {
	SourceExists(ctx context.Context, name string) (bool, error)
}

// RunAll executes every check for cfg. The feed check runs only when a
// checker is supplied.
func RunAll(ctx context.Context, cfg *config.Config, feed SourceChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFFmpeg(ctx, cfg),
		CheckDelivery(cfg),
	}
	if feed != nil {
		results = append(results, CheckFeed(ctx, feed, firstSource(cfg)))
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

func firstSource(cfg *config.Config) string {
	if len(cfg.Feed.Sources) == 0 {
		return ""
	}
	return cfg.Feed.Sources[0]
}
