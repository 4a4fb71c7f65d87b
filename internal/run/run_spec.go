package run

import (
	"github.com/monotask/mono/internal/cache"
	"github.com/monotask/mono/internal/client"
	"github.com/monotask/mono/internal/runcache"
	"github.com/monotask/mono/internal/scope"
	"github.com/monotask/mono/internal/util"
)

// runSpec holds the run-specific configuration for one invocation of
// `mono run`: which tasks were named on the command line, which
// packages they apply to, and every flag bucketed by the component it
// configures.
type runSpec struct {
	// Targets is the list of task names named on the command line, e.g.
	// ["build", "lint"] for `mono run build lint`.
	Targets []string

	// FilteredPkgs is the set of packages this run's tasks apply to.
	FilteredPkgs util.Set

	Opts *Opts
}

// ArgsForTask returns the pass-through args that should be forwarded
// when running task, if task was one of the targets named on the
// command line with a trailing `-- ...`.
func (rs *runSpec) ArgsForTask(task string) []string {
	passThroughArgs := make([]string, 0, len(rs.Opts.runOpts.PassThroughArgs))
	for _, target := range rs.Targets {
		if target == task {
			passThroughArgs = append(passThroughArgs, rs.Opts.runOpts.PassThroughArgs...)
		}
	}
	return passThroughArgs
}

// Opts buckets every run-configuring flag by the component it feeds.
type Opts struct {
	runOpts      util.RunOpts
	cacheOpts    cache.Opts
	clientOpts   client.Config
	runcacheOpts runcache.Opts
	scopeOpts    scope.Opts
}

// getDefaultOptions returns the baseline Opts before config-file and
// flag overlays are applied.
func getDefaultOptions() *Opts {
	return &Opts{
		runOpts: util.RunOpts{
			Concurrency: 10,
		},
	}
}

// NewOpts buckets the flag values the run subcommand parsed into an
// Opts, for internal/run.Run to consume. It exists because Opts' fields
// are unexported - every other run-internal file reaches into them
// directly, but the cobra command lives in a different package.
func NewOpts(runOpts util.RunOpts, cacheOpts cache.Opts, clientOpts client.Config, runcacheOpts runcache.Opts, scopeOpts scope.Opts) *Opts {
	return &Opts{
		runOpts:      runOpts,
		cacheOpts:    cacheOpts,
		clientOpts:   clientOpts,
		runcacheOpts: runcacheOpts,
		scopeOpts:    scopeOpts,
	}
}
