// Package run wires the `mono run` cobra subcommand to internal/run.Run.
package run

import (
	gocontext "context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monotask/mono/internal/cache"
	"github.com/monotask/mono/internal/cmdutil"
	internalrun "github.com/monotask/mono/internal/run"
	"github.com/monotask/mono/internal/runcache"
	"github.com/monotask/mono/internal/scope"
	"github.com/monotask/mono/internal/util"
)

type runFlags struct {
	filter            []string
	includeDeps       bool
	includeDependents bool
	concurrency       int
	continueOnError   bool
	dryRun            bool
	dryRunJSON        bool
	force             bool
	cacheDir          string
	remoteOnly        bool
	noCache           bool
	outputLogs        string
	envMode           string
	only              bool
	summarize         bool
	graph             string
	parallel          bool
	singlePackage     bool
}

// GetCmd returns the `mono run` subcommand.
func GetCmd(helper *cmdutil.Helper) *cobra.Command {
	opts := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <tasks>...",
		Short: "Run tasks across packages in the monorepo",
		Long: `Run tasks across packages in the monorepo.

Tasks execute in topological order (dependencies first); a task's
cached result is reused whenever none of its declared inputs have
changed since the last run that produced it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}

			if err := util.ValidateOutputMode(opts.outputLogs); err != nil {
				return base.LogError("%w", err)
			}

			envMode, err := parseEnvMode(opts.envMode)
			if err != nil {
				return base.LogError("%w", err)
			}

			if opts.cacheDir == "" {
				opts.cacheDir = ".mono/cache"
			}

			runOpts := util.RunOpts{
				Concurrency:       opts.concurrency,
				Parallel:          opts.parallel,
				ContinueOnError:   opts.continueOnError,
				Only:              opts.only,
				DryRun:            opts.dryRun,
				DryRunJSON:        opts.dryRunJSON,
				Force:             opts.force,
				NoCache:           opts.noCache,
				RemoteOnly:        opts.remoteOnly,
				Summarize:         opts.summarize,
				EnvMode:           envMode,
				LogOrder:          "stream",
				GraphFile:         opts.graph,
				SinglePackageMode: opts.singlePackage,
			}

			taskOutputMode := util.TaskOutputMode(opts.outputLogs)

			resolvedOpts := internalrun.NewOpts(
				runOpts,
				cache.Opts{
					Dir:            base.RepoRoot.Join(opts.cacheDir),
					SkipRemote:     base.RemoteConfig.Token == "",
					SkipFilesystem: opts.remoteOnly,
					Workers:        10,
				},
				base.RemoteConfig,
				runcache.Opts{
					SkipReads:              opts.force,
					SkipWrites:             opts.noCache,
					TaskOutputModeOverride: &taskOutputMode,
				},
				scope.Opts{
					Packages:            opts.filter,
					IncludeDependencies: opts.includeDeps,
					IncludeDependents:   opts.includeDependents,
				},
			)

			ctx := gocontext.Background()
			if err := internalrun.Run(ctx, base.RepoRoot, base.MonoVersion, args, resolvedOpts, base.APIClient, base.Logger, base.UI); err != nil {
				base.LogError("%w", err)
				return &cmdutil.ExitError{ExitCode: 1, Err: err}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.filter, "filter", nil, "packages to act as entry points for task execution")
	flags.BoolVar(&opts.includeDeps, "include-dependencies", false, "include the dependencies of filtered packages")
	flags.BoolVar(&opts.includeDependents, "include-dependents", false, "include the dependents of filtered packages")
	flags.IntVar(&opts.concurrency, "concurrency", 10, "limit the concurrency of task execution")
	flags.BoolVar(&opts.continueOnError, "continue", false, "continue execution even if a task fails")
	flags.BoolVar(&opts.continueOnError, "continue-on-error", false, "alias of --continue")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "compute task hashes and print what would run, without running it")
	flags.BoolVar(&opts.dryRunJSON, "dry-run-json", false, "like --dry-run, printing the summary as JSON")
	flags.BoolVarP(&opts.force, "force", "f", false, "ignore the existing cache")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "local filesystem cache directory (default .mono/cache)")
	flags.BoolVar(&opts.remoteOnly, "remote-only", false, "ignore the local filesystem cache")
	flags.BoolVar(&opts.noCache, "no-cache", false, "avoid saving task results to the cache")
	flags.StringVar(&opts.outputLogs, "output-logs", string(util.ErrorTaskOutput), "which task logs to print: full, none, hash-only, new-only, errors-only")
	flags.StringVar(&opts.envMode, "env-mode", "infer", "environment variable hashing mode: infer, loose, strict")
	flags.BoolVar(&opts.only, "only", false, "restrict execution to exactly the named tasks, ignoring their dependency tasks")
	flags.BoolVar(&opts.summarize, "summarize", false, "write a JSON run summary under .mono/runs/")
	flags.StringVar(&opts.graph, "graph", "", "path for a Graphviz DOT dump of the task graph (accepted, but no file is written)")
	flags.BoolVarP(&opts.parallel, "parallel", "p", false, "remove the concurrency limit; tasks still wait for their dependencies")
	flags.BoolVar(&opts.singlePackage, "single-package", false, "treat the repo as a single package, rejecting package#task syntax (also inferred when the root package.json has no workspaces field)")

	return cmd
}

func parseEnvMode(s string) (util.EnvMode, error) {
	switch s {
	case "", "infer":
		return util.Infer, nil
	case "loose":
		return util.Loose, nil
	case "strict":
		return util.Strict, nil
	default:
		return util.Infer, fmt.Errorf("invalid env-mode %q: must be infer, loose, or strict", s)
	}
}
