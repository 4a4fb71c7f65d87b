package run

import (
	gocontext "context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/monotask/mono/internal/cache"
	"github.com/monotask/mono/internal/client"
	"github.com/monotask/mono/internal/core"
	"github.com/monotask/mono/internal/env"
	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/graph"
	"github.com/monotask/mono/internal/packagemanager"
	"github.com/monotask/mono/internal/process"
	"github.com/monotask/mono/internal/runsummary"
	"github.com/monotask/mono/internal/scope"
	"github.com/monotask/mono/internal/taskhash"
	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/ui"
	"github.com/monotask/mono/internal/util"
)

// Run wires every component a `mono run` invocation touches - workspace
// discovery, scope resolution, hashing, the cache stack, and the
// scheduler - and executes the named tasks. It returns once the run has
// finished, successfully or not.
func Run(
	ctx gocontext.Context,
	repoRoot monopath.AbsoluteSystemPath,
	monoVersion string,
	targets []string,
	opts *Opts,
	apiClient *client.RemoteCacheClient,
	logger hclog.Logger,
	terminal cli.Ui,
) error {
	rootPackageJSONPath := repoRoot.Join("package.json")
	rootPackageJSON, err := fs.ReadPackageJSON(rootPackageJSONPath)
	if err != nil {
		return fmt.Errorf("error reading root package.json: %w", err)
	}

	pm, err := packagemanager.GetPackageManager(repoRoot, rootPackageJSON)
	if err != nil {
		return fmt.Errorf("error detecting package manager: %w", err)
	}

	if shouldUseSinglePackageMode(opts.runOpts.SinglePackageMode, rootPackageJSON) {
		opts.runOpts.SinglePackageMode = true
		logger.Debug("no workspaces field in root package.json, inferring single-package mode")
	}

	completeGraph, err := graph.BuildCompleteGraph(repoRoot, rootPackageJSON, pm, opts.runOpts.SinglePackageMode)
	if err != nil {
		return fmt.Errorf("error constructing package graph: %w", err)
	}

	packagesInScope, isAllPackages, err := scope.ResolvePackages(&opts.scopeOpts, &completeGraph.WorkspaceGraph, completeGraph.WorkspaceInfos, completeGraph.RootNode)
	if err != nil {
		return fmt.Errorf("error resolving packages in scope: %w", err)
	}

	engine := core.NewEngine(completeGraph, opts.runOpts.SinglePackageMode)
	if err := engine.Prepare(&core.BuildOptions{
		Packages:  packagesInScope.UnsafeListOfStrings(),
		TaskNames: targets,
		TasksOnly: opts.runOpts.Only,
	}); err != nil {
		return fmt.Errorf("error preparing task graph: %w", err)
	}

	engineEnv := env.GetEnvMap()

	globalHash, err := calculateGlobalHash(
		repoRoot,
		rootPackageJSON,
		completeGraph.WorkspaceInfos.MonoConfigs[util.RootPkgName],
		pm,
		engineEnv,
		opts.runOpts.EnvMode,
		monoVersion,
		logger,
	)
	if err != nil {
		return fmt.Errorf("error calculating global hash: %w", err)
	}
	completeGraph.GlobalHash = globalHash
	logger.Debug("global hash", "value", globalHash)

	taskHashTracker := taskhash.NewTracker(completeGraph.RootNode, completeGraph.GlobalHash, engineEnv, completeGraph.Pipeline)
	completeGraph.TaskHashTracker = taskHashTracker

	var spin *ui.Spinner
	if !ui.IsCI {
		spin = ui.NewSpinner(os.Stdout)
		spin.Start("hashing task inputs")
	}
	allTaskVertices := engine.TaskGraph.Vertices()
	hashErr := taskHashTracker.CalculateFileHashes(allTaskVertices, opts.runOpts.Concurrency, completeGraph.WorkspaceInfos, completeGraph.TaskDefinitions, repoRoot)
	if spin != nil {
		spin.Stop("")
	}
	if hashErr != nil {
		return fmt.Errorf("error hashing package files: %w", hashErr)
	}

	remoteCache, err := cache.NewHTTPCache(apiClient, repoRoot.Join(".mono", "cache"))
	if err != nil {
		return fmt.Errorf("error constructing remote cache: %w", err)
	}
	turboCache, err := cache.New(opts.cacheOpts, repoRoot, remoteCache)
	if err != nil {
		if err == cache.ErrNoCachesEnabled {
			terminal.Warn("no caches are enabled; every task will run uncached")
		} else {
			return fmt.Errorf("error constructing cache: %w", err)
		}
	}

	globalHashSummary := &runsummary.GlobalHashSummary{
		GlobalFileHashMap:    nil,
		RootExternalDepsHash: rootPackageJSON.ExternalDepsHash,
		GlobalCacheKey:       globalHash,
		GlobalEnv:            completeGraph.WorkspaceInfos.MonoConfigs[util.RootPkgName].GlobalEnv,
	}
	command := "mono run " + strings.Join(targets, " ")
	summaryTracker := runsummary.NewTracker(monoVersion, opts.runOpts.EnvMode, packagesInScope.UnsafeListOfStrings(), command, globalHashSummary)

	processes := process.NewManager(logger.Named("processes"))
	defer processes.Close()

	rs := &runSpec{
		Targets:      targets,
		FilteredPkgs: packagesInScope,
		Opts:         opts,
	}
	if isAllPackages {
		rs.FilteredPkgs = util.SetFromStrings(completeGraphPackageNames(completeGraph))
	}

	if opts.runOpts.DryRun {
		defer turboCache.Shutdown()
		return DryRun(ctx, completeGraph, rs, engine, logger, terminal)
	}

	return RealRun(
		ctx,
		completeGraph,
		rs,
		engine,
		taskHashTracker,
		turboCache,
		packagesInScope.UnsafeListOfStrings(),
		repoRoot,
		logger,
		terminal,
		summaryTracker,
		pm,
		processes,
	)
}

// shouldUseSinglePackageMode reports whether a run should be treated as
// single-package even though the caller didn't pass --single-package: a
// root package.json with no workspaces field has nothing for the package
// graph to discover.
func shouldUseSinglePackageMode(explicit bool, rootPackageJSON *fs.PackageJSON) bool {
	if explicit {
		return false
	}
	return len(rootPackageJSON.Workspaces) == 0
}

func completeGraphPackageNames(g *graph.CompleteGraph) []string {
	names := make([]string, 0, len(g.WorkspaceInfos.PackageJSONs))
	for name := range g.WorkspaceInfos.PackageJSONs {
		if name == util.RootPkgName {
			continue
		}
		names = append(names, name)
	}
	return names
}
