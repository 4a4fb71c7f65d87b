package run

import (
	gocontext "context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/pyr-sh/dag"

	"github.com/monotask/mono/internal/cache"
	"github.com/monotask/mono/internal/colorcache"
	"github.com/monotask/mono/internal/core"
	"github.com/monotask/mono/internal/graph"
	"github.com/monotask/mono/internal/logstreamer"
	"github.com/monotask/mono/internal/nodes"
	"github.com/monotask/mono/internal/packagemanager"
	"github.com/monotask/mono/internal/process"
	"github.com/monotask/mono/internal/runcache"
	"github.com/monotask/mono/internal/runsummary"
	"github.com/monotask/mono/internal/taskhash"
	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/ui"
)

// RealRun walks the task graph, restoring each task from the cache or
// executing it, and returns once every reachable task has finished (or
// the first failure has short-circuited its dependents).
func RealRun(
	ctx gocontext.Context,
	g *graph.CompleteGraph,
	rs *runSpec,
	engine *core.Engine,
	taskHashTracker *taskhash.Tracker,
	turboCache cache.Cache,
	packagesInScope []string,
	repoRoot monopath.AbsoluteSystemPath,
	logger hclog.Logger,
	terminal cli.Ui,
	tracker *runsummary.Tracker,
	packageManager *packagemanager.PackageManager,
	processes *process.Manager,
) error {
	singlePackage := rs.Opts.runOpts.SinglePackageMode

	if singlePackage {
		terminal.Output(fmt.Sprintf("%s %s", ui.Dim("• Running"), ui.Dim(ui.Bold(strings.Join(rs.Targets, ", ")))))
	} else {
		terminal.Output(fmt.Sprintf(ui.Dim("• Packages in scope: %v"), strings.Join(packagesInScope, ", ")))
		terminal.Output(fmt.Sprintf("%s %s %s", ui.Dim("• Running"), ui.Dim(ui.Bold(strings.Join(rs.Targets, ", "))), ui.Dim(fmt.Sprintf("in %v packages", rs.FilteredPkgs.Len()))))
	}

	if rs.Opts.cacheOpts.SkipRemote {
		terminal.Info(ui.Dim("• Remote caching disabled"))
	} else {
		terminal.Info(ui.Dim("• Remote caching enabled"))
	}

	defer turboCache.Shutdown()

	colorCache := colorcache.New()
	runCache := runcache.New(turboCache, repoRoot, rs.Opts.runcacheOpts, colorCache)

	ec := &execContext{
		colorCache:      colorCache,
		rs:              rs,
		ui:              &cli.ConcurrentUi{Ui: terminal},
		runCache:        runCache,
		logger:          logger,
		packageManager:  packageManager,
		processes:       processes,
		taskHashTracker: taskHashTracker,
		repoRoot:        repoRoot,
		isSinglePackage: singlePackage,
	}

	execOpts := core.ExecutionOptions{
		Parallel:    rs.Opts.runOpts.Parallel,
		Concurrency: rs.Opts.runOpts.Concurrency,
	}

	var exitCode int
	var exitCodeMu sync.Mutex
	bumpExitCode := func(code int) {
		if code < 0 {
			code = -code
		}
		exitCodeMu.Lock()
		if code > exitCode {
			exitCode = code
		}
		exitCodeMu.Unlock()
	}

	execFunc := func(ctx gocontext.Context, packageTask *nodes.PackageTask, taskSummary *runsummary.TaskSummary) error {
		deps := engine.TaskGraph.DownEdges(packageTask.TaskID)
		err := ec.exec(ctx, packageTask, taskSummary, deps, tracker)
		if err != nil {
			if !rs.Opts.runOpts.ContinueOnError {
				var exitErr *process.ChildExit
				if errors.As(err, &exitErr) {
					bumpExitCode(exitErr.ExitCode)
				} else {
					bumpExitCode(1)
				}
				return err
			}
			bumpExitCode(1)
			return nil
		}
		return nil
	}

	getArgs := func(taskID string) []string {
		return rs.ArgsForTask(taskID)
	}

	visitorFn := g.GetPackageTaskVisitor(ctx, engine.TaskGraph, rs.Opts.runOpts.EnvMode, true, getArgs, logger, execFunc)
	errs := engine.Execute(visitorFn, execOpts)

	for _, err := range errs {
		terminal.Error(err.Error())
		var exitErr *process.ChildExit
		if errors.As(err, &exitErr) {
			bumpExitCode(exitErr.ExitCode)
		} else {
			bumpExitCode(1)
		}
	}

	tracker.Close(terminal, exitCode)

	if rs.Opts.runOpts.Summarize {
		if path, err := tracker.Save(repoRoot); err != nil {
			terminal.Warn(fmt.Sprintf("failed to save run summary: %v", err))
		} else {
			terminal.Output(ui.Dim(fmt.Sprintf("• Run summary saved to %v", path)))
		}
	}

	if exitCode != 0 {
		return &process.ChildExit{ExitCode: exitCode}
	}
	return nil
}

type execContext struct {
	colorCache      *colorcache.ColorCache
	rs              *runSpec
	ui              cli.Ui
	runCache        *runcache.RunCache
	logger          hclog.Logger
	packageManager  *packagemanager.PackageManager
	processes       *process.Manager
	taskHashTracker *taskhash.Tracker
	repoRoot        monopath.AbsoluteSystemPath
	isSinglePackage bool
}

// exec restores packageTask from the cache or runs it, recording the
// outcome on taskSummary through the run tracker. If the package never
// implemented this task (no matching script), it returns without
// tracking anything.
func (ec *execContext) exec(ctx gocontext.Context, packageTask *nodes.PackageTask, taskSummary *runsummary.TaskSummary, _ dag.Set, tracker *runsummary.Tracker) error {
	progressLogger := ec.logger.Named("")
	progressLogger.Debug("start")

	if packageTask.Command == "" {
		progressLogger.Debug("no task in package, skipping")
		return nil
	}

	start := time.Now()
	done := tracker.TrackTask(taskSummary)

	passThroughArgs := ec.rs.ArgsForTask(packageTask.Task)
	hash := packageTask.Hash

	var prefix string
	if ec.rs.Opts.runOpts.LogOrder != "none" {
		prefix = packageTask.OutputPrefix(ec.isSinglePackage)
	}
	prettyPrefix := ec.colorCache.PrefixWithColor(packageTask.PackageName, prefix)

	taskCache := ec.runCache.TaskCache(packageTask, hash)
	prefixedUI := &cli.PrefixedUi{
		Ui:           ec.ui,
		OutputPrefix: prettyPrefix,
		InfoPrefix:   prettyPrefix,
		ErrorPrefix:  prettyPrefix,
		WarnPrefix:   prettyPrefix,
	}

	hit, err := taskCache.RestoreOutputs(ctx, prefixedUI, progressLogger)
	if err != nil {
		prefixedUI.Error(fmt.Sprintf("error fetching from cache: %s", err))
	} else if hit {
		done(runsummary.TaskCached, nil)
		return nil
	}

	argsActual := append([]string{"run"}, packageTask.Task)
	if len(passThroughArgs) > 0 {
		argsActual = append(argsActual, ec.packageManager.ArgSeparator...)
		argsActual = append(argsActual, passThroughArgs...)
	}

	cmd := exec.Command(ec.packageManager.Command, argsActual...)
	cmd.Dir = ec.repoRoot.Join(packageTask.Dir).ToString()
	cmd.Env = append(os.Environ(), fmt.Sprintf("MONO_TASK_HASH=%v", hash))

	writer, err := taskCache.OutputWriter(prettyPrefix)
	if err != nil {
		done(runsummary.TaskFailed, err)
		progressLogger.Error("failed to capture outputs", "error", err)
		return fmt.Errorf("failed to capture outputs for %q: %w", packageTask.TaskID, err)
	}

	fileLogger := log.New(writer, "", 0)
	logStreamerOut := logstreamer.NewLogstreamer(fileLogger, prettyPrefix, false)
	logStreamerErr := logstreamer.NewLogstreamer(fileLogger, prettyPrefix, false)
	cmd.Stdout = logStreamerOut
	cmd.Stderr = logStreamerErr
	logStreamerOut.FlushRecord()
	logStreamerErr.FlushRecord()

	closeOutputs := func() error {
		var errs []string
		if err := logStreamerOut.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := logStreamerErr.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := writer.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("could not flush log output: %v", strings.Join(errs, ", "))
		}
		return nil
	}

	if err := ec.processes.Exec(cmd); err != nil {
		_ = closeOutputs()
		if errors.Is(err, process.ErrClosing) {
			return nil
		}
		done(runsummary.TaskFailed, err)
		progressLogger.Error("command finished with error", "error", err)
		if !ec.rs.Opts.runOpts.ContinueOnError {
			prefixedUI.Error(fmt.Sprintf("ERROR: command finished with error: %s", err))
			ec.processes.Close()
		} else {
			prefixedUI.Warn("command finished with error, but continuing...")
		}
		return err
	}

	if err := closeOutputs(); err != nil {
		progressLogger.Error("", "error", err)
	} else if err := taskCache.SaveOutputs(ctx, progressLogger, prefixedUI, int(time.Since(start).Milliseconds())); err != nil {
		progressLogger.Error("error caching output", "error", err)
	}

	done(runsummary.TaskBuilt, nil)
	progressLogger.Debug("done", "status", "complete")
	return nil
}
