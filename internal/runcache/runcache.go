// Package runcache binds a run's Cache to the scope of one package-task:
// restoring a prior hit's outputs and log before execution, and capturing
// output and saving it back to the cache after.
package runcache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/monotask/mono/internal/cache"
	"github.com/monotask/mono/internal/colorcache"
	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/fs/globby"
	"github.com/monotask/mono/internal/logstreamer"
	"github.com/monotask/mono/internal/nodes"
	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/ui"
	"github.com/monotask/mono/internal/util"
)

// LogReplayer replays a task's captured log file to output.
type LogReplayer = func(logger hclog.Logger, output *cli.PrefixedUi, logFile monopath.AbsoluteSystemPath)

// Opts configures a RunCache.
type Opts struct {
	SkipReads              bool
	SkipWrites             bool
	TaskOutputModeOverride *util.TaskOutputMode
	LogReplayer            LogReplayer
	OutputWatcher          OutputWatcher
}

// RunCache is the interface to the cache for a single `mono run`
// invocation, shared across every task the run executes.
type RunCache struct {
	taskOutputModeOverride *util.TaskOutputMode
	cache                  cache.Cache
	readsDisabled          bool
	writesDisabled         bool
	repoRoot               monopath.AbsoluteSystemPath
	logReplayer            LogReplayer
	outputWatcher          OutputWatcher
	colorCache             *colorcache.ColorCache
}

// New wraps c as a RunCache scoped to one run.
func New(c cache.Cache, repoRoot monopath.AbsoluteSystemPath, opts Opts, colorCache *colorcache.ColorCache) *RunCache {
	rc := &RunCache{
		taskOutputModeOverride: opts.TaskOutputModeOverride,
		cache:                  c,
		readsDisabled:          opts.SkipReads,
		writesDisabled:         opts.SkipWrites,
		repoRoot:               repoRoot,
		logReplayer:            opts.LogReplayer,
		outputWatcher:          opts.OutputWatcher,
		colorCache:             colorCache,
	}
	if rc.logReplayer == nil {
		rc.logReplayer = defaultLogReplayer
	}
	if rc.outputWatcher == nil {
		rc.outputWatcher = &NoOpOutputWatcher{}
	}
	return rc
}

// TaskCache is one package-task's view onto its RunCache: the resolved
// output globs, hash, and output-display mode it was configured with.
type TaskCache struct {
	rc                *RunCache
	repoRelativeGlobs fs.TaskOutputs
	hash              string
	pt                *nodes.PackageTask
	taskOutputMode    util.TaskOutputMode
	cachingDisabled   bool
	LogFileName       monopath.AbsoluteSystemPath
}

// RestoreOutputs attempts to restore a prior cache hit for this task.
// Returns true if a hit was found and restored.
func (tc TaskCache) RestoreOutputs(ctx context.Context, prefixedUI *cli.PrefixedUi, progressLogger hclog.Logger) (bool, error) {
	if tc.cachingDisabled || tc.rc.readsDisabled {
		if tc.taskOutputMode != util.NoTaskOutput {
			prefixedUI.Output(fmt.Sprintf("cache bypass, force executing %s", ui.Dim(tc.hash)))
		}
		return false, nil
	}

	changedOutputGlobs, err := tc.rc.outputWatcher.GetChangedOutputs(tc.hash, tc.repoRelativeGlobs.Inclusions)
	if err != nil {
		progressLogger.Warn("failed to check output watcher, falling back to cache check", "task", tc.pt.TaskID, "error", err)
		changedOutputGlobs = tc.repoRelativeGlobs.Inclusions
	}

	if len(changedOutputGlobs) == 0 {
		prefixedUI.Warn(fmt.Sprintf("skipping cache check for %v, outputs unchanged since the last run", tc.pt.TaskID))
		return true, nil
	}

	status, _, _, err := tc.rc.cache.Fetch(tc.rc.repoRoot, tc.hash)
	if err != nil {
		return false, err
	}
	if !status.Hit() {
		if tc.taskOutputMode != util.NoTaskOutput {
			prefixedUI.Output(fmt.Sprintf("cache miss, executing %s", ui.Dim(tc.hash)))
		}
		return false, nil
	}

	if err := tc.rc.outputWatcher.NotifyOutputsWritten(tc.hash, tc.repoRelativeGlobs.Inclusions); err != nil {
		prefixedUI.Warn(ui.Dim(fmt.Sprintf("failed to mark outputs cached for %v: %v", tc.pt.TaskID, err)))
	}

	switch tc.taskOutputMode {
	case util.NewTaskOutput, util.HashTaskOutput:
		prefixedUI.Info(fmt.Sprintf("cache hit, suppressing output %s", ui.Dim(tc.hash)))
	case util.FullTaskOutput:
		progressLogger.Debug("replaying log", "path", tc.LogFileName)
		prefixedUI.Info(fmt.Sprintf("cache hit, replaying output %s", ui.Dim(tc.hash)))
		if tc.LogFileName.FileExists() {
			tc.rc.logReplayer(progressLogger, prefixedUI, tc.LogFileName)
		}
	}

	return true, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type fileWriterCloser struct {
	io.Writer
	file  *os.File
	bufio *bufio.Writer
}

func (fwc *fileWriterCloser) Close() error {
	if err := fwc.bufio.Flush(); err != nil {
		return err
	}
	return fwc.file.Close()
}

// OutputWriter returns a sink for the running task's combined
// stdout/stderr. When caching and cache writes are enabled it writes a
// log file, plus a live prefixed stdout stream unless the output mode
// suppresses it; otherwise it returns only the live stdout stream.
func (tc TaskCache) OutputWriter(prefix string) (io.WriteCloser, error) {
	stdoutWriter := logstreamer.NewPrettyStdoutWriter(prefix)

	if tc.cachingDisabled || tc.rc.writesDisabled {
		return nopWriteCloser{stdoutWriter}, nil
	}

	if err := tc.LogFileName.EnsureDir(); err != nil {
		return nil, err
	}
	output, err := tc.LogFileName.Create()
	if err != nil {
		return nil, err
	}

	bufWriter := bufio.NewWriter(output)
	fwc := &fileWriterCloser{file: output, bufio: bufWriter}
	if tc.taskOutputMode == util.NoTaskOutput || tc.taskOutputMode == util.HashTaskOutput {
		fwc.Writer = bufWriter
	} else {
		fwc.Writer = io.MultiWriter(stdoutWriter, bufWriter)
	}
	return fwc, nil
}

// SaveOutputs writes the task's declared outputs to the cache after
// execution completes.
func (tc TaskCache) SaveOutputs(_ context.Context, logger hclog.Logger, terminal cli.Ui, duration int) error {
	if tc.cachingDisabled || tc.rc.writesDisabled {
		return nil
	}

	logger.Debug("caching output", "outputs", tc.repoRelativeGlobs)

	relFiles, err := globby.GlobFiles(tc.rc.repoRoot.ToString(), tc.repoRelativeGlobs.Inclusions, tc.repoRelativeGlobs.Exclusions)
	if err != nil {
		return err
	}

	relativePaths := make([]monopath.AnchoredSystemPath, len(relFiles))
	for i, rel := range relFiles {
		relativePaths[i] = monopath.AnchoredSystemPath(filepath.FromSlash(rel))
	}

	if err := tc.rc.cache.Put(tc.rc.repoRoot, tc.hash, duration, relativePaths); err != nil {
		return err
	}

	if err := tc.rc.outputWatcher.NotifyOutputsWritten(tc.hash, tc.repoRelativeGlobs.Inclusions); err != nil {
		logger.Warn("failed to mark outputs cached", "task", tc.pt.TaskID, "error", err)
		terminal.Warn(ui.Dim(fmt.Sprintf("failed to mark outputs cached for %v: %v", tc.pt.TaskID, err)))
	}
	return nil
}

// TaskCache returns pt's TaskCache, resolving its output globs to
// repo-relative paths and its display mode from any run-wide override.
func (rc *RunCache) TaskCache(pt *nodes.PackageTask, hash string) TaskCache {
	logFileName := rc.repoRoot.Join(pt.RepoRelativeSystemLogFile())
	hashableOutputs := pt.HashableOutputs()

	repoRelativeGlobs := fs.TaskOutputs{
		Inclusions: make([]string, len(hashableOutputs.Inclusions)),
		Exclusions: make([]string, len(hashableOutputs.Exclusions)),
	}
	for i, output := range hashableOutputs.Inclusions {
		repoRelativeGlobs.Inclusions[i] = filepath.Join(pt.Pkg.Dir.ToString(), globby.ExpandDirectoryGlob(output))
	}
	for i, output := range hashableOutputs.Exclusions {
		repoRelativeGlobs.Exclusions[i] = filepath.Join(pt.Pkg.Dir.ToString(), globby.ExpandDirectoryGlob(output))
	}

	taskOutputMode := pt.TaskDefinition.OutputMode
	if rc.taskOutputModeOverride != nil {
		taskOutputMode = *rc.taskOutputModeOverride
	}

	return TaskCache{
		rc:                rc,
		repoRelativeGlobs: repoRelativeGlobs,
		hash:              hash,
		pt:                pt,
		taskOutputMode:    taskOutputMode,
		cachingDisabled:   !pt.TaskDefinition.ShouldCache,
		LogFileName:       logFileName,
	}
}

func defaultLogReplayer(logger hclog.Logger, output *cli.PrefixedUi, logFileName monopath.AbsoluteSystemPath) {
	logger.Debug("start replaying log")
	f, err := logFileName.Open()
	if err != nil {
		output.Warn(fmt.Sprintf("error reading log: %v", err))
		logger.Error("error reading log", "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	scan := bufio.NewScanner(f)
	for scan.Scan() {
		str := scan.Text()
		if str == "" {
			// cli.PrefixedUi won't prefix an empty string on its own.
			output.Ui.Output(output.OutputPrefix)
		} else {
			output.Output(str)
		}
	}
	logger.Debug("finished replaying log")
}
