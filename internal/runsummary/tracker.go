package runsummary

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/cli"

	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/util"
)

// Tracker accumulates TaskSummary records across a run's lifetime and
// owns the aggregate counters (success/failure/cached/attempted) used
// for the final terminal tally.
type Tracker struct {
	mu        sync.Mutex
	summary   *RunSummary
	startedAt time.Time

	success   int
	failure   int
	cached    int
	attempted int
}

// NewTracker creates a Tracker for one run. command is the synthesized
// invocation (e.g. "mono run build test") recorded into the summary for
// reference.
func NewTracker(monoVersion string, envMode util.EnvMode, packages []string, command string, globalHashSummary *GlobalHashSummary) *Tracker {
	return &Tracker{
		startedAt: time.Now(),
		summary: &RunSummary{
			ID:                uuid.NewString(),
			Version:           schemaVersion,
			MonoVersion:       monoVersion,
			GlobalHashSummary: globalHashSummary,
			Packages:          packages,
			EnvMode:           envMode.String(),
			Command:           command,
			Tasks:             []*TaskSummary{},
		},
	}
}

// TrackTask registers taskID as starting execution now, returning a
// closure the caller invokes with the outcome once the task finishes.
func (t *Tracker) TrackTask(summary *TaskSummary) func(status TaskStatus, err error) {
	start := time.Now()
	return func(status TaskStatus, err error) {
		execution := &TaskExecutionSummary{
			Start:    start,
			Duration: time.Since(start),
			Status:   status.String(),
		}
		if err != nil {
			execution.Err = err.Error()
		}
		summary.Execution = execution

		t.mu.Lock()
		defer t.mu.Unlock()
		t.summary.Tasks = append(t.summary.Tasks, summary)
		switch status {
		case TaskFailed:
			t.failure++
			t.attempted++
		case TaskCached:
			t.cached++
			t.attempted++
		case TaskBuilt:
			t.success++
			t.attempted++
		}
	}
}

// Close finalizes the run with exitCode and prints the terminal tally.
func (t *Tracker) Close(ui cli.Ui, exitCode int) {
	t.mu.Lock()
	endedAt := time.Now()
	t.summary.Execution = &ExecutionSummary{
		Attempted: t.attempted,
		Cached:    t.cached,
		Failed:    t.failure,
		Success:   t.success,
		StartTime: t.startedAt.UnixMilli(),
		EndTime:   endedAt.UnixMilli(),
		ExitCode:  exitCode,
	}
	attempted, success, cached := t.attempted, t.success, t.cached
	t.mu.Unlock()

	if attempted == 0 {
		ui.Warn("No tasks were executed as part of this run.")
		return
	}
	ui.Output("")
	ui.Output(fmt.Sprintf(" Tasks:    %v successful, %v total", success+cached, attempted))
	ui.Output(fmt.Sprintf("Cached:    %v cached, %v total", cached, attempted))
	ui.Output(fmt.Sprintf("  Time:    %v", time.Since(t.startedAt).Truncate(time.Millisecond)))
	if cached == attempted {
		ui.Output(" >>> FULL MONO")
	}
	ui.Output("")
}

// Save writes the run summary as JSON under repoRoot/.mono/runs/.
func (t *Tracker) Save(repoRoot monopath.AbsoluteSystemPath) (monopath.AbsoluteSystemPath, error) {
	t.mu.Lock()
	sort.Slice(t.summary.Tasks, func(i, j int) bool {
		return t.summary.Tasks[i].TaskID < t.summary.Tasks[j].TaskID
	})
	body, err := json.MarshalIndent(t.summary, "", "  ")
	t.mu.Unlock()
	if err != nil {
		return "", err
	}

	dir := repoRoot.Join(util.DefaultConfigDir, util.DefaultRunSummaryDir)
	if err := dir.MkdirAll(); err != nil {
		return "", err
	}
	path := dir.Join(t.summary.ID + ".json")
	if err := path.WriteFile(body, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Summary returns the accumulated RunSummary for JSON/dry-run rendering.
func (t *Tracker) Summary() *RunSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}
