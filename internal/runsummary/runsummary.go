// Package runsummary accumulates per-task results over the lifetime of
// one `mono run` invocation and renders them either as a live terminal
// tally or as a JSON file under .mono/runs/, when --summarize is set.
package runsummary

import (
	"time"

	"github.com/monotask/mono/internal/cache"
	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/monopath"
)

// MissingFrameworkLabel marks a task whose package has no framework
// auto-detected for it.
const MissingFrameworkLabel = "<NO FRAMEWORK DETECTED>"

// MissingTaskLabel marks a task a package doesn't actually define.
const MissingTaskLabel = "<NONEXISTENT>"

const schemaVersion = "1"

// RunSummary is the full, serializable record of one run.
type RunSummary struct {
	ID                string             `json:"id"`
	Version           string             `json:"version"`
	MonoVersion       string             `json:"monoVersion"`
	GlobalHashSummary *GlobalHashSummary `json:"globalHashSummary"`
	Packages          []string           `json:"packages"`
	EnvMode           string             `json:"envMode"`
	Command           string             `json:"command"`
	Execution         *ExecutionSummary  `json:"execution"`
	Tasks             []*TaskSummary     `json:"tasks"`
}

// ExecutionSummary is the run-wide aggregate: how many tasks were
// attempted/cached/failed/built, and the wall-clock window the run
// spanned from first task start to last task finish.
type ExecutionSummary struct {
	Attempted int   `json:"attempted"`
	Cached    int   `json:"cached"`
	Failed    int   `json:"failed"`
	Success   int   `json:"success"`
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
	ExitCode  int   `json:"exitCode"`
}

// GlobalHashSummary captures every input that fed the repo-wide global
// hash, for dry-run / summary display.
type GlobalHashSummary struct {
	GlobalFileHashMap    map[string]string `json:"globalFileHashMap"`
	RootExternalDepsHash string            `json:"rootExternalDepsHash"`
	GlobalCacheKey       string            `json:"globalCacheKey"`
	GlobalEnv            []string          `json:"globalEnv"`
}

// TaskEnvVarSummary breaks down the env vars that fed a task's hash by
// how each one was selected.
type TaskEnvVarSummary struct {
	Configured []string `json:"configured"`
	Inferred   []string `json:"inferred"`
	Global     []string `json:"global"`
}

// TaskSummary is everything recorded about one package-task.
type TaskSummary struct {
	TaskID                 string                         `json:"taskId"`
	Task                   string                         `json:"task"`
	Package                string                         `json:"package"`
	Hash                   string                         `json:"hash"`
	CacheState             cache.ItemStatus               `json:"cacheState"`
	Command                string                         `json:"command"`
	Outputs                []string                       `json:"outputs"`
	ExcludedOutputs        []string                       `json:"excludedOutputs"`
	LogFile                string                         `json:"logFile"`
	Dir                    string                         `json:"directory"`
	Dependencies           []string                       `json:"dependencies"`
	Dependents             []string                       `json:"dependents"`
	ResolvedTaskDefinition *fs.TaskDefinition              `json:"resolvedTaskDefinition"`
	ExpandedOutputs        []monopath.AnchoredSystemPath `json:"expandedOutputs"`
	Framework              string                         `json:"framework"`
	EnvVars                TaskEnvVarSummary              `json:"environmentVariables"`
	Execution              *TaskExecutionSummary          `json:"execution,omitempty"`
	ExternalDepsHash       string                         `json:"hashOfExternalDependencies"`
}

// TaskExecutionSummary is the timing/outcome portion of a TaskSummary,
// filled in once the task has actually run (or been restored).
type TaskExecutionSummary struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Status   string        `json:"status"`
	Err      string        `json:"error,omitempty"`
}

// TaskStatus is the outcome a tracked task finished with.
type TaskStatus int

// The recognized task outcomes.
const (
	TaskBuilding TaskStatus = iota
	TaskBuilt
	TaskCached
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskBuilt:
		return "built"
	case TaskCached:
		return "cached"
	case TaskFailed:
		return "failed"
	default:
		return "building"
	}
}
