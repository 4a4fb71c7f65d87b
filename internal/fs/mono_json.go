package fs

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/muhammadmuzzammil1998/jsonc"
	"github.com/pkg/errors"

	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/util"
)

const (
	configFile                   = "mono.json"
	envPipelineDelimiter         = "$"
	topologicalPipelineDelimiter = "^"
)

type rawMonoJSON struct {
	GlobalDependencies []string           `json:"globalDependencies,omitempty"`
	GlobalEnv          []string           `json:"globalEnv,omitempty"`
	Pipeline           Pipeline           `json:"pipeline,omitempty"`
	RemoteCacheOptions RemoteCacheOptions `json:"remoteCache,omitempty"`
	Extends            []string           `json:"extends,omitempty"`
}

// MonoJSON is the parsed form of a root or package-level mono.json.
type MonoJSON struct {
	GlobalDeps         []string
	GlobalEnv          []string
	Pipeline           Pipeline
	RemoteCacheOptions RemoteCacheOptions
	// Extends names the config this one overlays onto. Only the root
	// pseudo-package "//" is a valid target; anything else is a
	// Configuration-class error at load time.
	Extends []string
}

// RemoteCacheOptions configures the optional remote cache endpoint.
type RemoteCacheOptions struct {
	TeamID    string `json:"teamId,omitempty"`
	Signature bool   `json:"signature,omitempty"`
}

type rawTask struct {
	Outputs *[]string `json:"outputs,omitempty"`

	Cache          *bool               `json:"cache,omitempty"`
	DependsOn      []string            `json:"dependsOn,omitempty"`
	Inputs         []string            `json:"inputs,omitempty"`
	OutputMode     util.TaskOutputMode `json:"outputMode,omitempty"`
	Env            []string            `json:"env,omitempty"`
	PassThroughEnv []string            `json:"passThroughEnv,omitempty"`
	Persistent     bool                `json:"persistent,omitempty"`
}

// Pipeline maps a task id (or bare task name, applying to every package)
// to its definition.
type Pipeline map[string]TaskDefinition

// TaskDefinition is the resolved, already-split form of one pipeline
// entry: dependsOn has been partitioned into topological ("^build") and
// plain task/package-task references, and any deprecated "$VAR" entries
// have been folded into EnvVarDependencies.
type TaskDefinition struct {
	Outputs     TaskOutputs
	ShouldCache bool

	EnvVarDependencies []string

	// TopologicalDependencies are the "^task" entries: tasks of the same
	// name in every dependency of this package.
	TopologicalDependencies []string

	// TaskDependencies are everything else in dependsOn: bare task names
	// (same package) and "package#task" references.
	TaskDependencies []string

	Inputs []string

	OutputMode util.TaskOutputMode

	// PassThroughEnv names env vars that count toward the hash (so a
	// changed value invalidates the cache) without being readable by the
	// task at lookup time the way an `env` entry is. A non-nil value
	// here switches this task's env-mode to Strict.
	PassThroughEnv []string

	Persistent bool
}

// TaskOutputs are the include/exclude glob patterns for a task's cacheable
// outputs, split from the raw "outputs" array's "!exclude" prefix syntax.
type TaskOutputs struct {
	Inclusions []string
	Exclusions []string
}

// Sort returns a copy of to with both glob lists sorted, for deterministic
// hash input and display.
func (to TaskOutputs) Sort() TaskOutputs {
	inclusions := append([]string(nil), to.Inclusions...)
	exclusions := append([]string(nil), to.Exclusions...)
	sort.Strings(inclusions)
	sort.Strings(exclusions)
	return TaskOutputs{Inclusions: inclusions, Exclusions: exclusions}
}

// LoadMonoConfig loads mono.json, or - in single-package mode - synthesizes
// one root-scoped pipeline entry per package.json script that isn't
// already named in the pipeline.
func LoadMonoConfig(rootPath monopath.AbsoluteSystemPath, rootPackageJSON *PackageJSON, singlePackageMode bool) (*MonoJSON, error) {
	var monoJSON *MonoJSON
	fromFiles, err := ReadMonoConfig(rootPath, rootPackageJSON)

	if !singlePackageMode && err != nil {
		return nil, err
	} else if !singlePackageMode {
		return fromFiles, nil
	} else if errors.Is(err, os.ErrNotExist) {
		monoJSON = &MonoJSON{Pipeline: make(Pipeline)}
	} else if err != nil {
		return nil, err
	} else {
		pipeline := make(Pipeline)
		for taskID, def := range fromFiles.Pipeline {
			if util.IsPackageTask(taskID) {
				return nil, fmt.Errorf("package tasks (<package>#<task>) are not allowed in single-package mode: found %v", taskID)
			}
			pipeline[util.RootTaskId(taskID)] = def
		}
		monoJSON = fromFiles
		monoJSON.Pipeline = pipeline
	}

	for scriptName := range rootPackageJSON.Scripts {
		if !monoJSON.Pipeline.HasTask(scriptName) {
			monoJSON.Pipeline[util.RootTaskId(scriptName)] = TaskDefinition{}
		}
	}
	return monoJSON, nil
}

// ReadMonoConfig reads mono.json at the repo root, falling back to the
// deprecated "mono" key in the root package.json when no mono.json file
// is present.
func ReadMonoConfig(rootPath monopath.AbsoluteSystemPath, rootPackageJSON *PackageJSON) (*MonoJSON, error) {
	configPath := rootPath.Join(configFile)

	hasLegacyConfig := rootPackageJSON.LegacyConfig != nil

	if configPath.FileExists() {
		monoJSON, err := readMonoJSONFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", configFile, err)
		}
		if hasLegacyConfig {
			log.Printf("[WARNING] ignoring \"mono\" key in package.json, using %s instead", configFile)
			rootPackageJSON.LegacyConfig = nil
		}
		if err := validateExtends(monoJSON); err != nil {
			return nil, err
		}
		return monoJSON, nil
	}

	if hasLegacyConfig {
		log.Printf("[DEPRECATED] \"mono\" key in package.json is deprecated, move it to %s", configFile)
		return rootPackageJSON.LegacyConfig, nil
	}

	return nil, errors.Wrapf(os.ErrNotExist, "could not find %s", configFile)
}

func readMonoJSONFile(path monopath.AbsoluteSystemPath) (*MonoJSON, error) {
	data, err := path.ReadFile()
	if err != nil {
		return nil, err
	}
	var monoJSON *MonoJSON
	if err := jsonc.Unmarshal(data, &monoJSON); err != nil {
		return nil, err
	}
	return monoJSON, nil
}

// validateExtends enforces that a package-level config only ever extends
// the root: the only supported relationship is a single-level
// package-overlays-root overlay, not an arbitrary extends chain.
func validateExtends(monoJSON *MonoJSON) error {
	if len(monoJSON.Extends) == 0 {
		return nil
	}
	if len(monoJSON.Extends) != 1 || monoJSON.Extends[0] != util.RootPkgName {
		return fmt.Errorf(`"extends" may only name the root package ("//"), got %v`, monoJSON.Extends)
	}
	return nil
}

// GetTaskDefinition looks up taskID, falling back to its bare task name
// (a pipeline entry with no package prefix applies to every package).
func (pc Pipeline) GetTaskDefinition(taskID string) (TaskDefinition, bool) {
	if entry, ok := pc[taskID]; ok {
		return entry, true
	}
	_, task := util.GetPackageTaskFromId(taskID)
	entry, ok := pc[task]
	return entry, ok
}

// HasTask reports whether task is defined, directly or via any
// package-scoped entry with that task name.
func (pc Pipeline) HasTask(task string) bool {
	for key := range pc {
		if key == task {
			return true
		}
		if util.IsPackageTask(key) {
			_, taskName := util.GetPackageTaskFromId(key)
			if taskName == task {
				return true
			}
		}
	}
	return false
}

// UnmarshalJSON splits dependsOn into topological/task references and
// folds deprecated "$VAR" dependsOn entries into EnvVarDependencies.
func (c *TaskDefinition) UnmarshalJSON(data []byte) error {
	task := rawTask{}
	if err := json.Unmarshal(data, &task); err != nil {
		return err
	}

	var inclusions, exclusions []string
	if task.Outputs != nil {
		for _, glob := range *task.Outputs {
			if strings.HasPrefix(glob, "!") {
				exclusions = append(exclusions, glob[1:])
			} else {
				inclusions = append(inclusions, glob)
			}
		}
	}
	sort.Strings(inclusions)
	sort.Strings(exclusions)
	c.Outputs = TaskOutputs{Inclusions: inclusions, Exclusions: exclusions}

	if task.Cache == nil {
		c.ShouldCache = true
	} else {
		c.ShouldCache = *task.Cache
	}

	envVarDependencies := make(util.Set)
	c.TopologicalDependencies = []string{}
	c.TaskDependencies = []string{}

	for _, dependency := range task.DependsOn {
		switch {
		case strings.HasPrefix(dependency, envPipelineDelimiter):
			log.Printf("[DEPRECATED] declaring an environment variable in \"dependsOn\" is deprecated, found %s; use the \"env\" key instead", dependency)
			envVarDependencies.Add(strings.TrimPrefix(dependency, envPipelineDelimiter))
		case strings.HasPrefix(dependency, topologicalPipelineDelimiter):
			c.TopologicalDependencies = append(c.TopologicalDependencies, strings.TrimPrefix(dependency, topologicalPipelineDelimiter))
		default:
			c.TaskDependencies = append(c.TaskDependencies, dependency)
		}
	}
	sort.Strings(c.TaskDependencies)
	sort.Strings(c.TopologicalDependencies)

	for _, value := range task.Env {
		if strings.HasPrefix(value, envPipelineDelimiter) {
			return fmt.Errorf("you specified %q in the \"env\" key; environment variable names should not be prefixed with %q", value, envPipelineDelimiter)
		}
		envVarDependencies.Add(value)
	}

	c.EnvVarDependencies = envVarDependencies.UnsafeListOfStrings()
	sort.Strings(c.EnvVarDependencies)

	c.Inputs = task.Inputs
	c.OutputMode = task.OutputMode
	c.PassThroughEnv = task.PassThroughEnv
	c.Persistent = task.Persistent
	return nil
}

// UnmarshalJSON splits globalDependencies/globalEnv, applying the same
// "$VAR"-in-globalDependencies migration path task definitions get.
func (c *MonoJSON) UnmarshalJSON(data []byte) error {
	raw := &rawMonoJSON{}
	if err := json.Unmarshal(data, raw); err != nil {
		return err
	}

	envVarDependencies := make(util.Set)
	globalFileDependencies := make(util.Set)

	for _, value := range raw.GlobalEnv {
		if strings.HasPrefix(value, envPipelineDelimiter) {
			return fmt.Errorf("you specified %q in \"globalEnv\"; environment variable names should not be prefixed with %q", value, envPipelineDelimiter)
		}
		envVarDependencies.Add(value)
	}

	for _, value := range raw.GlobalDependencies {
		if strings.HasPrefix(value, envPipelineDelimiter) {
			log.Printf("[DEPRECATED] declaring an environment variable in \"globalDependencies\" is deprecated, found %s; use \"globalEnv\" instead", value)
			envVarDependencies.Add(strings.TrimPrefix(value, envPipelineDelimiter))
		} else {
			globalFileDependencies.Add(value)
		}
	}

	c.GlobalEnv = envVarDependencies.UnsafeListOfStrings()
	sort.Strings(c.GlobalEnv)
	c.GlobalDeps = globalFileDependencies.UnsafeListOfStrings()
	sort.Strings(c.GlobalDeps)

	c.Pipeline = raw.Pipeline
	c.RemoteCacheOptions = raw.RemoteCacheOptions
	c.Extends = raw.Extends
	return nil
}
