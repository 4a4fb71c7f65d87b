// Package taskhash computes the content hash for each package-task in
// the graph: first the per-package file hash (parallel, order
// independent), then - strictly in topological order - each task's own
// hash folding in its dependencies' already-computed hashes. That second
// step is what gives the scheme its Merkle-tree property: a task's hash
// is a function of its own inputs plus its dependencies' hashes, never
// their raw inputs.
package taskhash

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pyr-sh/dag"
	"golang.org/x/sync/errgroup"

	"github.com/monotask/mono/internal/env"
	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/fs/globby"
	"github.com/monotask/mono/internal/inference"
	"github.com/monotask/mono/internal/nodes"
	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/util"
	"github.com/monotask/mono/internal/workspace"
)

// Tracker caches per-package file hashes and per-task hashes. File hashes
// must be calculated before any task hash; task hashes must be
// calculated in topological order (CalculateTaskHash is safe to call
// concurrently across tasks at the same graph depth, since it only reads
// already-settled dependency hashes).
type Tracker struct {
	rootNode   string
	globalHash string
	engineEnv  env.EnvironmentVariableMap
	pipeline   fs.Pipeline

	packageInputsHashes map[string]string

	mu                     sync.RWMutex
	packageTaskEnvVars     map[string]env.DetailedMap
	packageTaskHashes      map[string]string
	packageTaskFramework   map[string]string
	packageTaskOutputs     map[string][]monopath.AnchoredSystemPath
}

// NewTracker creates a Tracker. engineEnv is normally env.GetEnvMap() -
// it is threaded through explicitly so tests can supply a fixed map.
func NewTracker(rootNode string, globalHash string, engineEnv env.EnvironmentVariableMap, pipeline fs.Pipeline) *Tracker {
	return &Tracker{
		rootNode:             rootNode,
		globalHash:           globalHash,
		engineEnv:            engineEnv,
		pipeline:             pipeline,
		packageTaskHashes:    make(map[string]string),
		packageTaskFramework: make(map[string]string),
		packageTaskEnvVars:   make(map[string]env.DetailedMap),
		packageTaskOutputs:   make(map[string][]monopath.AnchoredSystemPath),
	}
}

type fileHashJob struct {
	taskID         string
	taskDefinition *fs.TaskDefinition
	packageName    string
}

// CalculateFileHashes computes the file hash for every package-task
// combination present in allTasks, fanning the work out over workerCount
// goroutines. Must be called once, before any CalculateTaskHash call.
func (th *Tracker) CalculateFileHashes(
	allTasks []dag.Vertex,
	workerCount int,
	workspaceInfos *workspace.Catalog,
	taskDefinitions map[string]*fs.TaskDefinition,
	repoRoot monopath.AbsoluteSystemPath,
) error {
	jobs := make([]*fileHashJob, 0, len(allTasks))
	for _, v := range allTasks {
		taskID, ok := v.(string)
		if !ok {
			return fmt.Errorf("unknown task vertex %v", v)
		}
		if taskID == th.rootNode {
			continue
		}
		packageName, _ := util.GetPackageTaskFromId(taskID)
		if packageName == th.rootNode {
			continue
		}
		taskDefinition, ok := taskDefinitions[taskID]
		if !ok {
			return fmt.Errorf("missing pipeline entry for %v", taskID)
		}
		jobs = append(jobs, &fileHashJob{taskID, taskDefinition, packageName})
	}

	hashes := make(map[string]string, len(jobs))
	queue := make(chan *fileHashJob, workerCount)
	var mu sync.Mutex
	g := &errgroup.Group{}

	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			for job := range queue {
				pkg, ok := workspaceInfos.PackageJSONs[job.packageName]
				if !ok {
					return fmt.Errorf("cannot find package %v", job.packageName)
				}

				fileHashes, err := getPackageFileHashes(repoRoot, pkg.Dir, job.taskDefinition.Inputs)
				if err != nil {
					return err
				}

				mu.Lock()
				hashes[job.taskID] = fileHashes.CombinedHash()
				mu.Unlock()
			}
			return nil
		})
	}
	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	if err := g.Wait(); err != nil {
		return err
	}

	th.mu.Lock()
	th.packageInputsHashes = hashes
	th.mu.Unlock()
	return nil
}

// getPackageFileHashes resolves a task's `inputs` globs (or, when empty,
// every file under the package directory except node_modules/ and .git/)
// against the package directory and hashes each matched file's contents.
// The empty-inputs case does not consult version control, so untracked
// and git-ignored files are hashed too.
func getPackageFileHashes(repoRoot monopath.AbsoluteSystemPath, pkgDir monopath.AnchoredSystemPath, inputs []string) (fs.FileHashes, error) {
	absDir := pkgDir.RestoreAnchor(repoRoot)

	var relFiles []string
	var err error
	if len(inputs) == 0 {
		relFiles, err = globby.GlobFiles(absDir.ToString(), nil, []string{"node_modules/**", ".git/**"})
	} else {
		relFiles, err = globby.GlobFiles(absDir.ToString(), inputs, nil)
	}
	if err != nil {
		return nil, err
	}

	out := make(fs.FileHashes, len(relFiles))
	for _, rel := range relFiles {
		contents, err := absDir.Join(rel).ReadFile()
		if err != nil {
			return nil, err
		}
		out[rel] = fs.HashObject(string(contents))
	}
	return out, nil
}

func calculateTaskHashFromHashable(full *fs.TaskHashable) string {
	switch full.EnvMode {
	case util.Loose.String():
		full.PassThroughEnv = nil
	case util.Strict.String():
		if full.PassThroughEnv == nil {
			full.PassThroughEnv = []string{}
		}
	}
	return full.Hash()
}

func (th *Tracker) calculateDependencyHashes(dependencySet dag.Set) ([]string, error) {
	rootPrefix := th.rootNode + util.TaskDelimiter
	dependencyHashSet := make(util.Set)

	th.mu.RLock()
	defer th.mu.RUnlock()
	for _, dependency := range dependencySet {
		if dependency == th.rootNode {
			continue
		}
		dependencyTask, ok := dependency.(string)
		if !ok {
			return nil, fmt.Errorf("unknown task: %v", dependency)
		}
		if strings.HasPrefix(dependencyTask, rootPrefix) {
			continue
		}
		dependencyHash, ok := th.packageTaskHashes[dependencyTask]
		if !ok {
			return nil, fmt.Errorf("missing hash for dependency task: %v", dependencyTask)
		}
		dependencyHashSet.Add(dependencyHash)
	}
	list := dependencyHashSet.UnsafeListOfStrings()
	sort.Strings(list)
	return list, nil
}

// CalculateTaskHash computes packageTask's hash. Safe to call
// concurrently across tasks, provided every task in dependencySet has
// already had its own hash calculated (topological order is the
// scheduler's job, not this function's).
func (th *Tracker) CalculateTaskHash(logger hclog.Logger, packageTask *nodes.PackageTask, dependencySet dag.Set, frameworkInference bool, args []string) (string, error) {
	hashOfFiles, ok := th.getFileHash(packageTask.TaskID)
	if !ok {
		return "", fmt.Errorf("cannot find file hash for %v", packageTask.TaskID)
	}

	allEnvVarMap := env.EnvironmentVariableMap{}
	explicitEnvVarMap := env.EnvironmentVariableMap{}
	matchingEnvVarMap := env.EnvironmentVariableMap{}
	var frameworkSlug string

	if frameworkInference {
		if framework := inference.InferFramework(packageTask.Pkg); framework != nil {
			frameworkSlug = framework.Slug
			logger.Debug("auto-detected framework", "package", packageTask.PackageName, "framework", framework.Slug)

			wildcards := []string{framework.EnvMatcher}
			inferenceEnvVarMap, err := th.engineEnv.FromWildcards(wildcards)
			if err != nil {
				return "", err
			}
			userEnvVarSet, err := th.engineEnv.FromWildcardsUnresolved(packageTask.TaskDefinition.EnvVarDependencies)
			if err != nil {
				return "", err
			}

			allEnvVarMap.Union(userEnvVarSet.Inclusions)
			allEnvVarMap.Union(inferenceEnvVarMap)
			allEnvVarMap.Difference(userEnvVarSet.Exclusions)

			explicitEnvVarMap.Union(userEnvVarSet.Inclusions)
			explicitEnvVarMap.Difference(userEnvVarSet.Exclusions)

			matchingEnvVarMap.Union(inferenceEnvVarMap)
			matchingEnvVarMap.Difference(userEnvVarSet.Exclusions)
		}
	}
	if frameworkSlug == "" {
		resolved, err := th.engineEnv.FromWildcards(packageTask.TaskDefinition.EnvVarDependencies)
		if err != nil {
			return "", err
		}
		allEnvVarMap = resolved
		explicitEnvVarMap.Union(resolved)
	}

	envVars := env.DetailedMap{
		All: allEnvVarMap,
		BySource: env.BySource{
			Explicit: explicitEnvVarMap,
			Matching: matchingEnvVarMap,
		},
	}

	taskDependencyHashes, err := th.calculateDependencyHashes(dependencySet)
	if err != nil {
		return "", err
	}

	envMode := packageTask.EnvMode
	if packageTask.TaskDefinition.PassThroughEnv != nil {
		envMode = util.Strict
	} else if envMode == util.Infer {
		envMode = util.Loose
	}

	hashable := fs.TaskHashable{
		GlobalHash:           th.globalHash,
		TaskDependencyHashes: taskDependencyHashes,
		HashOfFiles:          hashOfFiles,
		ExternalDepsHash:     packageTask.Pkg.ExternalDepsHash,
		Task:                 packageTask.Task,
		Outputs:              packageTask.HashableOutputs(),
		PassThruArgs:         args,
		Env:                  packageTask.TaskDefinition.EnvVarDependencies,
		ResolvedEnvVars:      envVars.All.ToHashable(),
		PassThroughEnv:       packageTask.TaskDefinition.PassThroughEnv,
		EnvMode:              envMode.String(),
	}
	taskHash := calculateTaskHashFromHashable(&hashable)

	th.mu.Lock()
	th.packageTaskEnvVars[packageTask.TaskID] = envVars
	th.packageTaskHashes[packageTask.TaskID] = taskHash
	if frameworkSlug != "" {
		th.packageTaskFramework[packageTask.TaskID] = frameworkSlug
	}
	th.mu.Unlock()

	return taskHash, nil
}

func (th *Tracker) getFileHash(taskID string) (string, bool) {
	th.mu.RLock()
	defer th.mu.RUnlock()
	h, ok := th.packageInputsHashes[taskID]
	return h, ok
}

// GetEnvVars returns the resolved env vars recorded for taskID.
func (th *Tracker) GetEnvVars(taskID string) env.DetailedMap {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return th.packageTaskEnvVars[taskID]
}

// GetFramework returns the inferred framework slug for taskID, if any.
func (th *Tracker) GetFramework(taskID string) string {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return th.packageTaskFramework[taskID]
}

// GetExpandedOutputs returns the outputs recorded by SetExpandedOutputs.
func (th *Tracker) GetExpandedOutputs(taskID string) []monopath.AnchoredSystemPath {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return th.packageTaskOutputs[taskID]
}

// SetExpandedOutputs records the concrete output files a task produced,
// for display in a run summary.
func (th *Tracker) SetExpandedOutputs(taskID string, outputs []monopath.AnchoredSystemPath) {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.packageTaskOutputs[taskID] = outputs
}

// GetTaskHash returns the already-computed hash for taskID.
func (th *Tracker) GetTaskHash(taskID string) (string, bool) {
	th.mu.RLock()
	defer th.mu.RUnlock()
	h, ok := th.packageTaskHashes[taskID]
	return h, ok
}
