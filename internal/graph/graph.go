// Package graph holds CompleteGraph, the state shared by every task in a
// run: the workspace dependency graph, the resolved pipeline, and the
// hash tracker. It is assembled once per run and is never specific to a
// particular invocation's scope or flags.
package graph

import (
	gocontext "context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pyr-sh/dag"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/nodes"
	"github.com/monotask/mono/internal/runsummary"
	"github.com/monotask/mono/internal/taskhash"
	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/util"
	"github.com/monotask/mono/internal/workspace"
)

// CompleteGraph represents the common state inferred from the filesystem
// and the pipeline. It is not specific to any particular run's scope.
type CompleteGraph struct {
	// WorkspaceGraph expresses the dependencies between packages.
	WorkspaceGraph dag.AcyclicGraph

	// Pipeline is the resolved root mono.json pipeline.
	Pipeline fs.Pipeline

	// WorkspaceInfos stores each package's package.json/mono.json.
	WorkspaceInfos *workspace.Catalog

	// GlobalHash is the hash of every global dependency.
	GlobalHash string

	RootNode string

	// TaskDefinitions maps taskID to its fully resolved definition.
	TaskDefinitions map[string]*fs.TaskDefinition
	RepoRoot        monopath.AbsoluteSystemPath

	TaskHashTracker *taskhash.Tracker
}

// GetPackageTaskVisitor wraps a visitor function used to walk the task
// graph during execution or dry runs. The returned func does not execute
// anything itself: it resolves the package-task's hash and builds its
// TaskSummary, then hands both to execFunc.
func (g *CompleteGraph) GetPackageTaskVisitor(
	ctx gocontext.Context,
	taskGraph *dag.AcyclicGraph,
	globalEnvMode util.EnvMode,
	frameworkInference bool,
	getArgs func(taskID string) []string,
	logger hclog.Logger,
	execFunc func(ctx gocontext.Context, packageTask *nodes.PackageTask, taskSummary *runsummary.TaskSummary) error,
) func(taskID string) error {
	return func(taskID string) error {
		packageName, taskName := util.GetPackageTaskFromId(taskID)
		pkg, ok := g.WorkspaceInfos.PackageJSONs[packageName]
		if !ok {
			return fmt.Errorf("cannot find package %v for task %v", packageName, taskID)
		}

		var command string
		if cmd, ok := pkg.Scripts[taskName]; ok {
			command = cmd
		}

		if packageName == util.RootPkgName && commandLooksLikeMono(command) {
			return fmt.Errorf("root task %v (%v) looks like it invokes mono and might cause a loop", taskName, command)
		}

		taskDefinition, ok := g.TaskDefinitions[taskID]
		if !ok {
			return fmt.Errorf("could not find task definition for %v", taskID)
		}

		taskEnvMode := globalEnvMode
		if taskEnvMode == util.Infer {
			if taskDefinition.PassThroughEnv != nil {
				taskEnvMode = util.Strict
			} else {
				taskEnvMode = util.Loose
			}
		}

		packageTask := &nodes.PackageTask{
			TaskID:          taskID,
			Task:            taskName,
			PackageName:     packageName,
			Pkg:             pkg,
			EnvMode:         taskEnvMode,
			Dir:             pkg.Dir.ToString(),
			TaskDefinition:  taskDefinition,
			Outputs:         taskDefinition.Outputs.Inclusions,
			ExcludedOutputs: taskDefinition.Outputs.Exclusions,
		}

		passThruArgs := getArgs(taskName)
		hash, err := g.TaskHashTracker.CalculateTaskHash(
			logger,
			packageTask,
			taskGraph.DownEdges(taskID),
			frameworkInference,
			passThruArgs,
		)
		if err != nil {
			return fmt.Errorf("hashing error for %v: %w", taskID, err)
		}

		pkgDir := pkg.Dir
		packageTask.Hash = hash
		envVars := g.TaskHashTracker.GetEnvVars(taskID)
		framework := g.TaskHashTracker.GetFramework(taskID)

		logFile := packageTask.RepoRelativeSystemLogFile()
		packageTask.LogFile = logFile
		packageTask.Command = command

		summary := &runsummary.TaskSummary{
			TaskID:                 taskID,
			Task:                   taskName,
			Hash:                   hash,
			Package:                packageName,
			Dir:                    pkgDir.ToString(),
			Outputs:                taskDefinition.Outputs.Inclusions,
			ExcludedOutputs:        taskDefinition.Outputs.Exclusions,
			LogFile:                logFile,
			ResolvedTaskDefinition: taskDefinition,
			ExpandedOutputs:        []monopath.AnchoredSystemPath{},
			Command:                command,
			Framework:              framework,
			EnvVars: runsummary.TaskEnvVarSummary{
				Configured: envVars.BySource.Explicit.ToSecretHashable(),
				Inferred:   envVars.BySource.Matching.ToSecretHashable(),
			},
			ExternalDepsHash: pkg.ExternalDepsHash,
		}

		if ancestors, err := g.getTaskGraphAncestors(taskGraph, packageTask.TaskID); err == nil {
			summary.Dependencies = ancestors
		}
		if descendents, err := g.getTaskGraphDescendants(taskGraph, packageTask.TaskID); err == nil {
			summary.Dependents = descendents
		}

		return execFunc(ctx, packageTask, summary)
	}
}

// GetPipelineFromWorkspace returns the resolved pipeline for workspaceName,
// loading and caching its mono.json on first access.
func (g *CompleteGraph) GetPipelineFromWorkspace(workspaceName string, isSinglePackage bool) (fs.Pipeline, error) {
	monoConfig, err := g.GetMonoConfigFromWorkspace(workspaceName, isSinglePackage)
	if err != nil {
		return nil, err
	}
	return monoConfig.Pipeline, nil
}

// GetMonoConfigFromWorkspace returns workspaceName's resolved mono.json,
// loading and memoizing it on first access.
func (g *CompleteGraph) GetMonoConfigFromWorkspace(workspaceName string, isSinglePackage bool) (*fs.MonoJSON, error) {
	if cached, ok := g.WorkspaceInfos.MonoConfigs[workspaceName]; ok {
		return cached, nil
	}

	workspacePackageJSON, err := g.GetPackageJSONFromWorkspace(workspaceName)
	if err != nil {
		return nil, err
	}

	// pkgJSON.Dir for the root workspace is an empty string; for every
	// other workspace it is a repo-relative path.
	workspaceAbsolutePath := workspacePackageJSON.Dir.RestoreAnchor(g.RepoRoot)
	monoConfig, err := fs.LoadMonoConfig(workspaceAbsolutePath, workspacePackageJSON, isSinglePackage)
	if err != nil {
		return nil, err
	}

	g.WorkspaceInfos.MonoConfigs[workspaceName] = monoConfig
	return g.WorkspaceInfos.MonoConfigs[workspaceName], nil
}

// GetPackageJSONFromWorkspace returns the decoded package.json for
// workspaceName.
func (g *CompleteGraph) GetPackageJSONFromWorkspace(workspaceName string) (*fs.PackageJSON, error) {
	if pkgJSON, ok := g.WorkspaceInfos.PackageJSONs[workspaceName]; ok {
		return pkgJSON, nil
	}
	return nil, fmt.Errorf("no package.json for %v", workspaceName)
}

// getTaskGraphAncestors returns every task that taskID depends on.
func (g *CompleteGraph) getTaskGraphAncestors(taskGraph *dag.AcyclicGraph, taskID string) ([]string, error) {
	ancestors, err := taskGraph.Ancestors(taskID)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, dep := range ancestors {
		// Don't leak the internal root node placeholder.
		if !strings.Contains(dep.(string), g.RootNode) {
			out = append(out, dep.(string))
		}
	}
	sort.Strings(out)
	return out, nil
}

// getTaskGraphDescendants returns every task that depends on taskID.
func (g *CompleteGraph) getTaskGraphDescendants(taskGraph *dag.AcyclicGraph, taskID string) ([]string, error) {
	descendents, err := taskGraph.Descendents(taskID)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, dep := range descendents {
		if !strings.Contains(dep.(string), g.RootNode) {
			out = append(out, dep.(string))
		}
	}
	sort.Strings(out)
	return out, nil
}

var isMonoInvocation = regexp.MustCompile(`(?:^|\s)mono(?:$|\s)`)

// commandLooksLikeMono reports whether a root package.json script
// appears to shell out to mono itself, which would recurse forever.
func commandLooksLikeMono(command string) bool {
	return isMonoInvocation.MatchString(command)
}
