// Package core builds and walks the task graph: which package#task nodes
// exist, what edges connect them, and in what order a scheduler may visit
// them while honoring concurrency limits.
package core

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pyr-sh/dag"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/graph"
	"github.com/monotask/mono/internal/util"
)

// RootNodeName is the synthetic vertex every task with no dependency of
// its own is connected to, so the graph always has a single source.
const RootNodeName = "___ROOT___"

// Task pairs a resolved TaskDefinition with the task name it came from.
type Task struct {
	Name           string
	TaskDefinition fs.TaskDefinition
}

// Visitor is called once per taskID as the graph is walked.
type Visitor = func(taskID string) error

// Engine builds the task graph from a scope of packages/tasks and walks
// it to completion, calling a Visitor for each task in dependency order.
type Engine struct {
	TaskGraph        *dag.AcyclicGraph
	PackageTaskDeps  map[string][]string
	rootEnabledTasks util.Set

	completeGraph  *graph.CompleteGraph
	isSinglePackage bool
}

// NewEngine constructs an Engine over completeGraph.
func NewEngine(completeGraph *graph.CompleteGraph, isSinglePackage bool) *Engine {
	return &Engine{
		completeGraph:    completeGraph,
		TaskGraph:        &dag.AcyclicGraph{},
		PackageTaskDeps:  map[string][]string{},
		rootEnabledTasks: make(util.Set),
		isSinglePackage:  isSinglePackage,
	}
}

// BuildOptions scopes which packages/tasks Prepare builds a graph for.
type BuildOptions struct {
	Packages  []string
	TaskNames []string
	// TasksOnly restricts dependencies to only the listed task names,
	// dropping any dependsOn entry for a task outside the scope.
	TasksOnly bool
}

// ExecutionOptions controls one walk of an already-built task graph.
type ExecutionOptions struct {
	Parallel    bool
	Concurrency int
}

// Execute walks the task graph, calling visitor for every non-root
// vertex. Concurrency is bounded by opts.Concurrency unless Parallel is
// set, in which case every ready task runs at once.
func (e *Engine) Execute(visitor Visitor, opts ExecutionOptions) []error {
	sema := util.NewSemaphore(opts.Concurrency)
	var errored int32
	return e.TaskGraph.Walk(func(v dag.Vertex) error {
		if atomic.LoadInt32(&errored) != 0 {
			return nil
		}
		taskID := dag.VertexName(v)
		if strings.Contains(taskID, RootNodeName) {
			return nil
		}
		if !opts.Parallel {
			sema.Acquire()
			defer sema.Release()
		}
		if err := visitor(taskID); err != nil {
			atomic.StoreInt32(&errored, 1)
			return err
		}
		return nil
	})
}

// MissingTaskError reports a task name that isn't defined anywhere
// reachable from the package it was requested for.
type MissingTaskError struct {
	workspaceName string
	taskID        string
	taskName      string
}

func (m *MissingTaskError) Error() string {
	return fmt.Sprintf("could not find %q or %q in workspace %q", m.taskName, m.taskID, m.workspaceName)
}

// getTaskDefinition resolves taskID's definition: a package-level
// mono.json overlay wins outright if it names the task, otherwise the
// lookup falls back to the root pipeline. There is no deeper merge -
// validateExtends only allows a package to extend the root, one level,
// and an overlay that names a task replaces the root's definition for
// it entirely rather than merging field by field.
func (e *Engine) getTaskDefinition(pkg string, taskName string, taskID string) (*Task, error) {
	pipeline, err := e.completeGraph.GetPipelineFromWorkspace(pkg, e.isSinglePackage)
	if err != nil {
		if pkg != util.RootPkgName && errors.Is(err, os.ErrNotExist) {
			return e.getTaskDefinition(util.RootPkgName, taskName, taskID)
		}
		return nil, err
	}

	if task, ok := pipeline.GetTaskDefinition(taskID); ok {
		return &Task{Name: taskName, TaskDefinition: task}, nil
	}

	if pkg != util.RootPkgName {
		return e.getTaskDefinition(util.RootPkgName, taskName, taskID)
	}

	return nil, &MissingTaskError{taskName: taskName, taskID: taskID, workspaceName: pkg}
}

// Prepare builds the task graph for the given scope: every taskID that
// can be reached from pkgs x taskNames, transitively through dependsOn.
func (e *Engine) Prepare(options *BuildOptions) error {
	pkgs := options.Packages
	taskNames := options.TaskNames
	tasksOnly := options.TasksOnly

	if e.isSinglePackage {
		for _, taskName := range taskNames {
			if util.IsPackageTask(taskName) {
				return fmt.Errorf("%q: package#task syntax is not allowed in single-package mode", taskName)
			}
		}
	}

	if len(pkgs) == 0 {
		return nil
	}

	var traversalQueue []string
	missing := util.SetFromStrings(taskNames)

	for _, pkg := range pkgs {
		for _, taskName := range taskNames {
			taskID := util.GetTaskId(pkg, taskName)

			foundTask, err := e.getTaskDefinition(pkg, taskName, taskID)
			if err != nil {
				var missingTask *MissingTaskError
				if errors.As(err, &missingTask) {
					continue
				}
				return err
			}

			if foundTask != nil {
				missing.Delete(taskName)

				isRootPkg := pkg == util.RootPkgName
				if !isRootPkg || e.rootEnabledTasks.Includes(taskName) {
					traversalQueue = append(traversalQueue, taskID)
				}
			}
		}
	}

	visited := make(util.Set)

	missingList := missing.UnsafeListOfStrings()
	sort.Strings(missingList)
	if len(missingList) > 0 {
		return fmt.Errorf("could not find the following tasks in project: %s", strings.Join(missingList, ", "))
	}

	for len(traversalQueue) > 0 {
		taskID := traversalQueue[0]
		traversalQueue = traversalQueue[1:]

		pkg, taskName := util.GetPackageTaskFromId(taskID)

		if pkg == util.RootPkgName && !e.rootEnabledTasks.Includes(taskName) {
			return fmt.Errorf("%v needs an entry in mono.json before it can be depended on because it is a task run from the root package", taskID)
		}

		if pkg != RootNodeName {
			if _, ok := e.completeGraph.WorkspaceInfos.PackageJSONs[pkg]; !ok {
				return fmt.Errorf("could not find workspace %q from task %q in project", pkg, taskID)
			}
		}

		found, err := e.getTaskDefinition(pkg, taskName, taskID)
		if err != nil {
			return err
		}
		taskDefinition := found.TaskDefinition

		if visited.Includes(taskID) {
			continue
		}
		visited.Add(taskID)

		e.completeGraph.TaskDefinitions[taskID] = &taskDefinition

		topoDeps := util.SetFromStrings(taskDefinition.TopologicalDependencies)
		deps := make(util.Set)
		isPackageTask := util.IsPackageTask(taskName)

		for _, dependency := range taskDefinition.TaskDependencies {
			if isPackageTask && util.IsPackageTask(dependency) {
				if err := e.AddDep(dependency, taskName); err != nil {
					return err
				}
			} else {
				deps.Add(dependency)
			}
		}

		if tasksOnly {
			deps = filterToScope(deps, taskNames)
			topoDeps = filterToScope(topoDeps, taskNames)
		}

		toTaskID := taskID

		hasTopoDeps := topoDeps.Len() > 0 && e.completeGraph.WorkspaceGraph.DownEdges(pkg).Len() > 0
		hasDeps := deps.Len() > 0
		_, hasPackageTaskDeps := e.PackageTaskDeps[toTaskID]

		if hasTopoDeps {
			depPkgs := e.completeGraph.WorkspaceGraph.DownEdges(pkg)
			for _, from := range topoDeps.UnsafeListOfStrings() {
				for depPkg := range depPkgs {
					fromTaskID := util.GetTaskId(depPkg, from)
					e.TaskGraph.Add(fromTaskID)
					e.TaskGraph.Add(toTaskID)
					e.TaskGraph.Connect(dag.BasicEdge(toTaskID, fromTaskID))
					traversalQueue = append(traversalQueue, fromTaskID)
				}
			}
		}

		if hasDeps {
			for _, from := range deps.UnsafeListOfStrings() {
				fromTaskID := util.GetTaskId(pkg, from)
				e.TaskGraph.Add(fromTaskID)
				e.TaskGraph.Add(toTaskID)
				e.TaskGraph.Connect(dag.BasicEdge(toTaskID, fromTaskID))
				traversalQueue = append(traversalQueue, fromTaskID)
			}
		}

		if hasPackageTaskDeps {
			for _, fromTaskID := range e.PackageTaskDeps[toTaskID] {
				e.TaskGraph.Add(fromTaskID)
				e.TaskGraph.Add(toTaskID)
				e.TaskGraph.Connect(dag.BasicEdge(toTaskID, fromTaskID))
				traversalQueue = append(traversalQueue, fromTaskID)
			}
		}

		if !hasDeps && !hasTopoDeps && !hasPackageTaskDeps {
			e.TaskGraph.Add(RootNodeName)
			e.TaskGraph.Add(toTaskID)
			e.TaskGraph.Connect(dag.BasicEdge(toTaskID, RootNodeName))
		}
	}

	return nil
}

func filterToScope(set util.Set, taskNames []string) util.Set {
	return set.Filter(func(d interface{}) bool {
		for _, target := range taskNames {
			if fmt.Sprintf("%v", d) == target {
				return true
			}
		}
		return false
	})
}

// AddTask registers taskName as a valid entry point, recording root
// pseudo-package tasks as depend-on-able so Prepare doesn't reject a
// root task referenced from another package's dependsOn.
func (e *Engine) AddTask(taskName string) {
	if util.IsPackageTask(taskName) {
		pkg, name := util.GetPackageTaskFromId(taskName)
		if pkg == util.RootPkgName {
			e.rootEnabledTasks.Add(name)
		}
	}
}

// AddDep records that fromTaskID must run before the task named
// toTaskID within the same package.
func (e *Engine) AddDep(fromTaskID string, toTaskID string) error {
	fromPkg, _ := util.GetPackageTaskFromId(fromTaskID)
	if fromPkg != RootNodeName && fromPkg != util.RootPkgName && !e.completeGraph.WorkspaceGraph.HasVertex(fromPkg) {
		return fmt.Errorf("found reference to unknown package: %v in task %v", fromPkg, fromTaskID)
	}
	e.PackageTaskDeps[toTaskID] = append(e.PackageTaskDeps[toTaskID], fromTaskID)
	return nil
}

// ValidatePersistentDependencies rejects a graph where a task depends on
// a persistent task (one that never exits, e.g. a dev server) that is
// actually implemented in its package, and checks that concurrency
// leaves room for every persistent task to run at once.
func (e *Engine) ValidatePersistentDependencies(g *graph.CompleteGraph, concurrency int) error {
	var validationError error
	persistentCount := 0
	sema := util.NewSemaphore(1)

	errs := e.TaskGraph.Walk(func(v dag.Vertex) error {
		vertexName := dag.VertexName(v)
		if strings.Contains(vertexName, RootNodeName) {
			return nil
		}

		sema.Acquire()
		defer sema.Release()

		currentTaskDefinition, currentTaskExists := e.completeGraph.TaskDefinitions[vertexName]
		if currentTaskExists && currentTaskDefinition.Persistent {
			persistentCount++
		}

		currentPackageName, currentTaskName := util.GetPackageTaskFromId(vertexName)

		for dep := range e.TaskGraph.DownEdges(vertexName) {
			depTaskID := dep.(string)
			if strings.Contains(depTaskID, RootNodeName) {
				return nil
			}

			packageName, taskName := util.GetPackageTaskFromId(depTaskID)

			depTaskDefinition, taskExists := e.completeGraph.TaskDefinitions[depTaskID]
			if !taskExists {
				return fmt.Errorf("cannot find task definition for %v in package %v", depTaskID, packageName)
			}

			pkg, pkgExists := g.WorkspaceInfos.PackageJSONs[packageName]
			if !pkgExists {
				return fmt.Errorf("cannot find package %v", packageName)
			}
			_, hasScript := pkg.Scripts[taskName]

			if depTaskDefinition.Persistent && hasScript {
				validationError = fmt.Errorf(
					"%q is a persistent task, %q cannot depend on it",
					util.GetTaskId(packageName, taskName),
					util.GetTaskId(currentPackageName, currentTaskName),
				)
				break
			}
		}

		return nil
	})

	for _, err := range errs {
		return fmt.Errorf("validation failed: %v", err)
	}
	if validationError != nil {
		return validationError
	}
	if persistentCount >= concurrency {
		return fmt.Errorf("you have %v persistent tasks but mono is configured for concurrency of %v; set --concurrency to at least %v", persistentCount, concurrency, persistentCount+1)
	}
	return nil
}
