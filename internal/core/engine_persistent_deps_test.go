package core

import (
	"regexp"
	"testing"

	"github.com/pyr-sh/dag"
	"github.com/stretchr/testify/assert"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/graph"
	"github.com/monotask/mono/internal/workspace"
)

// buildWorkspaceGraph wires workspace-a and workspace-b as both
// depending on workspace-c, for topological-dependency persistent-task
// scenarios.
func buildWorkspaceGraph() dag.AcyclicGraph {
	var g dag.AcyclicGraph
	for _, ws := range []string{"workspace-a", "workspace-b", "workspace-c"} {
		g.Add(ws)
	}
	g.Connect(dag.BasicEdge("workspace-a", "workspace-c"))
	g.Connect(dag.BasicEdge("workspace-b", "workspace-c"))
	return g
}

func buildCompleteGraphWithPipeline(pipeline fs.Pipeline) *graph.CompleteGraph {
	catalog := workspace.NewCatalog()
	for _, ws := range []string{"//", "workspace-a", "workspace-b", "workspace-c"} {
		catalog.PackageJSONs[ws] = &fs.PackageJSON{Scripts: map[string]string{"dev": "dev", "build": "build"}}
	}
	catalog.MonoConfigs["//"] = &fs.MonoJSON{Pipeline: pipeline}

	return &graph.CompleteGraph{
		WorkspaceGraph:  buildWorkspaceGraph(),
		Pipeline:        pipeline,
		TaskDefinitions: map[string]*fs.TaskDefinition{},
		WorkspaceInfos:  catalog,
	}
}

func taskDef(t *testing.T, raw string) fs.TaskDefinition {
	def := &fs.TaskDefinition{}
	assert.NoError(t, def.UnmarshalJSON([]byte(raw)))
	return *def
}

func TestPrepare_PersistentDependencies_Topological(t *testing.T) {
	pipeline := fs.Pipeline{
		"dev": taskDef(t, `{"dependsOn": ["^dev"], "persistent": true}`),
	}
	cg := buildCompleteGraphWithPipeline(pipeline)
	e := NewEngine(cg, false)
	e.AddTask("dev")

	err := e.Prepare(&BuildOptions{
		Packages:  []string{"workspace-a", "workspace-b", "workspace-c"},
		TaskNames: []string{"dev"},
	})
	assert.NoError(t, err)

	actualErr := e.ValidatePersistentDependencies(cg, 10)
	expected := regexp.MustCompile(`"workspace-c#dev" is a persistent task, "workspace-[ab]#dev" cannot depend on it`)
	assert.Regexp(t, expected, actualErr.Error())
}

func TestPrepare_PersistentDependencies_SameWorkspace(t *testing.T) {
	pipeline := fs.Pipeline{
		"build": taskDef(t, `{"dependsOn": ["dev"]}`),
		"dev":   taskDef(t, `{"persistent": true}`),
	}
	cg := buildCompleteGraphWithPipeline(pipeline)
	e := NewEngine(cg, false)
	e.AddTask("build")
	e.AddTask("dev")

	err := e.Prepare(&BuildOptions{
		Packages:  []string{"workspace-a", "workspace-b", "workspace-c"},
		TaskNames: []string{"build"},
	})
	assert.NoError(t, err)

	actualErr := e.ValidatePersistentDependencies(cg, 10)
	expected := regexp.MustCompile(`"workspace-[abc]#dev" is a persistent task, "workspace-[abc]#build" cannot depend on it`)
	assert.Regexp(t, expected, actualErr.Error())
}

func TestPrepare_PersistentDependencies_ConcurrencyTooLow(t *testing.T) {
	pipeline := fs.Pipeline{
		"dev": taskDef(t, `{"persistent": true}`),
	}
	cg := buildCompleteGraphWithPipeline(pipeline)
	e := NewEngine(cg, false)
	e.AddTask("dev")

	err := e.Prepare(&BuildOptions{
		Packages:  []string{"workspace-a", "workspace-b", "workspace-c"},
		TaskNames: []string{"dev"},
	})
	assert.NoError(t, err)

	actualErr := e.ValidatePersistentDependencies(cg, 2)
	assert.Error(t, actualErr)
	assert.Contains(t, actualErr.Error(), "persistent tasks but mono is configured for concurrency of 2")
}
