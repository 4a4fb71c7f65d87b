package util

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pyr-sh/dag"
)

// ValidateGraph checks that graph has no cycles and no vertex with an edge
// to itself. dag.AcyclicGraph.Validate would catch the same thing, but we
// want our own error text naming the offending task ids so a cyclic
// dependency error tells the user which tasks are involved. A graph can
// contain more than one independent cycle, so every one found is reported
// together instead of stopping at the first.
func ValidateGraph(graph *dag.AcyclicGraph) error {
	var result *multierror.Error
	for _, cycle := range graph.Cycles() {
		names := make([]string, len(cycle))
		for i, vertex := range cycle {
			names[i] = fmt.Sprintf("%s", vertex)
		}
		result = multierror.Append(result, fmt.Errorf("cyclic dependency detected:\n%s", strings.Join(names, "\n")))
	}
	for _, edge := range graph.Edges() {
		if edge.Source() == edge.Target() {
			result = multierror.Append(result, fmt.Errorf("%s depends on itself", edge.Source()))
		}
	}
	return result.ErrorOrNil()
}
