package run

import (
	gocontext "context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/monotask/mono/internal/core"
	"github.com/monotask/mono/internal/graph"
	"github.com/monotask/mono/internal/nodes"
	"github.com/monotask/mono/internal/runsummary"
)

// DryRun walks the task graph computing every task's hash exactly as a
// real run would, but executes nothing; it prints the resulting
// summaries instead, as text or (with rs.Opts.runOpts.DryRunJSON) JSON.
func DryRun(
	ctx gocontext.Context,
	g *graph.CompleteGraph,
	rs *runSpec,
	engine *core.Engine,
	logger hclog.Logger,
	terminal cli.Ui,
) error {
	var tasksRun []*runsummary.TaskSummary

	execFunc := func(ctx gocontext.Context, packageTask *nodes.PackageTask, taskSummary *runsummary.TaskSummary) error {
		tasksRun = append(tasksRun, taskSummary)
		return nil
	}

	getArgs := func(taskID string) []string {
		return rs.ArgsForTask(taskID)
	}

	visitorFn := g.GetPackageTaskVisitor(ctx, engine.TaskGraph, rs.Opts.runOpts.EnvMode, true, getArgs, logger, execFunc)
	if errs := engine.Execute(visitorFn, core.ExecutionOptions{Concurrency: rs.Opts.runOpts.Concurrency}); len(errs) > 0 {
		for _, err := range errs {
			terminal.Error(err.Error())
		}
		return fmt.Errorf("errors occurred while computing the dry run")
	}

	sort.Slice(tasksRun, func(i, j int) bool {
		return tasksRun[i].TaskID < tasksRun[j].TaskID
	})

	if rs.Opts.runOpts.DryRunJSON {
		rendered, err := json.MarshalIndent(struct {
			Tasks []*runsummary.TaskSummary `json:"tasks"`
		}{Tasks: tasksRun}, "", "  ")
		if err != nil {
			return fmt.Errorf("error rendering dry run as JSON: %w", err)
		}
		terminal.Output(string(rendered))
		return nil
	}

	return displayDryTextRun(terminal, tasksRun)
}

func displayDryTextRun(terminal cli.Ui, tasksRun []*runsummary.TaskSummary) error {
	w := new(tabwriter.Writer)
	var sb strings.Builder
	w.Init(&sb, 8, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Task\tPackage\tHash\tCommand\tOutputs")
	for _, t := range tasksRun {
		command := t.Command
		if command == "" {
			command = "<NONEXISTENT>"
		}
		outputs := strings.Join(t.Outputs, ", ")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Task, t.Package, t.Hash, command, outputs)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error rendering dry run: %w", err)
	}
	terminal.Output(sb.String())
	return nil
}
