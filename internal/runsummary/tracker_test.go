package runsummary

import (
	"errors"
	"os"
	"testing"

	"github.com/mitchellh/cli"

	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/util"
)

func TestTrackerAccumulatesOutcomes(t *testing.T) {
	tr := NewTracker("0.0.0-test", util.Loose, []string{"web", "docs"}, "mono run build lint", nil)

	done1 := tr.TrackTask(&TaskSummary{TaskID: "web#build"})
	done1(TaskBuilt, nil)

	done2 := tr.TrackTask(&TaskSummary{TaskID: "docs#build"})
	done2(TaskCached, nil)

	done3 := tr.TrackTask(&TaskSummary{TaskID: "web#lint"})
	done3(TaskFailed, errors.New("exit status 1"))

	summary := tr.Summary()
	if len(summary.Tasks) != 3 {
		t.Fatalf("expected 3 tracked tasks, got %v", len(summary.Tasks))
	}
	if tr.success != 1 || tr.cached != 1 || tr.failure != 1 || tr.attempted != 3 {
		t.Errorf("unexpected counters: success=%v cached=%v failure=%v attempted=%v", tr.success, tr.cached, tr.failure, tr.attempted)
	}

	tr.Close(cli.NewMockUi(), 1)

	execution := tr.Summary().Execution
	if execution == nil {
		t.Fatal("expected Close to populate an ExecutionSummary")
	}
	if execution.Attempted != 3 || execution.Success != 1 || execution.Cached != 1 || execution.Failed != 1 {
		t.Errorf("unexpected execution summary: %+v", execution)
	}
	if execution.ExitCode != 1 {
		t.Errorf("ExitCode got %v, want 1", execution.ExitCode)
	}
	if execution.StartTime == 0 || execution.EndTime == 0 || execution.EndTime < execution.StartTime {
		t.Errorf("expected a valid start/end window, got %+v", execution)
	}
}

func TestTrackerSaveWritesJSON(t *testing.T) {
	root, err := os.MkdirTemp("", "mono-runsummary-")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(root)

	tr := NewTracker("0.0.0-test", util.Strict, []string{"web"}, "mono run build", nil)
	done := tr.TrackTask(&TaskSummary{TaskID: "web#build"})
	done(TaskBuilt, nil)

	path, err := tr.Save(monopath.AbsoluteSystemPath(root))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !path.FileExists() {
		t.Errorf("expected summary file to exist at %v", path)
	}
}
