package info

import (
	"testing"

	"github.com/monotask/mono/internal/cmdutil"
)

func TestBinCmdShape(t *testing.T) {
	helper := cmdutil.NewHelper("test-version")
	cmd := BinCmd(helper)

	if cmd.Use != "bin" {
		t.Errorf("Use got %v, want bin", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("expected RunE to be set")
	}
}
