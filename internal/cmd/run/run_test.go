package run

import (
	"testing"

	"github.com/monotask/mono/internal/cmdutil"
	"github.com/monotask/mono/internal/util"
)

func TestParseEnvMode(t *testing.T) {
	testCases := []struct {
		input   string
		want    util.EnvMode
		wantErr bool
	}{
		{"", util.Infer, false},
		{"infer", util.Infer, false},
		{"loose", util.Loose, false},
		{"strict", util.Strict, false},
		{"bogus", util.Infer, true},
	}

	for _, tc := range testCases {
		got, err := parseEnvMode(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseEnvMode(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("parseEnvMode(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestGetCmdDefaultFlags(t *testing.T) {
	helper := cmdutil.NewHelper("test-version")
	cmd := GetCmd(helper)

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		t.Fatalf("reading concurrency flag: %v", err)
	}
	if concurrency != 10 {
		t.Errorf("default --concurrency got %v, want 10", concurrency)
	}

	outputLogs, err := cmd.Flags().GetString("output-logs")
	if err != nil {
		t.Fatalf("reading output-logs flag: %v", err)
	}
	if outputLogs != string(util.ErrorTaskOutput) {
		t.Errorf("default --output-logs got %v, want %v", outputLogs, util.ErrorTaskOutput)
	}

	if cmd.Use != "run <tasks>..." {
		t.Errorf("unexpected Use: %v", cmd.Use)
	}

	singlePackage, err := cmd.Flags().GetBool("single-package")
	if err != nil {
		t.Fatalf("reading single-package flag: %v", err)
	}
	if singlePackage {
		t.Error("default --single-package got true, want false")
	}
}
