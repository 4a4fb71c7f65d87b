package cmd

import (
	"reflect"
	"testing"

	"github.com/monotask/mono/internal/cmdutil"
)

func TestResolveArgs(t *testing.T) {
	testCases := []struct {
		name         string
		args         []string
		defaultAdded bool
	}{
		{
			name:         "normal run build",
			args:         []string{"run", "build"},
			defaultAdded: false,
		},
		{
			name:         "empty args",
			args:         []string{},
			defaultAdded: true,
		},
		{
			name:         "root help",
			args:         []string{"--help"},
			defaultAdded: false,
		},
		{
			name:         "run help",
			args:         []string{"run", "--help"},
			defaultAdded: false,
		},
		{
			name:         "version",
			args:         []string{"--version"},
			defaultAdded: false,
		},
		{
			name:         "bare task names get the default command prepended",
			args:         []string{"build", "test"},
			defaultAdded: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			helper := cmdutil.NewHelper("test-version")
			root := getCmd(helper)
			resolved := resolveArgs(root, tc.args)
			defaultAdded := !reflect.DeepEqual(tc.args, resolved)
			if defaultAdded != tc.defaultAdded {
				t.Errorf("resolveArgs(%v) defaultAdded got %v, want %v (resolved: %v)", tc.args, defaultAdded, tc.defaultAdded, resolved)
			}
		})
	}
}
