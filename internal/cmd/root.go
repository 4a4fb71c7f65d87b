// Package cmd holds the root cobra command for mono.
package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/monotask/mono/internal/cmd/info"
	"github.com/monotask/mono/internal/cmd/run"
	"github.com/monotask/mono/internal/cmdutil"
	"github.com/monotask/mono/internal/process"
	"github.com/monotask/mono/internal/signals"
)

// RunWithArgs runs mono with the given arguments - which should not
// include the binary name itself - and returns the process exit code.
func RunWithArgs(args []string, monoVersion string) int {
	signalWatcher := signals.NewWatcher()
	helper := cmdutil.NewHelper(monoVersion)
	root := getCmd(helper)
	resolvedArgs := resolveArgs(root, args)
	defer helper.Cleanup(root.Flags())
	root.SetArgs(resolvedArgs)

	doneCh := make(chan struct{})
	var execErr error
	go func() {
		execErr = root.Execute()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		signalWatcher.Close()
		var exitErr *cmdutil.ExitError
		if errors.As(execErr, &exitErr) {
			return exitErr.ExitCode
		}
		var childExit *process.ChildExit
		if errors.As(execErr, &childExit) {
			return childExit.ExitCode
		}
		if execErr != nil {
			return 1
		}
		return 0
	case <-signalWatcher.Done():
		return 1
	}
}

const defaultCmd = "run"

// resolveArgs prepends the default subcommand ("run") when the first
// argument doesn't resolve to a known subcommand or flag, so `mono
// build test` works without spelling out `mono run build test`.
func resolveArgs(root *cobra.Command, args []string) []string {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" || arg == "--version" || arg == "completion" {
			return args
		}
	}
	cmd, _, err := root.Traverse(args)
	if err != nil {
		return args
	} else if cmd.Name() == root.Name() {
		return append([]string{defaultCmd}, args...)
	}
	return args
}

func getCmd(helper *cmdutil.Helper) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "mono",
		Short:            "mono runs tasks across a monorepo's packages, caching what it can",
		TraverseChildren: true,
		Version:          helper.MonoVersion,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	helper.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(run.GetCmd(helper))
	cmd.AddCommand(info.BinCmd(helper))

	return cmd
}
