// Package info holds small informational subcommands that don't warrant
// their own package.
package info

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/monotask/mono/internal/cmdutil"
)

// BinCmd returns the `mono bin` subcommand, which prints the path to the
// running binary - useful for scripts that want to invoke mono without
// relying on it being on PATH.
func BinCmd(helper *cmdutil.Helper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bin",
		Short: "Get the path to the mono binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			path, err := os.Executable()
			if err != nil {
				return base.LogError("could not get path to mono binary: %w", err)
			}
			base.UI.Output(path)
			return nil
		},
	}
	return cmd
}
