package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download the Playwright driver and Chromium",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.install(cmd.OutOrStdout()); err != nil {
				return &exitError{code: ExitFailure, err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Chromium is ready.")
			return nil
		},
	}
}
