package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rt, err := openRuntime(opts, out, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logClose(rt.logger, rt)

			if err := rt.client.SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("sign out: %w", err)
			}
			fmt.Fprintln(out, "signed out")
			return nil
		},
	}
}
