package cmd

import (
	"github.com/spf13/cobra"
)

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(cmd *cobra.Command, args []string) error {
			a.client.Logout()
			if err := a.store.Delete(cmd.Context()); err != nil {
				return err
			}
			return a.printJSON(map[string]string{"logged_out": a.client.Email()})
		}),
	}
}
