package cmd

import "github.com/spf13/cobra"

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(cmd *cobra.Command, args []string) error {
			user, err := a.client.DescribeUser(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(user)
		}),
	}
}
