package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ambiyansyah-risyal/visualping"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printJSON(visualping.GetVersionInfo())
		},
	}
}
