package cmd

import (
	"github.com/spf13/cobra"

	"github.com/askpile/askpile/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), version.GetInfo())
			}
			cmd.Println(version.String())
			return nil
		},
	}
}
