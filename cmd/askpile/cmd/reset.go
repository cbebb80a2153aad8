package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var all bool
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete a tenant's data, or everything with --all",
		Long: `Remove all documents and vectors for the selected tenant. With
--all, every tenant's data and the query history are removed and the
vector index is rebuilt empty. This cannot be undone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to delete data without --force")
			}
			return runReset(cmd.Context(), cmd, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Reset every tenant and the query history")
	cmd.Flags().BoolVar(&force, "force", false, "Confirm the deletion")

	return cmd
}

func runReset(ctx context.Context, cmd *cobra.Command, all bool) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if all {
		if err := app.orch.ResetAll(ctx); err != nil {
			return err
		}
		cmd.Println("All data removed.")
		return nil
	}

	if err := app.orch.ResetTenant(ctx, tenantID); err != nil {
		return err
	}
	cmd.Printf("All data for tenant %s removed.\n", tenantID)
	return nil
}
