package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the tenant's recent questions and answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of entries to show")

	return cmd
}

func runHistory(ctx context.Context, cmd *cobra.Command, limit int) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	records, err := app.qa.History(ctx, tenantID, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), records)
	}

	if len(records) == 0 {
		cmd.Println("No questions asked yet.")
		return nil
	}
	for _, rec := range records {
		cmd.Printf("[%s] %s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.Question)
		cmd.Printf("  %s\n", rec.Answer)
		if len(rec.Sources) > 0 {
			cmd.Printf("  Sources: %s\n", strings.Join(rec.Sources, ", "))
		}
		if rec.Confidence != nil {
			cmd.Printf("  Confidence: %.2f\n", *rec.Confidence)
		}
		cmd.Println()
	}
	return nil
}
