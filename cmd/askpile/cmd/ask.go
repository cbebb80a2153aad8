package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askpile/askpile/internal/qa"
)

func newAskCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question over the tenant's documents",
		Long: `Retrieve the most relevant chunks from the tenant's ingested
documents and generate an answer grounded in them. The answer cites
its source files and carries a confidence score between 0 and 1.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd, strings.Join(args, " "), topK)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of chunks to retrieve (default from config)")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, question string, topK int) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	answer, err := app.qa.Ask(ctx, tenantID, question, qa.AskOptions{TopK: topK})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), answer)
	}

	cmd.Println(answer.Answer)
	cmd.Println()
	if len(answer.Sources) > 0 {
		cmd.Printf("Sources: %s\n", strings.Join(answer.Sources, ", "))
	}
	cmd.Printf("Confidence: %.2f (%.2fs)\n", answer.Confidence, answer.ResponseTime)
	return nil
}
