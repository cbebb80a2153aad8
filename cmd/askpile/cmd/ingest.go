package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/askpile/askpile/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest documents for a tenant",
		Long: `Extract, chunk, embed, and index one or more documents so they can
be queried with 'askpile ask'. Plain text formats (.txt, .md, .log,
.csv) are supported; unknown extensions are treated as plain text.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, args)
		},
	}
}

func runIngest(ctx context.Context, cmd *cobra.Command, paths []string) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	results := make([]*ingest.Result, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		result, err := app.orch.Ingest(ctx, tenantID, filepath.Base(path), data)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		results = append(results, result)

		if !jsonOutput {
			cmd.Printf("Ingested %s: document %d, %d chunks\n",
				result.Filename, result.DocumentID, result.ChunkCount)
		}
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), results)
	}
	return nil
}
