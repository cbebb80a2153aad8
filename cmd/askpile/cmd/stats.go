package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/askpile/askpile/internal/ingest"
	"github.com/askpile/askpile/internal/store"
)

// statsOutput combines tenant corpus stats with global query stats.
type statsOutput struct {
	Tenant       *ingest.Stats     `json:"tenant"`
	Queries      *store.QueryStats `json:"queries"`
	Capabilities *capabilityStatus `json:"capabilities,omitempty"`
}

// capabilityStatus reports whether the model backends are reachable.
type capabilityStatus struct {
	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingAvailable  bool   `json:"embedding_available"`
	GenerationModel     string `json:"generation_model"`
	GenerationAvailable bool   `json:"generation_available"`
}

func newStatsCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and query statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), cmd, verbose)
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Also probe the embedding and generation backends")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, verbose bool) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	tenantStats, err := app.orch.Stats(ctx, tenantID)
	if err != nil {
		return err
	}
	queryStats, err := app.store.Stats(ctx)
	if err != nil {
		return err
	}

	out := statsOutput{Tenant: tenantStats, Queries: queryStats}
	if verbose {
		out.Capabilities = &capabilityStatus{
			EmbeddingModel:      app.embedder.ModelName(),
			EmbeddingAvailable:  app.embedder.Available(ctx),
			GenerationModel:     app.gen.ModelName(),
			GenerationAvailable: app.gen.Available(ctx),
		}
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), out)
	}

	cmd.Printf("Tenant %s:\n", tenantStats.TenantID)
	cmd.Printf("  Documents: %d\n", tenantStats.Documents)
	cmd.Printf("  Chunks:    %d\n", tenantStats.Chunks)
	cmd.Println("Queries (all tenants):")
	cmd.Printf("  Total:             %d\n", queryStats.TotalQueries)
	cmd.Printf("  Unique tenants:    %d\n", queryStats.UniqueTenants)
	cmd.Printf("  Avg response time: %.2fs\n", queryStats.AvgResponseTime)
	if out.Capabilities != nil {
		cmd.Println("Capabilities:")
		cmd.Printf("  Embeddings: %s (available: %v)\n",
			out.Capabilities.EmbeddingModel, out.Capabilities.EmbeddingAvailable)
		cmd.Printf("  Generation: %s (available: %v)\n",
			out.Capabilities.GenerationModel, out.Capabilities.GenerationAvailable)
	}
	return nil
}
