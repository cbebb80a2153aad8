package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/askpile/askpile/internal/ingest"
)

func newCheckCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check consistency between the metadata store and the vector index",
		Long: `Scan for documents stuck in pending, indexed documents without
vectors, and vectors without a document. With --repair the
inconsistencies are removed; affected documents can be re-ingested.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd, repair)
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Remove the inconsistencies found")

	return cmd
}

func runCheck(ctx context.Context, cmd *cobra.Command, repair bool) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	checker := ingest.NewChecker(app.store, app.index, 0, nil)
	report, err := checker.Check(ctx)
	if err != nil {
		return err
	}

	repaired := 0
	if repair && !report.Consistent() {
		repaired, err = checker.Repair(ctx, report)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), report)
	}

	if report.Consistent() {
		cmd.Printf("Consistent: %d documents, %d in the vector index\n",
			report.Documents, report.VectorDocs)
		return nil
	}

	for _, issue := range report.Issues {
		cmd.Printf("%-16s tenant=%s document=%d  %s\n",
			issue.Kind, issue.TenantID, issue.DocumentID, issue.Detail)
	}
	if repair {
		cmd.Printf("Repaired %d of %d issues\n", repaired, len(report.Issues))
	} else {
		cmd.Printf("%d issues found; run with --repair to fix\n", len(report.Issues))
	}
	return nil
}
