package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage a tenant's documents",
	}

	cmd.AddCommand(newDocumentsListCmd())
	cmd.AddCommand(newDocumentsDeleteCmd())
	return cmd
}

func newDocumentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tenant's documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocumentsList(cmd.Context(), cmd)
		},
	}
}

func runDocumentsList(ctx context.Context, cmd *cobra.Command) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	docs, err := app.store.ListDocuments(ctx, tenantID)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents.")
		return nil
	}
	for _, doc := range docs {
		cmd.Printf("%6d  %-10s %6d chunks  %8d bytes  %s\n",
			doc.ID, doc.Status, doc.ChunkCount, doc.ByteSize, doc.Filename)
	}
	return nil
}

func newDocumentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete one document and its vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			return runDocumentsDelete(cmd.Context(), cmd, docID)
		},
	}
}

func runDocumentsDelete(ctx context.Context, cmd *cobra.Command, docID int64) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	result, err := app.orch.Delete(ctx, tenantID, docID)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), result)
	}

	if result.SQLDeleted > 0 || result.VectorChunksDeleted > 0 {
		cmd.Printf("Deleted document %d (%d chunks removed)\n", docID, result.VectorChunksDeleted)
	} else {
		cmd.Printf("Document %d not found; nothing to delete\n", docID)
	}
	return nil
}
