package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

var updateCmd = &cobra.Command{
	Use:   "update <path>",
	Short: "Re-index a previously indexed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <doc-id>",
	Short: "Remove a document and its chunks from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect indexed documents",
	Long:  `List indexed documents or show the chunks of one document.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get <doc-id>",
	Short: "Show document info and chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	if err := indexService.UpdateDocument(cmd.Context(), doc); err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	cmd.Printf("Updated: %s\n", doc.ID)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	if err := indexService.DeleteIndex(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted: %s\n", args[0])
	return nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	docs := indexService.Documents()
	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Chunks:  %d\n", docs[i].TotalChunks)
		cmd.Printf("    Updated: %s\n", docs[i].UpdatedAt.Format(timeLayout))
	}

	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	docID := args[0]
	chunks, err := indexService.Chunks(docID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", docID)
	cmd.Printf("  State:   %s\n", indexService.State(docID))
	cmd.Printf("  Chunks:  %d\n", len(chunks))

	width := terminalWidth(cmd.OutOrStdout())
	for _, c := range chunks {
		status := c.ModelVersion
		switch {
		case c.Corrupt:
			status = "corrupt"
		case c.Stale:
			status += ", stale"
		}
		cmd.Printf("\n  [%d] %d tokens (%s)\n", c.Index, c.TokenCount, status)
		cmd.Printf("      %s\n", snippet(c.Text, width-6))
	}
	return nil
}
