// ABOUTME: CLI command to remove chunks from the index
// ABOUTME: Deletes one chunk by id or every chunk of a document
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeDocument string

// NewRemoveCmd creates remove command
func NewRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove [chunk-id]",
		Short: "Remove a chunk or a whole document from the index",
		Long: `Remove a single chunk by id, or all chunks of a document with
--document. The change is written to the index backend immediately.

Examples:
  docqa remove report.txt_chunk3
  docqa remove --document report.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRemove,
	}

	cmd.Flags().StringVar(&removeDocument, "document", "", "Remove every chunk of this document")

	return cmd
}

func runRemove(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (removeDocument == "") {
		return fmt.Errorf("give exactly one of a chunk id or --document")
	}

	pipeline, err := openPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	if removeDocument != "" {
		n, err := pipeline.Index.RemoveDocument(cmd.Context(), removeDocument)
		if err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d chunk(s) of %s\n", n, removeDocument)
		}
		return nil
	}

	if err := pipeline.Index.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", args[0])
	}
	return nil
}
