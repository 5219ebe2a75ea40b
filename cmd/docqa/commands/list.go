// ABOUTME: CLI command to list indexed documents and chunks
// ABOUTME: Shows chunk counts per document, or the chunks of one document
package commands

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/docqa/internal/models"
)

var listDocument string

type documentInfo struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// NewListCmd creates list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		Long: `List the documents in the vector index with their chunk counts.

With --document, list that document's chunks in index order instead.

Examples:
  docqa list
  docqa list --document report.txt
  docqa list --format json`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().StringVar(&listDocument, "document", "", "Show the chunks of one document")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	pipeline, err := openPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	if listDocument != "" {
		var chunks []models.IndexEntry
		for _, e := range pipeline.Index.Entries() {
			if e.DocumentID == listDocument {
				e.Embedding = nil
				chunks = append(chunks, e)
			}
		}
		return printChunks(cmd, chunks)
	}

	counts := pipeline.Index.Documents()
	docs := make([]documentInfo, 0, len(counts))
	for id, n := range counts {
		docs = append(docs, documentInfo{DocumentID: id, Chunks: n})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocumentID < docs[j].DocumentID })

	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), docs)
	}

	if len(docs) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No documents indexed\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DOCUMENT\tCHUNKS\n")
	fmt.Fprintf(w, "--------\t------\n")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%d\n", truncate(d.DocumentID, 50), d.Chunks)
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d document(s), %d chunk(s)\n", len(docs), pipeline.Index.Count())
	}
	return nil
}

func printChunks(cmd *cobra.Command, chunks []models.IndexEntry) error {
	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), chunks)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document %q: %w", listDocument, models.ErrNotFound)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CHUNK\tUPDATED\tTEXT\n")
	fmt.Fprintf(w, "-----\t-------\t----\n")
	for _, c := range chunks {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, formatTime(c.UpdatedAt), truncate(oneLine(c.Text), 60))
	}
	return w.Flush()
}
