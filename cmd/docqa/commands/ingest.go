// ABOUTME: CLI command to ingest a directory of text documents
// ABOUTME: Runs the chunk-embed-index pipeline and prints a per-document report
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/docqa/internal/loader"
	"github.com/harper/docqa/internal/models"
)

// NewIngestCmd creates ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Ingest a directory of .txt documents",
		Long: `Load every .txt file in a directory, split it into overlapping
chunks, embed the chunks, and add them to the vector index.

Re-ingesting a document replaces its chunks. Once every new chunk
is indexed, chunks left over from a longer earlier version are
removed. Chunks that fail are listed in the report; other chunks
and documents still get indexed. Ctrl-C stops issuing new embedding requests and keeps
what was already indexed.

Examples:
  docqa ingest ./docs
  CHUNK_SIZE=500 CHUNK_OVERLAP=50 docqa ingest ./docs
  docqa ingest ./docs --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	docs, err := loader.LoadDirectory(args[0])
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No .txt documents found in %s\n", args[0])
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	pipeline, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	ingestor, err := pipeline.Ingestor()
	if err != nil {
		return err
	}

	report, ingestErr := ingestor.Ingest(ctx, docs)
	if report != nil {
		if err := printIngestReport(cmd, report); err != nil {
			return err
		}
	}
	if ingestErr != nil {
		if errors.Is(ingestErr, context.Canceled) {
			return fmt.Errorf("ingest interrupted: %w", ingestErr)
		}
		return ingestErr
	}

	if failures := report.Failures(); len(failures) > 0 {
		return fmt.Errorf("%d of %d chunks failed to index", len(failures), report.TotalChunks())
	}
	return nil
}

func printIngestReport(cmd *cobra.Command, report *models.IngestReport) error {
	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), report)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DOCUMENT\tSTATE\tCHUNKS\tINDEXED\tFAILED\tPRUNED\n")
	fmt.Fprintf(w, "--------\t-----\t------\t-------\t------\t------\n")
	for _, doc := range report.Documents {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			truncate(doc.DocumentID, 40), doc.State, doc.ChunkCount, doc.Indexed, len(doc.Failures), doc.Pruned)
	}
	_ = w.Flush()

	for _, f := range report.Failures() {
		fmt.Fprintf(cmd.ErrOrStderr(), "  ✗ %s (%s): %s\n", f.ChunkID, f.Stage, f.Message)
	}

	if !quiet && !report.FinishedAt.IsZero() {
		fmt.Fprintf(cmd.OutOrStdout(), "\nIndexed %d/%d chunk(s) from %d document(s) in %s\n",
			report.TotalIndexed(), report.TotalChunks(), len(report.Documents),
			report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
	return nil
}
