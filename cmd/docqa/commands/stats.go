// ABOUTME: CLI command to summarize the vector index
// ABOUTME: Reports backend, dimension, and document and chunk counts
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

type indexStats struct {
	Backend   string `json:"backend"`
	Dimension int    `json:"dimension"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	ChunkSize int    `json:"chunk_size"`
	Overlap   int    `json:"chunk_overlap"`
}

// NewStatsCmd creates stats command
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Show the index backend, vector dimension, and how many documents
and chunks are indexed, along with the active chunking settings.`,
		Args: cobra.NoArgs,
		RunE: runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	pipeline, err := openPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	stats := indexStats{
		Backend:   pipeline.Config.IndexBackend,
		Dimension: pipeline.Index.Dimension(),
		Documents: len(pipeline.Index.Documents()),
		Chunks:    pipeline.Index.Count(),
		ChunkSize: pipeline.Chunker.ChunkSize(),
		Overlap:   pipeline.Chunker.ChunkOverlap(),
	}

	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), stats)
	}

	dim := "unset"
	if stats.Dimension > 0 {
		dim = fmt.Sprintf("%d", stats.Dimension)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend:    %s\n", stats.Backend)
	fmt.Fprintf(out, "Dimension:  %s\n", dim)
	fmt.Fprintf(out, "Documents:  %d\n", stats.Documents)
	fmt.Fprintf(out, "Chunks:     %d\n", stats.Chunks)
	fmt.Fprintf(out, "Chunking:   %d chars, %d overlap\n", stats.ChunkSize, stats.Overlap)
	return nil
}
