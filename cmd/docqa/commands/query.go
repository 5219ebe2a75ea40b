// ABOUTME: CLI command to search the vector index
// ABOUTME: Embeds the query and prints the nearest chunks with their distances
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var queryLimit int

// NewQueryCmd creates query command
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Find the chunks closest to a query",
		Long: `Embed the query and return the nearest indexed chunks by
Euclidean distance, closest first. Equal distances keep the order
the chunks were first indexed in.

Examples:
  docqa query "quarterly revenue"
  docqa query "contract renewal" --limit 5
  docqa query "onboarding" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runQuery,
	}

	cmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum number of chunks (default: TOP_K)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	pipeline, err := openPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	k := queryLimit
	if k == 0 {
		k = pipeline.Config.TopK
	}
	if err := validatePositiveInt(k, "limit"); err != nil {
		return err
	}

	retriever, err := pipeline.Retriever()
	if err != nil {
		return err
	}

	results, err := retriever.Retrieve(cmd.Context(), args[0], k)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), results)
	}

	if len(results) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Index is empty\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tDISTANCE\tCHUNK\tTEXT\n")
	fmt.Fprintf(w, "-\t--------\t-----\t----\n")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", i+1, r.Distance, r.ChunkID, truncate(oneLine(r.Text), 60))
	}
	return w.Flush()
}
