// ABOUTME: CLI command to answer a question from indexed documents
// ABOUTME: Retrieves context, generates an answer, and lists the sources used
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askLimit int

// NewAskCmd creates ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from your documents",
		Long: `Retrieve the chunks closest to the question, join them into a
context block, and ask the chat model to answer concisely using only
that context.

Set MAX_CONTEXT_CHARS to cap the context size; the least relevant
chunks are dropped first.

Examples:
  docqa ask "When are tax filings due?"
  docqa ask "Who owns the roadmap?" --limit 4
  docqa ask "What changed in v2?" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().IntVar(&askLimit, "limit", 0, "Number of chunks to use as context (default: TOP_K)")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	pipeline, err := openPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	k := askLimit
	if k == 0 {
		k = pipeline.Config.TopK
	}
	if err := validatePositiveInt(k, "limit"); err != nil {
		return err
	}

	answerer, err := pipeline.Answerer()
	if err != nil {
		return err
	}

	answer, err := answerer.Ask(cmd.Context(), args[0], k)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), answer)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", answer.Text)
	if quiet {
		return nil
	}

	if len(answer.Sources) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\nSources:\n")
		for _, s := range answer.Sources {
			fmt.Fprintf(cmd.OutOrStdout(), "  • %s (%.4f)\n", s.ChunkID, s.Distance)
		}
	}
	if answer.Dropped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  (%d chunk(s) dropped to fit MAX_CONTEXT_CHARS)\n", answer.Dropped)
	}
	return nil
}
