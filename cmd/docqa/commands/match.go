// ABOUTME: CLI command to match keywords against a list of opportunities
// ABOUTME: Asks the chat model for the best match, a search query, and a summary
package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	matchKeywords      []string
	matchOpportunities string
	matchCandidates    []string
)

// NewMatchCmd creates match command
func NewMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Pick the opportunity that best fits a set of keywords",
		Long: `Give the chat model your keywords and a list of opportunity names.
It returns the best match, a suggested search query, and a short
summary. When the model names nothing usable, the first opportunity
is reported.

Opportunities are read one per line from --opportunities (use - for
stdin) and/or given directly with --opportunity.

Examples:
  docqa match --keywords steel,bridge --opportunities rfps.txt
  docqa match --keywords "cloud migration" --opportunity "AWS move" --opportunity "Data center refresh"
  cat rfps.txt | docqa match --keywords hvac --opportunities - --format json`,
		Args: cobra.NoArgs,
		RunE: runMatch,
	}

	cmd.Flags().StringSliceVar(&matchKeywords, "keywords", []string{}, "Keywords to match (comma-separated)")
	cmd.Flags().StringVar(&matchOpportunities, "opportunities", "", "File with one opportunity name per line (- for stdin)")
	cmd.Flags().StringArrayVar(&matchCandidates, "opportunity", []string{}, "Opportunity name (repeatable)")

	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	keywords := splitList(matchKeywords)
	if len(keywords) == 0 {
		return fmt.Errorf("--keywords is required")
	}

	opportunities := append([]string{}, matchCandidates...)
	if matchOpportunities != "" {
		var r io.Reader = cmd.InOrStdin()
		if matchOpportunities != "-" {
			f, err := os.Open(matchOpportunities) // #nosec G304
			if err != nil {
				return fmt.Errorf("reading opportunities: %w", err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}
		lines, err := readLines(r)
		if err != nil {
			return fmt.Errorf("reading opportunities: %w", err)
		}
		opportunities = append(opportunities, lines...)
	}
	if len(opportunities) == 0 {
		return fmt.Errorf("no opportunities given; use --opportunities or --opportunity")
	}

	pipeline, err := openPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	matcher, err := pipeline.Matcher()
	if err != nil {
		return err
	}

	match, err := matcher.Match(cmd.Context(), keywords, opportunities)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), match)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Top match:              %s\n", match.TopMatch)
	fmt.Fprintf(cmd.OutOrStdout(), "Suggested search query: %s\n", match.SearchQuery)
	if match.Summary != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Summary:                %s\n", match.Summary)
	}
	return nil
}

// readLines returns the trimmed non-blank lines of r
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
