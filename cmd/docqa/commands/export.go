// ABOUTME: CLI command to export the index contents
// ABOUTME: Writes documents and chunks as YAML, JSON, or Markdown
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/docqa/internal/models"
)

var (
	exportOutput  string
	exportFormat  string
	exportVectors bool
)

// NewExportCmd creates export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export indexed chunks",
		Long: `Export every indexed chunk grouped by document.

Formats: yaml (default), json, markdown. Embedding vectors are left
out unless --vectors is given.

Examples:
  docqa export
  docqa export -f json -o index.json
  docqa export -f markdown -o index.md
  docqa export --vectors -o backup.yaml`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml", "Export format: yaml, json, markdown")
	cmd.Flags().BoolVar(&exportVectors, "vectors", false, "Include embedding vectors")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	switch exportFormat {
	case "yaml", "json", "markdown", "md":
	default:
		return models.InvalidConfig("unknown export format %q (use yaml, json, or markdown)", exportFormat)
	}

	pipeline, err := openPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	data := pipeline.Index.Export(exportVectors)

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput) // #nosec G304
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	switch exportFormat {
	case "json":
		err = data.WriteJSON(w)
	case "markdown", "md":
		err = data.WriteMarkdown(w)
	default:
		err = data.WriteYAML(w)
	}
	if err != nil {
		return err
	}

	if exportOutput != "" && !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d chunk(s) to %s\n", pipeline.Index.Count(), exportOutput)
	}
	return nil
}
