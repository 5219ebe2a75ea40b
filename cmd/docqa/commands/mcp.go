// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Exposes ingestion, retrieval, and question answering to LLM agents via stdio
package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs docqa as an MCP (Model Context Protocol) server so LLM agents
can ingest directories, query the index, and ask questions via stdio.

Configure in Claude Desktop's config file to enable the tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  docqa mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "docqa": {
  #       "command": "docqa",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Warn("error closing index", "err", err)
		}
	}()

	if pipeline.Embedder == nil {
		logger.Warn("OPENAI_API_KEY not set - embedding and answering tools will fail")
	}

	server := mcp.NewServer(pipeline, versionInfo.Version)
	logger.Info("docqa MCP server starting on stdio", "backend", pipeline.Config.IndexBackend, "chunks", pipeline.Index.Count())

	return mcp.ServeStdio(ctx, server)
}
