// ABOUTME: Main entry point for the docqa MCP server with stdio transport
// ABOUTME: Loads configuration, opens the index, and serves all tools
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/docqa/internal/app"
	"github.com/harper/docqa/internal/config"
	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/mcp"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found", "err", err)
	}

	// stdout carries the protocol
	logger.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger.SetJSON(cfg.LogJSON)
	if cfg.RequireAPIKey() != nil {
		logger.Warn("OPENAI_API_KEY not set - embedding and answering tools will not work")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open index", "err", err)
		os.Exit(1)
	}
	defer func() { _ = pipeline.Close() }()

	server := mcp.NewServer(pipeline, version)

	logger.Info("docqa MCP server starting on stdio...")
	if err := mcp.ServeStdio(ctx, server); err != nil {
		logger.Error("server stopped", "err", err)
		_ = pipeline.Close()
		os.Exit(1)
	}
}
