// ABOUTME: Builds and runs the docqa MCP server over stdio
// ABOUTME: Shared by the standalone server binary and the `docqa mcp` command
package mcp

import (
	"context"
	"fmt"

	"github.com/harper/docqa/internal/app"
	"github.com/harper/docqa/internal/logger"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// ServerName is reported to MCP clients
const ServerName = "docqa"

// NewServer creates an MCP server with every docqa tool registered
func NewServer(pipeline *app.Pipeline, version string) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(ServerName, version)
	RegisterTools(server, pipeline)
	return server
}

// ServeStdio runs server on stdin/stdout until it exits or ctx is done
func ServeStdio(ctx context.Context, server *mcpserver.MCPServer) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return nil
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
