// ABOUTME: MCP tool definitions and registration for the docqa server
// ABOUTME: Defines JSON schemas for ingestion, retrieval, answering, matching, and index upkeep
package mcp

import (
	"github.com/harper/docqa/internal/app"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, pipeline *app.Pipeline) *Handlers {
	handlers := &Handlers{pipeline: pipeline}

	// 1. ingest_directory - Chunk, embed, and index every .txt file in a directory
	server.AddTool(mcp.Tool{
		Name:        "ingest_directory",
		Description: "Load every .txt file in a directory, split it into overlapping chunks, embed the chunks, and add them to the vector index. Returns a per-document ingestion report.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Directory containing plain-text documents",
				},
			},
			Required: []string{"path"},
		},
	}, handlers.IngestDirectory)

	// 2. query_index - Nearest-neighbour search over indexed chunks
	server.AddTool(mcp.Tool{
		Name:        "query_index",
		Description: "Embed a query and return the closest indexed chunks, nearest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search text",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of chunks to return (default: TOP_K)",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.QueryIndex)

	// 3. ask_question - Retrieval-augmented answer
	server.AddTool(mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question using only the most relevant indexed chunks as context. Returns the answer and its sources.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question to answer",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Number of chunks to use as context (default: TOP_K)",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskQuestion)

	// 4. match_opportunities - Pick the best opportunity for a set of keywords
	server.AddTool(mcp.Tool{
		Name:        "match_opportunities",
		Description: "Given search keywords and a list of opportunity names, pick the best match and suggest a search query and summary.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"keywords": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Keywords describing what to look for",
				},
				"opportunities": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Candidate opportunity names",
				},
			},
			Required: []string{"keywords", "opportunities"},
		},
	}, handlers.MatchOpportunities)

	// 5. index_stats - Summarize the index contents
	server.AddTool(mcp.Tool{
		Name:        "index_stats",
		Description: "Report the number of indexed chunks, the vector dimension, and chunk counts per document.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.IndexStats)

	// 6. remove_chunk - Delete a chunk or a whole document from the index
	server.AddTool(mcp.Tool{
		Name:        "remove_chunk",
		Description: "Remove a single chunk by id, or every chunk of a document. Exactly one of chunk_id or document_id must be given.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"chunk_id": map[string]interface{}{
					"type":        "string",
					"description": "Chunk id such as report.txt_chunk3",
				},
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document id (file name) whose chunks should be removed",
				},
			},
		},
	}, handlers.RemoveChunk)

	return handlers
}
