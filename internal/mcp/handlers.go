// ABOUTME: MCP tool handler implementations for the docqa server
// ABOUTME: Failures are returned as tool-result errors so the client sees the message
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harper/docqa/internal/app"
	"github.com/harper/docqa/internal/loader"
	"github.com/harper/docqa/internal/logger"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	pipeline *app.Pipeline
}

// IngestDirectory handles the ingest_directory tool
func (h *Handlers) IngestDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path argument is required and must be a string"), nil
	}

	docs, err := loader.LoadDirectory(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load documents: %v", err)), nil
	}

	ingestor, err := h.pipeline.Ingestor()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := ingestor.Ingest(ctx, docs)
	if err != nil {
		logger.Error("ingest failed", "path", path, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("ingest failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"run_id":    report.RunID,
		"documents": report.Documents,
		"indexed":   report.TotalIndexed(),
		"failed":    len(report.Failures()),
	})
}

// QueryIndex handles the query_index tool
func (h *Handlers) QueryIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	k := request.GetInt("max_results", h.pipeline.Config.TopK)

	retriever, err := h.pipeline.Retriever()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := retriever.Retrieve(ctx, query, k)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"query":   query,
		"results": results,
	})
}

// AskQuestion handles the ask_question tool
func (h *Handlers) AskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	k := request.GetInt("max_results", h.pipeline.Config.TopK)

	answerer, err := h.pipeline.Answerer()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := answerer.Ask(ctx, question, k)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to answer: %v", err)), nil
	}

	return jsonResult(answer)
}

// MatchOpportunities handles the match_opportunities tool
func (h *Handlers) MatchOpportunities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keywords := stringArrayArg(request, "keywords")
	opportunities := stringArrayArg(request, "opportunities")
	if len(opportunities) == 0 {
		return mcp.NewToolResultError("opportunities argument is required and must be a non-empty array of strings"), nil
	}

	matcher, err := h.pipeline.Matcher()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	match, err := matcher.Match(ctx, keywords, opportunities)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("match failed: %v", err)), nil
	}

	return jsonResult(match)
}

// IndexStats handles the index_stats tool
func (h *Handlers) IndexStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx := h.pipeline.Index
	return jsonResult(map[string]interface{}{
		"chunks":    idx.Count(),
		"dimension": idx.Dimension(),
		"documents": idx.Documents(),
		"backend":   h.pipeline.Config.IndexBackend,
	})
}

// RemoveChunk handles the remove_chunk tool
func (h *Handlers) RemoveChunk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chunkID := request.GetString("chunk_id", "")
	documentID := request.GetString("document_id", "")
	if (chunkID == "") == (documentID == "") {
		return mcp.NewToolResultError("exactly one of chunk_id or document_id is required"), nil
	}

	if chunkID != "" {
		if err := h.pipeline.Index.Remove(ctx, chunkID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to remove chunk: %v", err)), nil
		}
		return jsonResult(map[string]interface{}{"removed": 1, "chunk_id": chunkID})
	}

	n, err := h.pipeline.Index.RemoveDocument(ctx, documentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to remove document: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"removed": n, "document_id": documentID})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// stringArrayArg reads an array-of-strings argument, also accepting a comma-separated string
func stringArrayArg(request mcp.CallToolRequest, key string) []string {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	switch val := args[key].(type) {
	case []interface{}:
		result := make([]string, 0, len(val))
		for _, item := range val {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				result = append(result, strings.TrimSpace(str))
			}
		}
		return result
	case string:
		var result []string
		for _, part := range strings.Split(val, ",") {
			if p := strings.TrimSpace(part); p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return nil
}
