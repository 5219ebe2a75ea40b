// ABOUTME: Tests for MCP tool handlers over an in-memory pipeline
// ABOUTME: Drives each tool with CallToolRequest values and inspects the JSON results
package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/docqa/internal/app"
	"github.com/harper/docqa/internal/config"
	"github.com/harper/docqa/internal/llm"
	"github.com/harper/docqa/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

type stubGenerator struct {
	reply string
}

func (s *stubGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	return s.reply, nil
}

func (s *stubGenerator) GenerateStructured(ctx context.Context, system, user, name string, out any) (string, error) {
	return s.reply, json.Unmarshal([]byte(s.reply), out)
}

func newHandlers(t *testing.T, reply string) *Handlers {
	t.Helper()
	cfg := config.Default()
	cfg.IndexBackend = storage.BackendMemory
	cfg.ChunkSize = 200
	cfg.ChunkOverlap = 10
	cfg.RetryDelay = 0

	idx, err := storage.Open(context.Background(), cfg.IndexOptions())
	if err != nil {
		t.Fatal(err)
	}
	p, err := app.New(cfg, idx, llm.NewHashingEmbedder(128), &stubGenerator{reply: reply})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })

	server := mcpserver.NewMCPServer("docqa-test", "0.0.0")
	return RegisterTools(server, p)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func docDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"cats.txt": "The cat sat on the mat. Cats like warm mats.",
		"tax.txt":  "Quarterly tax filings are due each quarter.",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestIngestQueryStatsRemove(t *testing.T) {
	ctx := context.Background()
	h := newHandlers(t, "unused")

	res, _ := h.IngestDirectory(ctx, call(map[string]any{"path": docDir(t)}))
	if res.IsError {
		t.Fatalf("ingest_directory error: %s", resultText(t, res))
	}
	var ingest struct {
		Indexed int `json:"indexed"`
		Failed  int `json:"failed"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &ingest); err != nil {
		t.Fatal(err)
	}
	if ingest.Indexed != 2 || ingest.Failed != 0 {
		t.Errorf("indexed/failed = %d/%d, want 2/0", ingest.Indexed, ingest.Failed)
	}

	res, _ = h.QueryIndex(ctx, call(map[string]any{"query": "cat on a mat", "max_results": float64(1)}))
	if res.IsError {
		t.Fatalf("query_index error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "cats.txt_chunk1") {
		t.Errorf("query result missing cats chunk: %s", resultText(t, res))
	}

	res, _ = h.IndexStats(ctx, call(nil))
	var stats struct {
		Chunks    int            `json:"chunks"`
		Dimension int            `json:"dimension"`
		Documents map[string]int `json:"documents"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Chunks != 2 || stats.Dimension != 128 || stats.Documents["tax.txt"] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	res, _ = h.RemoveChunk(ctx, call(map[string]any{"document_id": "tax.txt"}))
	if res.IsError {
		t.Fatalf("remove_chunk error: %s", resultText(t, res))
	}
	res, _ = h.RemoveChunk(ctx, call(map[string]any{"chunk_id": "tax.txt_chunk1"}))
	if !res.IsError {
		t.Error("removing an already removed chunk should fail")
	}
}

func TestAskQuestion(t *testing.T) {
	ctx := context.Background()
	h := newHandlers(t, "On the mat.")

	if res, _ := h.IngestDirectory(ctx, call(map[string]any{"path": docDir(t)})); res.IsError {
		t.Fatalf("ingest_directory error: %s", resultText(t, res))
	}

	res, _ := h.AskQuestion(ctx, call(map[string]any{"question": "Where did the cat sit?"}))
	if res.IsError {
		t.Fatalf("ask_question error: %s", resultText(t, res))
	}
	var answer struct {
		Answer  string `json:"answer"`
		Sources []any  `json:"sources"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &answer); err != nil {
		t.Fatal(err)
	}
	if answer.Answer != "On the mat." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if len(answer.Sources) != 2 {
		t.Errorf("got %d sources, want TOP_K=2", len(answer.Sources))
	}
}

func TestMatchOpportunities(t *testing.T) {
	h := newHandlers(t, `{"answer":"","top_match":"Bridge repair","suggested_search_query":"bridge steel","summary":"Steel work"}`)

	res, _ := h.MatchOpportunities(context.Background(), call(map[string]any{
		"keywords":      "steel, bridge",
		"opportunities": []interface{}{"Road paving", "Bridge repair"},
	}))
	if res.IsError {
		t.Fatalf("match_opportunities error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), `"top_match":"Bridge repair"`) {
		t.Errorf("unexpected match: %s", resultText(t, res))
	}
}

func TestArgumentErrors(t *testing.T) {
	ctx := context.Background()
	h := newHandlers(t, "unused")

	tests := []struct {
		name string
		run  func() (*mcp.CallToolResult, error)
	}{
		{"ingest without path", func() (*mcp.CallToolResult, error) { return h.IngestDirectory(ctx, call(map[string]any{})) }},
		{"ingest missing dir", func() (*mcp.CallToolResult, error) {
			return h.IngestDirectory(ctx, call(map[string]any{"path": filepath.Join(t.TempDir(), "nope")}))
		}},
		{"query without text", func() (*mcp.CallToolResult, error) { return h.QueryIndex(ctx, call(map[string]any{})) }},
		{"query with zero k", func() (*mcp.CallToolResult, error) {
			return h.QueryIndex(ctx, call(map[string]any{"query": "x", "max_results": float64(0)}))
		}},
		{"ask without question", func() (*mcp.CallToolResult, error) { return h.AskQuestion(ctx, call(map[string]any{})) }},
		{"match without opportunities", func() (*mcp.CallToolResult, error) {
			return h.MatchOpportunities(ctx, call(map[string]any{"keywords": []interface{}{"a"}}))
		}},
		{"remove with both ids", func() (*mcp.CallToolResult, error) {
			return h.RemoveChunk(ctx, call(map[string]any{"chunk_id": "a", "document_id": "b"}))
		}},
		{"remove with neither id", func() (*mcp.CallToolResult, error) { return h.RemoveChunk(ctx, call(map[string]any{})) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.run()
			if err != nil {
				t.Fatalf("handler returned protocol error: %v", err)
			}
			if !res.IsError {
				t.Errorf("expected tool-result error, got %s", resultText(t, res))
			}
		})
	}
}
