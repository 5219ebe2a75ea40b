// ABOUTME: Shared test helpers for CLI commands
// ABOUTME: Runs the root command in-process against a temp sqlite index and offline services
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/harper/docqa/internal/app"
	"github.com/harper/docqa/internal/config"
	"github.com/harper/docqa/internal/llm"
	"github.com/harper/docqa/internal/storage"
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

// testConfig returns a config pointing at a fresh sqlite file
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.IndexBackend = storage.BackendSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "index.db")
	cfg.ChunkSize = 200
	cfg.ChunkOverlap = 10
	cfg.RetryDelay = 0
	return cfg
}

// useOfflinePipeline points every command at cfg with the hashing embedder and a canned reply
func useOfflinePipeline(t *testing.T, cfg *config.Config, reply string) {
	t.Helper()
	origOpen, origLoad := openPipeline, loadConfig
	t.Cleanup(func() { openPipeline, loadConfig = origOpen, origLoad })

	loadConfig = func() (*config.Config, error) { return cfg, nil }
	openPipeline = func(ctx context.Context) (*app.Pipeline, error) {
		idx, err := storage.Open(ctx, cfg.IndexOptions())
		if err != nil {
			return nil, err
		}
		return app.New(cfg, idx, llm.NewHashingEmbedder(128), &stubGenerator{reply: reply})
	}
}

// runCLI executes the root command with args and returns stdout; stderr goes to the test log
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, stderr, err := runCLIOutputs(t, args...)
	if stderr != "" {
		t.Logf("stderr:\n%s", stderr)
	}
	return stdout, err
}

// runCLIOutputs executes the root command with args and returns stdout and stderr separately
func runCLIOutputs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeDocs creates a directory of .txt documents
func writeDocs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

var sampleDocs = map[string]string{
	"cats.txt": "The cat sat on the mat. Cats like warm mats in the afternoon sun.",
	"tax.txt":  "Quarterly tax filings are due at the end of each quarter.",
}
