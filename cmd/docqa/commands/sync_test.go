// ABOUTME: Tests for sync and mcp commands
// ABOUTME: Verifies command structure and the non-charm backend paths
package commands

import (
	"errors"
	"strings"
	"testing"

	"github.com/harper/docqa/internal/storage"
)

func TestNewSyncCmd(t *testing.T) {
	cmd := NewSyncCmd()

	if cmd.Use != "sync" {
		t.Errorf("Use = %q, want %q", cmd.Use, "sync")
	}
	if !strings.Contains(cmd.Long, "charm") {
		t.Error("Long description should mention the charm backend")
	}

	for _, name := range []string{"status", "now", "wipe", "keys"} {
		t.Run(name, func(t *testing.T) {
			for _, sub := range cmd.Commands() {
				if sub.Use == name {
					if sub.RunE == nil {
						t.Errorf("%s RunE should be set", name)
					}
					return
				}
			}
			t.Errorf("Subcommand %q not found", name)
		})
	}
}

func TestSyncStatus_NonCharmBackend(t *testing.T) {
	useOfflinePipeline(t, testConfig(t), "unused")

	out, err := runCLI(t, "sync", "status")
	if err != nil {
		t.Fatalf("sync status error = %v", err)
	}
	if !strings.Contains(out, "Backend: sqlite") || !strings.Contains(out, "only to INDEX_BACKEND=charm") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSyncNow_NonCharmBackend(t *testing.T) {
	useOfflinePipeline(t, testConfig(t), "unused")

	_, err := runCLI(t, "sync", "now")
	if !errors.Is(err, storage.ErrSyncUnsupported) {
		t.Errorf("sync now error = %v, want ErrSyncUnsupported", err)
	}
}

func TestSyncWipe_RequiresConfirm(t *testing.T) {
	out, err := runCLI(t, "sync", "wipe")
	if err != nil {
		t.Fatalf("sync wipe error = %v", err)
	}
	if !strings.Contains(out, "--confirm") {
		t.Errorf("wipe without --confirm should explain itself, got:\n%s", out)
	}
}

func TestNewMCPCmd(t *testing.T) {
	cmd := NewMCPCmd()

	if cmd.Use != "mcp" {
		t.Errorf("Use = %q, want %q", cmd.Use, "mcp")
	}
	if !strings.Contains(cmd.Example, `"args": ["mcp"]`) {
		t.Error("Example should show the Claude Desktop config")
	}
	if cmd.RunE == nil {
		t.Error("RunE should be set")
	}
}
