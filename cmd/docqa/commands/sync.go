// ABOUTME: Sync commands for the charm index backend
// ABOUTME: Provides status, now, wipe, and keys management
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/docqa/internal/storage"
	"github.com/harper/docqa/internal/storage/charmkv"
)

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization of the charm index backend.

With INDEX_BACKEND=charm the index lives in a Charm KV database that
syncs across devices linked to the same Charm account via SSH keys.
The default sqlite backend is local only and has nothing to sync.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncWipeCmd())
	cmd.AddCommand(newSyncKeysCmd())

	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s\n", cfg.IndexBackend)
			if cfg.IndexBackend != storage.BackendCharm {
				fmt.Fprintf(out, "Sync applies only to INDEX_BACKEND=charm\n")
				return nil
			}

			id, err := charmkv.UserID()
			if err != nil {
				fmt.Fprintf(out, "Status: Not connected\n")
				fmt.Fprintf(out, "Run 'docqa sync keys' to check your SSH keys\n")
				return nil
			}

			fmt.Fprintf(out, "Status: Connected\n")
			fmt.Fprintf(out, "User ID: %s\n", id)
			fmt.Fprintf(out, "Host: %s\n", cfg.CharmHost)
			fmt.Fprintf(out, "Database: %s\n", cfg.CharmDBName)
			return nil
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = pipeline.Close() }()

			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Syncing...\n")
			}
			if err := pipeline.Index.Sync(); err != nil {
				if errors.Is(err, storage.ErrSyncUnsupported) {
					return fmt.Errorf("%w (INDEX_BACKEND=%s)", err, pipeline.Config.IndexBackend)
				}
				return fmt.Errorf("sync failed: %w", err)
			}

			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Sync complete\n")
			}
			return nil
		},
	}
}

func newSyncWipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Wipe the local charm index cache",
		Long: `Completely wipe the locally cached charm index.

WARNING: This deletes all locally cached chunks. Cloud data remains
intact and is re-synced on next access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Fprintf(cmd.OutOrStdout(), "This will wipe ALL local index data!\n")
				fmt.Fprintf(cmd.OutOrStdout(), "Run with --confirm to proceed\n")
				return nil
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			charmCfg := cfg.IndexOptions().Charm
			charmCfg.AutoSync = false

			store, err := charmkv.Open(charmCfg)
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Reset(); err != nil {
				return fmt.Errorf("failed to wipe data: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Local data wiped successfully\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")

	return cmd
}

func newSyncKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List authorized SSH keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := charmkv.AuthorizedKeys()
			if err != nil {
				return fmt.Errorf("failed to get authorized keys: %w", err)
			}

			if keys == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "No authorized keys found\n")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Authorized SSH keys:\n%s\n", keys)
			return nil
		},
	}
}
