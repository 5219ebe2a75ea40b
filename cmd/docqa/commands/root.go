// ABOUTME: Root command, global flags, and shared pipeline setup for the docqa CLI
// ABOUTME: Loads .env and config once per invocation and wires logging to --verbose/--quiet
package commands

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/docqa/internal/app"
	"github.com/harper/docqa/internal/config"
	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

// loadConfig reads --config (or DOCQA_CONFIG) plus the environment
var loadConfig = func() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if cfg.LogJSON {
		logger.SetJSON(true)
	}
	return cfg, nil
}

// openPipeline opens the configured index and services; tests swap it out
var openPipeline = func(ctx context.Context) (*app.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg)
}

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docqa",
		Short: "Question answering over your text documents",
		Long: `
██████╗  ██████╗  ██████╗ ██████╗  █████╗
██╔══██╗██╔═══██╗██╔════╝██╔═══██╗██╔══██╗
██║  ██║██║   ██║██║     ██║   ██║███████║
██║  ██║██║   ██║██║     ██║▄▄ ██║██╔══██║
██████╔╝╚██████╔╝╚██████╗╚██████╔╝██║  ██║
╚═════╝  ╚═════╝  ╚═════╝ ╚══▀▀═╝ ╚═╝  ╚═╝

docqa splits plain-text documents into overlapping chunks, embeds
them, and keeps them in a local vector index. Questions are answered
from the closest chunks only.

Configuration comes from environment variables (and .env), optionally
layered over a YAML file given with --config or DOCQA_CONFIG.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env for API keys
			_ = godotenv.Load()

			logger.SetVerbose(verbose)
			logger.SetQuiet(quiet)
			logger.SetOutput(cmd.ErrOrStderr())
			// machine-readable output gets machine-readable logs on stderr
			logger.SetJSON(outputFormat == "json")

			switch outputFormat {
			case "auto", "table", "json":
				return nil
			default:
				return models.InvalidConfig("--format must be auto, table or json, got %q", outputFormat)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, json")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overridden by environment variables)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewIngestCmd(),
		NewQueryCmd(),
		NewAskCmd(),
		NewMatchCmd(),
		NewListCmd(),
		NewRemoveCmd(),
		NewStatsCmd(),
		NewExportCmd(),
		NewSyncCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
