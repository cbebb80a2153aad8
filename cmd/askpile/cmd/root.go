// Package cmd provides the CLI commands for askpile.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/askpile/askpile/internal/logging"
	"github.com/askpile/askpile/pkg/version"
)

// Persistent flags shared by all commands.
var (
	configPath string
	dataDir    string
	tenantID   string
	debugMode  bool
	jsonOutput bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the askpile CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "askpile",
		Short: "Ask questions over your own documents",
		Long: `Askpile is a local question answering tool. Ingest plain text
documents, then ask questions and get answers grounded in their
content, with the source files cited.

Documents and questions are scoped to a tenant; tenants never see
each other's data.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("askpile version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: askpile.yaml in the data directory)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory (default: ~/.askpile/data)")
	cmd.PersistentFlags().StringVar(&tenantID, "tenant", "default", "Tenant the command operates on")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.askpile/logs/")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRunE = teardownLogging

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newDocumentsCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)

	if debugMode {
		slog.Debug("debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	// Best effort; a missing .env is the normal case
	_ = godotenv.Load()
	return NewRootCmd().Execute()
}
