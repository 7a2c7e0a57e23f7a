package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gemini-replica/internal/config"
	"gemini-replica/internal/logging"
)

var (
	// Global flags
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Gemini replica session server",
	Long: `Serves the chat session state (theme, mock OTP sign-in, chat threads and
simulated assistant replies) over HTTP and Server-Sent Events, persisting a
snapshot between runs.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = logging.New(cfg.LogLevel, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect or clear the persisted session snapshot",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored snapshot as JSON",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotShow,
}

var snapshotResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored snapshot so the next start uses defaults",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotReset,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotResetCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
