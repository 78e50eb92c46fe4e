// Package cli is the tillctl operator command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sangkips/tillpoint/internal/config"
	"github.com/sangkips/tillpoint/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "tillctl",
	Short: "Operator tools for a tillpoint till",
	Long: `tillctl runs maintenance tasks against the same configuration as the API server:
listing printer ports, issuing terminal tokens, checking invoice numbers for a day,
printing a test receipt and migrating the database.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		level := cfg.Log.Level
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		return logger.Setup(logger.LogConfig{
			Level:      level,
			Format:     "console",
			Output:     "stderr",
			TimeFormat: time.Kitchen,
		})
	},
}

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log := logger.WithComponent("cli")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

func commandLogger(name string) zerolog.Logger {
	return logger.WithComponent(name)
}
