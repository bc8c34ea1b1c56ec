// Package cmd wires the impact command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/isdelr/impact-be/internal/config"
	"github.com/isdelr/impact-be/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "impact",
	Short: "Impact points backend",
	Long: `impact serves the volunteering platform API: events, impact points,
streaks, coins, rewards, donations and blogs.

Run "impact serve" to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger.Init(cfg.LogLevel, cfg.IsProduction())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(pointsCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
