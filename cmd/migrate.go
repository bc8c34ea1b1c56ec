package cmd

import (
	"fmt"

	"github.com/isdelr/impact-be/internal/database"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var downSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Applies every pending migration to DATABASE_PATH.

Use --down N to roll back the last N migrations instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer db.Close()

		if downSteps > 0 {
			if err := database.Rollback(db, downSteps); err != nil {
				return err
			}
			log.Info().Int("steps", downSteps).Str("path", cfg.DatabasePath).Msg("Migrations rolled back")
			return nil
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info().Str("path", cfg.DatabasePath).Msg("Migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&downSteps, "down", 0, "Roll back this many migrations")
}
