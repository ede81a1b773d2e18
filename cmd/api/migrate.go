package main

import (
	"ecotrack-backend/internal/interfaces/router"
	"ecotrack-backend/internal/infrastructure/database"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables and rebuild the leaderboard cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		app, err := router.CreateApp(cfg)
		if err != nil {
			return err
		}
		if err := database.AutoMigrate(app.DB); err != nil {
			return err
		}
		n, err := app.Board.Rebuild(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int("users", n).Msg("migrations applied")
		return nil
	},
}
