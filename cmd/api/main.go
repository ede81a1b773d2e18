package main

import (
	"os"

	"ecotrack-backend/internal/config"
	"ecotrack-backend/internal/middleware"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ecotrack",
	Short: "EcoTrack API server and tools",
	Long: `EcoTrack tracks carbon and water usage, recyclable and donation listings,
awareness posts and an eco-points leaderboard. Configuration comes from .env
and the environment.`,
	SilenceUsage: true,
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	middleware.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
