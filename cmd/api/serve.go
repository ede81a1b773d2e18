package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecotrack-backend/internal/infrastructure/database"
	"ecotrack-backend/internal/interfaces/router"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", false, "Run migrations before starting")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API, the realtime server and the scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := router.CreateApp(cfg)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := app.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.New("database connection failed: " + err.Error())
	}
	log.Info().Msg("database connected")
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := database.AutoMigrate(app.DB); err != nil {
			return err
		}
	}
	if app.Rdb != nil {
		if err := app.Rdb.Ping(ctx).Err(); err != nil {
			return errors.New("redis connection failed: " + err.Error())
		}
		log.Info().Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_URL not set: token revocation and cross-instance events are disabled")
	}

	if n, err := app.Board.Rebuild(ctx); err != nil {
		log.Warn().Err(err).Msg("leaderboard rebuild failed")
	} else {
		log.Info().Int("users", n).Msg("leaderboard rebuilt")
	}

	ws := &http.Server{Addr: ":" + cfg.RealtimePort, Handler: app.Realtime.Handler(), ReadHeaderTimeout: 10 * time.Second}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("api listening")
		return app.Fiber.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.RealtimePort).Msg("realtime listening")
		if err := ws.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if app.Relay != nil {
		g.Go(func() error {
			if err := app.Relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("realtime relay stopped, shutting down")
				return err
			}
			return nil
		})
	}
	app.Scheduler.Start()
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		app.Scheduler.Stop()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = ws.Shutdown(shutdown)
		return app.Fiber.ShutdownWithTimeout(10 * time.Second)
	})
	return g.Wait()
}
