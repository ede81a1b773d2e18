package main

import (
	"errors"

	"ecotrack-backend/internal/auth"
	"ecotrack-backend/internal/interfaces/router"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(seedAdminCmd)
	seedAdminCmd.Flags().String("email", "", "Admin email (default ADMIN_EMAIL)")
	seedAdminCmd.Flags().String("username", "", "Admin username (default ADMIN_USERNAME)")
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin account, or promote an existing account",
	Long: `Creates an admin user from ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_USERNAME.
If a user with that email already exists it is promoted to admin and
reactivated; its password is left unchanged.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		in := auth.RegisterInput{Email: cfg.AdminEmail, Password: cfg.AdminPassword, Username: cfg.AdminUsername}
		if v, _ := cmd.Flags().GetString("email"); v != "" {
			in.Email = v
		}
		if v, _ := cmd.Flags().GetString("username"); v != "" {
			in.Username = v
		}
		if in.Email == "" {
			return errors.New("admin email is required (ADMIN_EMAIL or --email)")
		}
		app, err := router.CreateApp(cfg)
		if err != nil {
			return err
		}
		u, created, err := app.Auth.SeedAdmin(cmd.Context(), in)
		if err != nil {
			return err
		}
		log.Info().Str("user_id", u.ID.String()).Str("email", u.Email).Bool("created", created).Msg("admin ready")
		return nil
	},
}
