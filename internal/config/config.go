package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env          string
	Port         string
	RealtimePort string
	DatabaseURL  string // "sqlite:" prefix selects the embedded driver
	RedisURL     string
	LogLevel     string

	JWTSecret string
	JWTTTL    time.Duration

	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string

	ReservationTTLRecyclable time.Duration
	ReservationTTLDonation   time.Duration // 0 means reservations never lapse
	ListingRetention         time.Duration
	SweepSchedule            string
	StatsSchedule            string
	EventsChannel            string

	AdminEmail    string
	AdminPassword string
	AdminUsername string

	AuthRatePerMinute int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("REALTIME_PORT", "8081")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RESERVATION_TTL_RECYCLABLE", "48h")
	v.SetDefault("RESERVATION_TTL_DONATION", "0")
	v.SetDefault("LISTING_RETENTION", "720h")
	v.SetDefault("SWEEP_SCHEDULE", "@every 5m")
	v.SetDefault("STATS_SCHEDULE", "@every 1m")
	v.SetDefault("EVENTS_CHANNEL", "ecotrack:events")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("AUTH_RATE_PER_MINUTE", 20)
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := v.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = v.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = v.GetString("DATABASE_URL_TEST")
	}

	cfg := &Config{
		Env:                      env,
		Port:                     v.GetString("PORT"),
		RealtimePort:             v.GetString("REALTIME_PORT"),
		DatabaseURL:              dbURL,
		RedisURL:                 v.GetString("REDIS_URL"),
		LogLevel:                 v.GetString("LOG_LEVEL"),
		JWTSecret:                v.GetString("JWT_SECRET"),
		JWTTTL:                   v.GetDuration("JWT_TTL"),
		FrontendURLEndsWith:      v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:              v.GetString("DEV_PASSWORD"),
		HealthAdminKey:           v.GetString("HEALTH_ADMIN_KEY"),
		ReservationTTLRecyclable: v.GetDuration("RESERVATION_TTL_RECYCLABLE"),
		ReservationTTLDonation:   v.GetDuration("RESERVATION_TTL_DONATION"),
		ListingRetention:         v.GetDuration("LISTING_RETENTION"),
		SweepSchedule:            v.GetString("SWEEP_SCHEDULE"),
		StatsSchedule:            v.GetString("STATS_SCHEDULE"),
		EventsChannel:            v.GetString("EVENTS_CHANNEL"),
		AdminEmail:               v.GetString("ADMIN_EMAIL"),
		AdminPassword:            v.GetString("ADMIN_PASSWORD"),
		AdminUsername:            v.GetString("ADMIN_USERNAME"),
		AuthRatePerMinute:        v.GetInt("AUTH_RATE_PER_MINUTE"),
	}
	if cfg.JWTSecret == "" {
		if env == "production" {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "ecotrack-dev-secret"
	}
	if cfg.JWTTTL <= 0 {
		return nil, errors.New("JWT_TTL must be positive")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
