package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newViper(nil))
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "8081", cfg.RealtimePort)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 48*time.Hour, cfg.ReservationTTLRecyclable)
	assert.Equal(t, time.Duration(0), cfg.ReservationTTLDonation)
	assert.Equal(t, 30*24*time.Hour, cfg.ListingRetention)
	assert.Equal(t, "@every 5m", cfg.SweepSchedule)
	assert.Equal(t, 20, cfg.AuthRatePerMinute)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestFromViper_DatabaseURLPerEnv(t *testing.T) {
	urls := map[string]interface{}{
		"DATABASE_URL_DEV":  "sqlite:dev.db",
		"DATABASE_URL_PROD": "postgres://prod",
		"DATABASE_URL_TEST": "sqlite::memory:",
		"JWT_SECRET":        "s3cret",
	}
	for env, want := range map[string]string{"development": "sqlite:dev.db", "production": "postgres://prod", "test": "sqlite::memory:"} {
		values := map[string]interface{}{"APP_ENV": env}
		for k, v := range urls {
			values[k] = v
		}
		cfg, err := fromViper(newViper(values))
		require.NoError(t, err)
		assert.Equal(t, want, cfg.DatabaseURL, env)
	}
}

func TestFromViper_ProductionNeedsSecret(t *testing.T) {
	_, err := fromViper(newViper(map[string]interface{}{"APP_ENV": "production"}))
	assert.Error(t, err)
}

func TestFromViper_Durations(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]interface{}{
		"RESERVATION_TTL_DONATION": "6h",
		"JWT_TTL":                  "15m",
	}))
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, cfg.ReservationTTLDonation)
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
}
