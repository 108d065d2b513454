package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, 200.0, cfg.Posts.RadiusMeters)
	assert.Equal(t, 1000, cfg.Threads.Min)
	assert.Equal(t, 9999, cfg.Threads.Max)
	assert.Equal(t, 5, cfg.Threads.RetryBudget)
	assert.Equal(t, "openstreetmap", cfg.POI.Source)
	assert.Equal(t, 300.0, cfg.POI.FetchRadiusMeters)
	assert.Equal(t, 30*24*time.Hour, cfg.POI.MaxAge())
	assert.Equal(t, 10*time.Second, cfg.POI.FetchTimeout)
	assert.True(t, cfg.POI.AsyncRefresh)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 3, cfg.Screens.MaxPerWindow)
	assert.Equal(t, 24*time.Hour, cfg.Screens.Window)
	assert.Equal(t, 24*time.Hour, cfg.Screens.Lockout)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("POST_RADIUS_METERS", "500")
	t.Setenv("POI_MAX_AGE_DAYS", "7")
	t.Setenv("POI_FETCH_TIMEOUT", "3s")
	t.Setenv("REDIS_HOST", "cache")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, 500.0, cfg.Posts.RadiusMeters)
	assert.Equal(t, 7, cfg.POI.MaxAgeDays)
	assert.Equal(t, 3*time.Second, cfg.POI.FetchTimeout)
	assert.True(t, cfg.Redis.Enabled())
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u dbname=n sslmode=disable", db.DSN())

	db.Password = "secret"
	assert.Contains(t, db.DSN(), "password=secret")

	db.URL = "postgres://x"
	assert.Equal(t, "postgres://x", db.DSN())
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Run("google without key", func(t *testing.T) {
		t.Setenv("POI_SOURCE", "google_places")
		_, err := FromViper(newViper())
		assert.Error(t, err)
	})
	t.Run("unknown source", func(t *testing.T) {
		t.Setenv("POI_SOURCE", "yelp")
		_, err := FromViper(newViper())
		assert.Error(t, err)
	})
	t.Run("empty thread range", func(t *testing.T) {
		t.Setenv("THREAD_ID_MIN", "10")
		t.Setenv("THREAD_ID_MAX", "10")
		_, err := FromViper(newViper())
		assert.Error(t, err)
	})
	t.Run("zero retry budget", func(t *testing.T) {
		t.Setenv("THREAD_ID_RETRY_BUDGET", "0")
		_, err := FromViper(newViper())
		assert.Error(t, err)
	})
	t.Run("zero screenshot limit", func(t *testing.T) {
		t.Setenv("SCREENSHOT_MAX_PER_WINDOW", "0")
		_, err := FromViper(newViper())
		assert.Error(t, err)
	})
}
