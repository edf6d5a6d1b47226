package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_TYPE", "BATCH_WINDOW_MS", "EXCLUSION_SIZE", "RNG_SEED", "ENABLE_SCHEDULER", "GO_ENV"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "", cfg.Database.Driver, "explicitly empty variables are kept")
	assert.Equal(t, 10*time.Millisecond, cfg.Batch.Window)
	assert.Equal(t, 10, cfg.Selection.ExclusionSize)
	assert.Equal(t, int64(0), cfg.Selection.Seed)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/engdrill")
	t.Setenv("BATCH_WINDOW_MS", "25")
	t.Setenv("BATCH_FETCH_TIMEOUT_MS", "750")
	t.Setenv("RNG_SEED", "42")
	t.Setenv("ENABLE_SCHEDULER", "false")
	t.Setenv("SETTINGS_CACHE_TTL_SEC", "60")
	t.Setenv("GO_ENV", "production")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/engdrill", cfg.Database.DSN)
	assert.Equal(t, 25*time.Millisecond, cfg.Batch.Window)
	assert.Equal(t, 750*time.Millisecond, cfg.Batch.FetchTimeout)
	assert.Equal(t, int64(42), cfg.Selection.Seed)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Minute, cfg.App.SettingsCacheTTL)
	assert.True(t, cfg.IsProduction())
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("BATCH_MAX_SIZE", "lots")
	t.Setenv("ENABLE_SCHEDULER", "maybe")

	cfg := Load()
	assert.Equal(t, 100, cfg.Batch.MaxBatchSize)
	assert.True(t, cfg.Scheduler.Enabled)
}
