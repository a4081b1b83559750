package bootstrap

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mediafetch/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SERVICES", "reaper")
	t.Setenv("STORAGE_ROOT", "  ")
	t.Setenv("ORCHESTRATOR_MAX_CONCURRENT_JOBS", "0")
	t.Setenv("REAPER_INTERVAL", "1s")
	t.Setenv("REDIS_URI", "redis://cache:6379/2")
	t.Setenv("CACHE_INFO_ENABLED", "false")
	t.Setenv("CACHE_REDIS_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "reaper", cfg.Services)
	assert.Equal(t, "downloads", cfg.Storage.Root)
	assert.Equal(t, 1, cfg.Orchestrator.MaxConcurrentJobs)
	assert.Equal(t, 5*time.Second, cfg.Reaper.Interval)
	assert.Equal(t, "redis://cache:6379/2", cfg.Redis.URI)
	assert.False(t, cfg.Cache.RedisEnabled, "redis tier follows the info cache switch")
}

func TestLoadConfig_BadDuration(t *testing.T) {
	t.Setenv("ORCHESTRATOR_JOB_TIMEOUT", "soon")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidateServiceConfig(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: ""}))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: "http,scheduler"}))
	require.NoError(t, ValidateServiceConfig(&config.AppConfig{Services: "http"}))
}

func TestGetEnabledServices(t *testing.T) {
	assert.Empty(t, GetEnabledServices(nil))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Equal(t, []string{"http", "reaper"}, GetEnabledServices(&config.AppConfig{Services: " reaper , http "}))
}
