package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 4, cfg.Game.MinPlayers)
	assert.Equal(t, 12, cfg.Game.MaxPlayers)
	assert.Equal(t, 12*time.Hour, cfg.Game.PhaseDuration)
	assert.Equal(t, "mongo", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Lock.Backend)
	assert.Equal(t, time.Minute, cfg.AutoPhase.Interval)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Models.Narration)
	assert.False(t, cfg.AI.IsEnabled())
	assert.Equal(t, 2*time.Minute, cfg.Game.NarrativeTimeout)
	assert.False(t, cfg.HTTP.TrustProxy)
	assert.True(t, cfg.UsesDefaultJWTSecret())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_URI", "redis://cache:6379")
	t.Setenv("MIN_PLAYERS", "3")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("AUTO_PHASE_INTERVAL", "0s")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("JWT_SECRET", "deploy-secret")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Game.MinPlayers)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, time.Duration(0), cfg.AutoPhase.Interval)
	assert.True(t, cfg.AI.IsEnabled())
	assert.False(t, cfg.UsesDefaultJWTSecret())
	assert.True(t, cfg.HTTP.TrustProxy)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traitors.yaml")
	content := `
game:
  maxplayers: 8
  phaseduration: 30m
lock:
  backend: redis
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Game.MaxPlayers)
	assert.Equal(t, 30*time.Minute, cfg.Game.PhaseDuration)
	assert.Equal(t, "redis", cfg.Lock.Backend)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"min players too low", func(c *Config) { c.Game.MinPlayers = 2 }},
		{"max below min", func(c *Config) { c.Game.MaxPlayers = 3 }},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"unknown lock", func(c *Config) { c.Lock.Backend = "etcd" }},
		{"no secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"zero duration", func(c *Config) { c.Game.PhaseDuration = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestModelEndpoint(t *testing.T) {
	c := DefaultAIConfig()
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent",
		c.ModelEndpoint(c.Models.Narration))
}
