package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://stats.nba.com/stats/injuryreport", cfg.SourceURL)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.True(t, cfg.TopPlayersOnly)
	assert.Equal(t, "data/injury-alert.db", cfg.DatabasePath)
	assert.Equal(t, 4, cfg.SendConcurrency)

	assert.False(t, cfg.EmailConfigured())
	assert.False(t, cfg.PushConfigured())
	assert.False(t, cfg.ArchiveConfigured())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SOURCE_URL", "https://example.com/report")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("TOP_PLAYERS_ONLY", "false")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USERNAME", "bot")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("PUSH_GATEWAY_URL", "https://push.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/report", cfg.SourceURL)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.False(t, cfg.TopPlayersOnly)
	assert.True(t, cfg.EmailConfigured())
	assert.True(t, cfg.PushConfigured())
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "SMTP host without credentials", env: map[string]string{"SMTP_HOST": "smtp.example.com"}},
		{name: "Zero poll interval", env: map[string]string{"POLL_INTERVAL": "0s"}},
		{name: "Negative retries", env: map[string]string{"MAX_RETRIES": "-1"}},
		{name: "Zero send concurrency", env: map[string]string{"SEND_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_RETRIES", "many")
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("TOP_PLAYERS_ONLY", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.True(t, cfg.TopPlayersOnly)
}
