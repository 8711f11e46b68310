package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "natter.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
bot:
  id: U0BOT
  name: natterbot
  debug: true
  emoji: ":robot_face:"
  workers: 4
  poll_interval: 250ms
  keepalive_interval: 10m
transport:
  redis_url: redis://redis:6379/2
  workspace: acme
plugins:
  enabled: [ping, help]
  replies:
    - pattern: "^version$"
      reply: "v1.2.3"
      description: "shows the running version"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "U0BOT", config.Bot.ID)
	assert.Equal(t, "natterbot", config.Bot.Name)
	assert.True(t, config.Bot.Debug)
	assert.Equal(t, ":robot_face:", config.Bot.Emoji)
	assert.Equal(t, 4, config.Bot.Workers)
	assert.Equal(t, 250*time.Millisecond, config.Bot.PollInterval)
	assert.Equal(t, 10*time.Minute, config.Bot.KeepaliveInterval)
	assert.Equal(t, "redis://redis:6379/2", config.Transport.RedisURL)
	assert.Equal(t, "acme", config.Transport.Workspace)
	assert.Equal(t, []string{"ping", "help"}, config.Plugins.Enabled)
	require.Len(t, config.Plugins.Replies, 1)
	assert.Equal(t, "respond_to", config.Plugins.Replies[0].Category)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	configPath := writeConfig(t, "bot:\n  id: U0BOT\n")

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, DefaultName, config.Bot.Name)
	assert.Equal(t, DefaultWorkers, config.Bot.Workers)
	assert.Equal(t, DefaultPollInterval, config.Bot.PollInterval)
	assert.Equal(t, DefaultKeepaliveInterval, config.Bot.KeepaliveInterval)
	assert.Equal(t, DefaultHealthPort, config.Bot.HealthPort)
	assert.Equal(t, []string{"slackbot"}, config.Bot.ReservedNames)
	assert.Equal(t, DefaultRedisURL, config.Transport.RedisURL)
	assert.Equal(t, DefaultWorkspace, config.Transport.Workspace)
	assert.Empty(t, config.Plugins.Enabled)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/natter.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `bot:
  - this is invalid
    yaml syntax
`)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, "bot:\n  id: U0BOT\n  poll_interval: soon\n")

	_, err := Load(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `bot:
  id: UFILE
  name: filebot
transport:
  redis_url: redis://file:6379
  workspace: file-ws
`)

	t.Setenv("REDIS_URL", "redis://env:6379")
	t.Setenv("NATTER_WORKSPACE", "env-ws")
	t.Setenv("NATTER_BOT_ID", "UENV")
	t.Setenv("NATTER_BOT_NAME", "envbot")
	t.Setenv("NATTER_DEBUG", "true")

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "redis://env:6379", config.Transport.RedisURL)
	assert.Equal(t, "env-ws", config.Transport.Workspace)
	assert.Equal(t, "UENV", config.Bot.ID)
	assert.Equal(t, "envbot", config.Bot.Name)
	assert.True(t, config.Bot.Debug)
}

func TestFromEnv(t *testing.T) {
	t.Run("requires a bot id", func(t *testing.T) {
		t.Setenv("NATTER_BOT_ID", "")
		config, err := FromEnv()
		assert.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "bot.id is required")
	})

	t.Run("builds from environment", func(t *testing.T) {
		t.Setenv("NATTER_BOT_ID", "U9")
		config, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, "U9", config.Bot.ID)
		assert.Equal(t, DefaultWorkspace, config.Transport.Workspace)
	})

	t.Run("rejects malformed debug flag", func(t *testing.T) {
		t.Setenv("NATTER_BOT_ID", "U9")
		t.Setenv("NATTER_DEBUG", "maybe")
		_, err := FromEnv()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "NATTER_DEBUG")
	})
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	config := &Config{Version: "2.0", Bot: BotConfig{ID: "U1"}}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version: 2.0")
}

func TestBotValidate(t *testing.T) {
	tests := []struct {
		name          string
		bot           BotConfig
		errorContains string
	}{
		{
			name:          "missing id",
			bot:           BotConfig{},
			errorContains: "bot.id is required",
		},
		{
			name:          "negative workers",
			bot:           BotConfig{ID: "U1", Workers: -2},
			errorContains: "bot.workers must be >= 1",
		},
		{
			name:          "negative poll interval",
			bot:           BotConfig{ID: "U1", PollInterval: -time.Second},
			errorContains: "bot.poll_interval must be positive",
		},
		{
			name:          "negative keepalive interval",
			bot:           BotConfig{ID: "U1", KeepaliveInterval: -time.Minute},
			errorContains: "bot.keepalive_interval must be positive",
		},
		{
			name:          "port out of range",
			bot:           BotConfig{ID: "U1", HealthPort: 70000},
			errorContains: "bot.health_port",
		},
		{
			name: "health server disabled",
			bot:  BotConfig{ID: "U1", HealthPort: -1},
		},
		{
			name: "explicitly empty reserved names are kept",
			bot:  BotConfig{ID: "U1", ReservedNames: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bot.Validate()
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestBotValidate_KeepsEmptyReservedNames(t *testing.T) {
	bot := BotConfig{ID: "U1", ReservedNames: []string{}}
	require.NoError(t, bot.Validate())
	assert.Empty(t, bot.ReservedNames)
	assert.NotNil(t, bot.ReservedNames)
}
