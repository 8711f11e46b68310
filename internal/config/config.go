package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dyluth/natter/internal/dispatch"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate when a field is left empty.
const (
	DefaultName              = "natter"
	DefaultWorkspace         = "default"
	DefaultRedisURL          = "redis://localhost:6379"
	DefaultWorkers           = 10
	DefaultPollInterval      = 1 * time.Second
	DefaultKeepaliveInterval = 30 * time.Minute
	DefaultHealthPort        = 8080
)

// Config represents the top-level natter.yml configuration
type Config struct {
	Version   string          `yaml:"version"`
	Bot       BotConfig       `yaml:"bot"`
	Transport TransportConfig `yaml:"transport"`
	Plugins   PluginsConfig   `yaml:"plugins"`
}

// BotConfig controls the bot identity and dispatch behaviour
type BotConfig struct {
	ID    string `yaml:"id"`   // Required: the bot's own user ID, used to detect mentions
	Name  string `yaml:"name"` // Messages authored by this name are ignored
	Debug bool   `yaml:"debug,omitempty"`
	Icon  string `yaml:"icon,omitempty"`  // Icon URL for rich messages
	Emoji string `yaml:"emoji,omitempty"` // Icon emoji for rich messages

	Workers           int           `yaml:"workers,omitempty"`
	PollInterval      time.Duration `yaml:"poll_interval,omitempty"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval,omitempty"`

	DefaultReply  string   `yaml:"default_reply,omitempty"` // Sent instead of the command list when nothing matches
	ReservedNames []string `yaml:"reserved_names,omitempty"`

	HealthPort int `yaml:"health_port,omitempty"` // -1 disables the health server
}

// TransportConfig locates the Redis chat transport
type TransportConfig struct {
	RedisURL  string `yaml:"redis_url"`
	Workspace string `yaml:"workspace"`
}

// PluginsConfig selects built-in plugins and declares static replies
type PluginsConfig struct {
	Enabled []string `yaml:"enabled,omitempty"` // Empty enables every built-in plugin
	Replies []Reply  `yaml:"replies,omitempty"`
}

// Reply is a static pattern → text plugin declared in configuration
type Reply struct {
	Pattern     string   `yaml:"pattern"`
	Category    string   `yaml:"category,omitempty"` // respond_to (default) or listen_to
	Flags       []string `yaml:"flags,omitempty"`
	Reply       string   `yaml:"reply"`
	Description string   `yaml:"description,omitempty"`
}

// Validate applies defaults and performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := c.Bot.Validate(); err != nil {
		return err
	}

	if c.Transport.RedisURL == "" {
		c.Transport.RedisURL = DefaultRedisURL
	}
	if c.Transport.Workspace == "" {
		c.Transport.Workspace = DefaultWorkspace
	}

	for i := range c.Plugins.Replies {
		if err := c.Plugins.Replies[i].Validate(i); err != nil {
			return err
		}
	}

	return nil
}

// Validate applies bot defaults and checks ranges
func (b *BotConfig) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("bot.id is required (or set NATTER_BOT_ID)")
	}
	if b.Name == "" {
		b.Name = DefaultName
	}

	if b.Workers == 0 {
		b.Workers = DefaultWorkers
	}
	if b.Workers < 1 {
		return fmt.Errorf("bot.workers must be >= 1, got %d", b.Workers)
	}

	if b.PollInterval == 0 {
		b.PollInterval = DefaultPollInterval
	}
	if b.PollInterval < 0 {
		return fmt.Errorf("bot.poll_interval must be positive, got %s", b.PollInterval)
	}

	if b.KeepaliveInterval == 0 {
		b.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if b.KeepaliveInterval < 0 {
		return fmt.Errorf("bot.keepalive_interval must be positive, got %s", b.KeepaliveInterval)
	}

	if b.ReservedNames == nil {
		b.ReservedNames = append([]string(nil), dispatch.DefaultReservedNames...)
	}

	if b.HealthPort == 0 {
		b.HealthPort = DefaultHealthPort
	}
	if b.HealthPort < -1 || b.HealthPort > 65535 {
		return fmt.Errorf("bot.health_port must be a valid port or -1, got %d", b.HealthPort)
	}

	return nil
}

// Validate checks one static reply; index identifies it in error messages
func (r *Reply) Validate(index int) error {
	if r.Pattern == "" {
		return fmt.Errorf("plugins.replies[%d]: pattern is required", index)
	}
	if r.Reply == "" {
		return fmt.Errorf("plugins.replies[%d]: reply is required", index)
	}

	if r.Category == "" {
		r.Category = string(dispatch.RespondTo)
	}
	if err := dispatch.Category(r.Category).Validate(); err != nil {
		return fmt.Errorf("plugins.replies[%d]: %w", index, err)
	}

	if _, err := dispatch.ParseFlags(r.Flags); err != nil {
		return fmt.Errorf("plugins.replies[%d]: %w", index, err)
	}

	return nil
}

// ApplyEnv overrides configuration values from environment variables.
// Empty variables leave the file value untouched.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Transport.RedisURL = v
	}
	if v := os.Getenv("NATTER_WORKSPACE"); v != "" {
		c.Transport.Workspace = v
	}
	if v := os.Getenv("NATTER_BOT_ID"); v != "" {
		c.Bot.ID = v
	}
	if v := os.Getenv("NATTER_BOT_NAME"); v != "" {
		c.Bot.Name = v
	}
	if v := os.Getenv("NATTER_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("failed to parse NATTER_DEBUG as a boolean: %w", err)
		}
		c.Bot.Debug = debug
	}
	return nil
}

// Load reads natter.yml from the specified path, applies environment overrides and validates
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return finish(&config)
}

// FromEnv builds a configuration from defaults and environment variables only
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(config *Config) (*Config, error) {
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
