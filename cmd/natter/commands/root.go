package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/dyluth/natter/internal/config"
	"github.com/dyluth/natter/internal/printer"
	"github.com/dyluth/natter/pkg/chat"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

const defaultConfigPath = "natter.yml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "natter",
	Short: "natter - chat bot with pattern-matched plugins",
	Long: `natter is a chat bot that routes messages to plugins by regular expression.

Messages addressed to the bot are matched against respond_to patterns, everything
else it overhears against listen_to patterns. Matching handlers run concurrently
on a worker pool; a failing handler never takes the bot down.

Chat traffic flows through Redis: inbound events on natter:{workspace}:inbound_events,
outbound frames on natter:{workspace}:outbound_events.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to natter.yml")
}

// loadConfig reads the configuration file. A missing default natter.yml falls back
// to environment variables; a missing file named explicitly is an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}

	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, envErr := config.FromEnv()
		if envErr != nil {
			return nil, printer.Error(
				"configuration incomplete",
				fmt.Sprintf("No %s found and the environment does not configure the bot: %v", configPath, envErr),
				[]string{
					fmt.Sprintf("Create %s with at least:\n  bot:\n    id: <bot user id>", configPath),
					"Set the bot ID in the environment:\n  export NATTER_BOT_ID=<bot user id>",
				},
			)
		}
		return cfg, nil
	}

	return nil, printer.ErrorWithContext(
		"failed to load configuration",
		err.Error(),
		map[string]string{"Config": configPath},
		nil,
	)
}

// connect builds a chat client for cfg and verifies Redis connectivity.
func connect(ctx context.Context, cfg *config.Config) (*chat.Client, error) {
	redisOpts, err := redis.ParseURL(cfg.Transport.RedisURL)
	if err != nil {
		return nil, printer.Error(
			"invalid Redis URL",
			fmt.Sprintf("Could not parse %q: %v", cfg.Transport.RedisURL, err),
			[]string{"Use the form redis://host:port/db in transport.redis_url or REDIS_URL"},
		)
	}

	client, err := chat.NewClient(redisOpts, cfg.Transport.Workspace, chat.Identity{ID: cfg.Bot.ID, Name: cfg.Bot.Name})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}
	client.SetBotIcon(cfg.Bot.Icon, cfg.Bot.Emoji)

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Transport.RedisURL),
			map[string]string{"Workspace": cfg.Transport.Workspace},
			[]string{"Check that Redis is running and reachable, or set REDIS_URL"},
		)
	}

	return client, nil
}
