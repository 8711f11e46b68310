package commands

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/natter/internal/bot"
	"github.com/dyluth/natter/internal/config"
	"github.com/dyluth/natter/internal/dispatch"
	"github.com/dyluth/natter/internal/health"
	"github.com/dyluth/natter/internal/plugins"
	"github.com/dyluth/natter/internal/printer"
	"github.com/spf13/cobra"
)

var runDebug bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the workspace and serve chat events",
	Long: `Connect to the workspace and serve chat events until interrupted.

Start-up order: plugins are registered, the worker pool starts, the transport
connects, then the keepalive and ingestion loops begin. SIGINT or SIGTERM stops
the loops and the workers.

Examples:
  # Run with ./natter.yml
  natter run

  # Run from the environment only, with failure details in replies
  NATTER_BOT_ID=U0BOT natter run --debug`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Include failure details in replies (overrides bot.debug)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("debug") {
		cfg.Bot.Debug = runDebug
	}

	units, err := plugins.Select(cfg.Plugins)
	if err != nil {
		return printer.Error(
			"invalid plugin selection",
			err.Error(),
			[]string{"Run 'natter plugins' to list the available plugins"},
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	b := bot.New(client, units, botOptions(cfg))

	if cfg.Bot.HealthPort > 0 {
		hs := health.NewServer(client, b.Dispatcher().Stats, cfg.Bot.HealthPort)
		if err := hs.Start(); err != nil {
			return printer.Error(
				"health server failed to start",
				err.Error(),
				[]string{"Choose another port with bot.health_port, or -1 to disable it"},
			)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := hs.Shutdown(shutdownCtx); err != nil {
				log.Printf("[WARN] Health server shutdown: %v", err)
			}
		}()
		log.Printf("[INFO] Health server started on :%d", cfg.Bot.HealthPort)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] Received signal: %v", sig)
		cancel()
		return <-done
	case err := <-done:
		if err != nil {
			return printer.Error("bot stopped", err.Error(), nil)
		}
		return nil
	}
}

// botOptions maps configuration onto the runner and dispatcher options.
func botOptions(cfg *config.Config) bot.Options {
	return bot.Options{
		PollInterval:      cfg.Bot.PollInterval,
		KeepaliveInterval: cfg.Bot.KeepaliveInterval,
		Dispatch: dispatch.Options{
			Debug:         cfg.Bot.Debug,
			Workers:       cfg.Bot.Workers,
			ReservedNames: cfg.Bot.ReservedNames,
			DefaultReply:  cfg.Bot.DefaultReply,
		},
	}
}
