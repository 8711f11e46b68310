package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/natter/internal/printer"
	"github.com/dyluth/natter/internal/watch"
	"github.com/dyluth/natter/pkg/chat"
	"github.com/spf13/cobra"
)

var (
	sayChannel  string
	sayUser     string
	sayUsername string
	sayWait     time.Duration
)

var sayCmd = &cobra.Command{
	Use:   "say <text>",
	Short: "Publish an inbound message as if a user had sent it",
	Long: `Publish an inbound message event to the workspace, as the chat backend would.

With --wait the command also waits for the bot's next message to the same channel
and prints it.

Examples:
  # Direct message the bot
  natter say --channel D1 --user U1 ping --wait 5s

  # Mention the bot in a channel
  natter say --channel C1 --user U1 "<@U0BOT>: help"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSay,
}

func init() {
	sayCmd.Flags().StringVar(&sayChannel, "channel", "D1", "Channel ID (C…/G… multi-party, D… direct)")
	sayCmd.Flags().StringVar(&sayUser, "user", "", "Sender user ID")
	sayCmd.Flags().StringVar(&sayUsername, "username", "", "Sender username, for senders without a user ID")
	sayCmd.Flags().DurationVar(&sayWait, "wait", 0, "Wait this long for the bot's reply (0 = don't wait)")
	rootCmd.AddCommand(sayCmd)
}

func runSay(cmd *cobra.Command, args []string) error {
	if sayUser == "" && sayUsername == "" {
		return printer.Error(
			"sender required",
			"The bot ignores messages whose author it cannot resolve.",
			[]string{"Pass --user <id> (see 'natter users set') or --username <name>"},
		)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	// Subscribe before publishing so the reply cannot be missed
	var sub *chat.FrameSubscription
	if sayWait > 0 {
		sub, err = client.SubscribeFrames(ctx)
		if err != nil {
			return fmt.Errorf("failed to subscribe to replies: %w", err)
		}
		defer sub.Close()
	}

	ev := chat.Event{
		Channel:  sayChannel,
		User:     sayUser,
		Username: sayUsername,
		Text:     strings.Join(args, " "),
	}
	if err := client.PublishEvent(ctx, ev); err != nil {
		return printer.Error("failed to publish message", err.Error(), nil)
	}
	printer.Success("Published to %s\n", sayChannel)

	if sub == nil {
		return nil
	}

	reply, err := watch.WaitForReply(ctx, sub, sayChannel, sayWait)
	if err != nil {
		return printer.Error(
			"no reply",
			err.Error(),
			[]string{"Check that 'natter run' is running against the same workspace"},
		)
	}
	printer.Println(watch.FormatLine(reply))
	return nil
}
