package commands

import (
	"context"

	"github.com/dyluth/natter/internal/printer"
	"github.com/dyluth/natter/pkg/chat"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage the workspace user directory",
}

var usersSetCmd = &cobra.Command{
	Use:   "set <id> <name>",
	Short: "Record a user ID and display name",
	Long: `Record a user in the workspace directory. The bot resolves message authors
through this directory and ignores messages from authors it cannot resolve.

Example:
  natter users set U1 alice`,
	Args: cobra.ExactArgs(2),
	RunE: runUsersSet,
}

var usersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show the display name recorded for a user ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersGet,
}

var (
	channelName    string
	channelTopic   string
	channelMembers []string
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Manage workspace channel metadata",
}

var channelsSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Record channel metadata",
	Long: `Record channel metadata that plugins can look up.

Example:
  natter channels set C1 --name general --topic "Daily chatter" --members U1,U2`,
	Args: cobra.ExactArgs(1),
	RunE: runChannelsSet,
}

func init() {
	usersCmd.AddCommand(usersSetCmd, usersGetCmd)
	rootCmd.AddCommand(usersCmd)

	channelsSetCmd.Flags().StringVar(&channelName, "name", "", "Channel name (without #)")
	channelsSetCmd.Flags().StringVar(&channelTopic, "topic", "", "Channel topic")
	channelsSetCmd.Flags().StringSliceVar(&channelMembers, "members", nil, "Member user IDs")
	channelsCmd.AddCommand(channelsSetCmd)
	rootCmd.AddCommand(channelsCmd)
}

func runUsersSet(cmd *cobra.Command, args []string) error {
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

	if err := client.SetUser(ctx, args[0], args[1]); err != nil {
		return printer.Error("failed to record user", err.Error(), nil)
	}
	printer.Success("User %s recorded as %s\n", args[0], args[1])
	return nil
}

func runUsersGet(cmd *cobra.Command, args []string) error {
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

	name, err := client.UserName(ctx, args[0])
	if err != nil {
		if chat.IsNotFound(err) {
			return printer.Error(
				"user not found",
				"No user "+args[0]+" in workspace "+cfg.Transport.Workspace,
				[]string{"Record it with:\n  natter users set " + args[0] + " <name>"},
			)
		}
		return printer.Error("failed to look up user", err.Error(), nil)
	}
	printer.Println(name)
	return nil
}

func runChannelsSet(cmd *cobra.Command, args []string) error {
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

	ch := &chat.Channel{
		ID:      args[0],
		Name:    channelName,
		Topic:   channelTopic,
		Members: channelMembers,
	}
	if err := client.SetChannel(ctx, ch); err != nil {
		return printer.Error("failed to record channel", err.Error(), nil)
	}
	printer.Success("Channel %s recorded\n", args[0])
	return nil
}
