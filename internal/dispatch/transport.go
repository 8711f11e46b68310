package dispatch

import (
	"context"

	"github.com/dyluth/natter/pkg/chat"
)

// Transport is the part of the chat backend the dispatcher and message wrapper use.
// *chat.Client implements it.
type Transport interface {
	// Self returns the bot's own identity.
	Self() chat.Identity

	// UserName resolves a user ID to a display name.
	UserName(ctx context.Context, id string) (string, error)

	// UserID resolves a display name to a user ID.
	UserID(ctx context.Context, name string) (string, error)

	// Channel looks up a channel by ID.
	Channel(ctx context.Context, id string) (*chat.Channel, error)

	// SendMessage sends plain text over the low-latency realtime route.
	SendMessage(ctx context.Context, channel, text string) error

	// SendRichMessage sends text with structured attachments over the API route.
	SendRichMessage(ctx context.Context, channel, text string, attachments []chat.Attachment) error

	// SendFrame sends an arbitrary JSON-encodable frame.
	SendFrame(ctx context.Context, payload any) error

	// React adds an emoji reaction to the message at (channel, timestamp).
	React(ctx context.Context, emoji, channel, timestamp string) error
}
