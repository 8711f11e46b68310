package plugins

import (
	"fmt"

	"github.com/dyluth/natter/internal/config"
	"github.com/dyluth/natter/internal/dispatch"
)

// Replies registers the static pattern/reply pairs from configuration.
// respond_to replies are addressed to the sender; listen_to replies go to the channel.
type Replies []config.Reply

func (Replies) Name() string { return "replies" }

func (rs Replies) Register(r *dispatch.Registry) error {
	for i, reply := range rs {
		flags, err := dispatch.ParseFlags(reply.Flags)
		if err != nil {
			return fmt.Errorf("reply %d: %w", i, err)
		}

		category := dispatch.Category(reply.Category)
		if category == "" {
			category = dispatch.RespondTo
		}

		text := reply.Reply
		handler := func(msg *dispatch.Message, _ []string) error {
			if category == dispatch.ListenTo {
				return msg.Send(text)
			}
			return msg.Reply(text)
		}

		if err := r.Register(category, reply.Pattern, flags, handler,
			dispatch.WithName(fmt.Sprintf("reply:%s", reply.Pattern)),
			dispatch.WithDescription(reply.Description)); err != nil {
			return fmt.Errorf("reply %d: %w", i, err)
		}
	}
	return nil
}
