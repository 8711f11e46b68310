package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dyluth/natter/pkg/chat"
)

// Message is the view of one inbound event handed to a plugin handler.
// It is created per dispatch and never shared between tasks.
type Message struct {
	ctx       context.Context
	transport Transport
	registry  *Registry
	event     chat.Event

	channelOnce sync.Once
	channel     *chat.Channel
	channelErr  error
}

// NewMessage wraps ev for a handler. ctx bounds the transport calls the handler makes.
func NewMessage(ctx context.Context, transport Transport, registry *Registry, ev chat.Event) *Message {
	return &Message{
		ctx:       ctx,
		transport: transport,
		registry:  registry,
		event:     ev,
	}
}

// Context returns the context the message was dispatched with.
func (m *Message) Context() context.Context {
	return m.ctx
}

// Body returns the wrapped event. For respond_to dispatches the text has
// the bot mention already stripped.
func (m *Message) Body() chat.Event {
	return m.event
}

// Text returns the event text.
func (m *Message) Text() string {
	return m.event.Text
}

// UserID returns the sender's user ID, resolving a literal username through the
// transport when the event carries no user ID.
func (m *Message) UserID() (string, error) {
	if m.event.User != "" {
		return m.event.User, nil
	}

	id, err := m.transport.UserID(m.ctx, m.event.Username)
	if err != nil {
		return "", fmt.Errorf("failed to resolve user %q: %w", m.event.Username, err)
	}
	return id, nil
}

// FormatReply addresses text to the sender: in multi-party channels it is prefixed
// with "<@senderID>: ", in direct channels it is returned unchanged.
func (m *Message) FormatReply(text string) (string, error) {
	if !chat.IsMultiParty(m.event.Channel) {
		return text, nil
	}

	id, err := m.UserID()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<@%s>: %s", id, text), nil
}

// Reply sends an addressed message to the event's channel over the realtime route.
func (m *Message) Reply(text string) error {
	formatted, err := m.FormatReply(text)
	if err != nil {
		return err
	}
	return m.Send(formatted)
}

// Send sends text verbatim to the event's channel over the realtime route.
// Formatting (bold, links, attachments) is not supported on this route.
func (m *Message) Send(text string) error {
	return m.transport.SendMessage(m.ctx, m.event.Channel, text)
}

// ReplyWebAPI sends an addressed message over the API route, which supports
// formatted text and attachments.
func (m *Message) ReplyWebAPI(text string, attachments []chat.Attachment) error {
	formatted, err := m.FormatReply(text)
	if err != nil {
		return err
	}
	return m.SendWebAPI(formatted, attachments)
}

// SendWebAPI sends text verbatim over the API route.
func (m *Message) SendWebAPI(text string, attachments []chat.Attachment) error {
	return m.transport.SendRichMessage(m.ctx, m.event.Channel, text, attachments)
}

// SendTyping shows a typing indicator in the event's channel.
func (m *Message) SendTyping() error {
	return m.transport.SendFrame(m.ctx, map[string]string{
		"type":    string(chat.FrameTypeTyping),
		"channel": m.event.Channel,
	})
}

// React adds an emoji reaction to the wrapped message.
func (m *Message) React(emoji string) error {
	return m.transport.React(m.ctx, emoji, m.event.Channel, m.event.TS)
}

// Channel resolves the event's channel on first use and caches the result.
func (m *Message) Channel() (*chat.Channel, error) {
	m.channelOnce.Do(func() {
		m.channel, m.channelErr = m.transport.Channel(m.ctx, m.event.Channel)
	})
	return m.channel, m.channelErr
}

// HelpText lists the bot's respond_to commands, one bulleted line each.
func (m *Message) HelpText() string {
	entries := m.registry.Enumerate(RespondTo)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, helpLine(e.Name, e.Description))
	}
	return strings.Join(lines, "\n")
}

func helpLine(label, description string) string {
	return fmt.Sprintf("    • `%s` %s", label, description)
}
