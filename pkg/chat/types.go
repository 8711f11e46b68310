package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventTypeMessage is the only inbound event type the dispatcher acts on.
const EventTypeMessage = "message"

// SubtypeMessageChanged marks an edit of an earlier message.
const SubtypeMessageChanged = "message_changed"

// Event is a single inbound chat event as produced by the chat backend.
type Event struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype,omitempty"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	User     string `json:"user,omitempty"`     // User ID of the author, if known
	Username string `json:"username,omitempty"` // Literal username, used by integrations without a user ID
	TS       string `json:"ts"`                 // Backend timestamp, doubles as the message key for reactions
}

// Identity is the bot's own account on the chat backend.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel describes a conversation on the chat backend.
type Channel struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Topic   string   `json:"topic,omitempty"`
	Members []string `json:"members"`
}

// IsMultiParty reports whether a channel ID names a shared channel (public "C" or
// private group "G") as opposed to a direct conversation.
func IsMultiParty(channelID string) bool {
	return strings.HasPrefix(channelID, "C") || strings.HasPrefix(channelID, "G")
}

// Attachment is a structured block attached to a rich message.
type Attachment struct {
	Fallback  string `json:"fallback,omitempty"`
	Color     string `json:"color,omitempty"`
	Pretext   string `json:"pretext,omitempty"`
	Title     string `json:"title,omitempty"`
	TitleLink string `json:"title_link,omitempty"`
	Text      string `json:"text,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// FrameType identifies the kind of outbound frame.
type FrameType string

const (
	// FrameTypeMessage is a chat message (realtime or rich).
	FrameTypeMessage FrameType = "message"

	// FrameTypeTyping is a typing indicator.
	FrameTypeTyping FrameType = "typing"

	// FrameTypeReaction is an emoji reaction to an existing message.
	FrameTypeReaction FrameType = "reaction"

	// FrameTypePing is a keepalive.
	FrameTypePing FrameType = "ping"

	// FrameTypeRaw carries an arbitrary JSON payload supplied by a plugin.
	FrameTypeRaw FrameType = "raw"
)

// Delivery routes of a message frame.
const (
	ViaRealtime = "rtm"
	ViaAPI      = "api"
)

// Frame is a single outbound unit published for the chat gateway.
type Frame struct {
	ID          string          `json:"id"`
	Type        FrameType       `json:"type"`
	Via         string          `json:"via,omitempty"`
	Channel     string          `json:"channel,omitempty"`
	Text        string          `json:"text,omitempty"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	Emoji       string          `json:"emoji,omitempty"`     // Reaction name for reaction frames
	Timestamp   string          `json:"timestamp,omitempty"` // Target message for reaction frames
	IconURL     string          `json:"icon_url,omitempty"`
	IconEmoji   string          `json:"icon_emoji,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	CreatedAtMs int64           `json:"created_at_ms"`
}

// Validate checks the fields a frame of its type needs.
func (f *Frame) Validate() error {
	switch f.Type {
	case FrameTypeMessage:
		if f.Channel == "" {
			return fmt.Errorf("message frame requires a channel")
		}
	case FrameTypeTyping:
		if f.Channel == "" {
			return fmt.Errorf("typing frame requires a channel")
		}
	case FrameTypeReaction:
		if f.Channel == "" || f.Timestamp == "" || f.Emoji == "" {
			return fmt.Errorf("reaction frame requires channel, timestamp and emoji")
		}
	case FrameTypePing, FrameTypeRaw:
	default:
		return fmt.Errorf("invalid frame type: %q", f.Type)
	}
	return nil
}
