package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/natter/pkg/chat"
	"github.com/fatih/color"
)

// OutputFormat selects how frames are rendered.
type OutputFormat int

const (
	// OutputFormatDefault is human-readable output with timestamps and emojis.
	OutputFormatDefault OutputFormat = iota
	// OutputFormatJSON is line-delimited JSON.
	OutputFormatJSON
)

// ParseOutputFormat maps a --output flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "default":
		return OutputFormatDefault, nil
	case "json":
		return OutputFormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown output format: %s", s)
	}
}

// FrameSource is anything that can subscribe to a workspace's outbound frames.
type FrameSource interface {
	SubscribeFrames(ctx context.Context) (*chat.FrameSubscription, error)
}

var (
	channelColor = color.New(color.FgCyan)
	dimColor     = color.New(color.Faint)
)

// StreamFrames writes every outbound frame to w until ctx is cancelled.
// Subscription errors are reported inline and streaming continues.
func StreamFrames(ctx context.Context, source FrameSource, format OutputFormat, w io.Writer) error {
	sub, err := source.SubscribeFrames(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to frames: %w", err)
	}
	defer sub.Close()

	if format == OutputFormatDefault {
		fmt.Fprintf(w, "Watching outbound activity (Ctrl+C to stop)...\n")
	}

	frames := sub.Frames()
	errs := sub.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := WriteFrame(w, frame, format); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if format == OutputFormatDefault {
				fmt.Fprintf(w, "⚠️  %v\n", err)
			}
		}
	}
}

// WriteFrame renders one frame in format.
func WriteFrame(w io.Writer, frame *chat.Frame, format OutputFormat) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("failed to marshal frame to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
		return nil
	}

	ts := time.UnixMilli(frame.CreatedAtMs).Format("15:04:05")
	_, err := fmt.Fprintf(w, "%s %s\n", dimColor.Sprintf("[%s]", ts), FormatLine(frame))
	return err
}

// FormatLine is the single-line, human-readable description of a frame.
func FormatLine(frame *chat.Frame) string {
	switch frame.Type {
	case chat.FrameTypeMessage:
		route := ""
		if frame.Via == chat.ViaAPI {
			route = " (api)"
		}
		line := fmt.Sprintf("💬 %s%s: %s", channelColor.Sprint(frame.Channel), route, frame.Text)
		for _, a := range frame.Attachments {
			line += "\n    📎 " + formatAttachment(a)
		}
		return line

	case chat.FrameTypeTyping:
		return fmt.Sprintf("⌨️  typing in %s", channelColor.Sprint(frame.Channel))

	case chat.FrameTypeReaction:
		return fmt.Sprintf("😀 :%s: on %s@%s", frame.Emoji, channelColor.Sprint(frame.Channel), frame.Timestamp)

	case chat.FrameTypePing:
		return "💓 keepalive"

	case chat.FrameTypeRaw:
		return fmt.Sprintf("📦 raw: %s", string(frame.Raw))

	default:
		return fmt.Sprintf("❓ %s frame %s", frame.Type, frame.ID)
	}
}

func formatAttachment(a chat.Attachment) string {
	parts := make([]string, 0, 2)
	if a.Title != "" {
		parts = append(parts, a.Title)
	}
	if a.Text != "" {
		parts = append(parts, a.Text)
	}
	if len(parts) == 0 {
		return a.Fallback
	}
	return strings.Join(parts, ": ")
}

// WaitForReply waits for the next message frame sent to channel.
// Returns an error if timeout elapses first.
func WaitForReply(ctx context.Context, sub *chat.FrameSubscription, channel string, timeout time.Duration) (*chat.Frame, error) {
	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for reply after %v", timeout)

		case frame, ok := <-sub.Frames():
			if !ok {
				return nil, fmt.Errorf("frame subscription closed")
			}
			if frame.Type != chat.FrameTypeMessage || frame.Channel != channel {
				// Typing indicators, reactions and other channels
				continue
			}
			return frame, nil
		}
	}
}
