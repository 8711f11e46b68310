package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/natter/pkg/chat"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func setupClient(t *testing.T) *chat.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := chat.NewClient(&redis.Options{Addr: mr.Addr()}, "test-ws", chat.Identity{ID: "U0BOT", Name: "natter"})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFormatLine(t *testing.T) {
	tests := []struct {
		name     string
		frame    *chat.Frame
		expected string
	}{
		{
			name:     "realtime message",
			frame:    &chat.Frame{Type: chat.FrameTypeMessage, Via: chat.ViaRealtime, Channel: "C1", Text: "<@U1>: pong"},
			expected: "💬 C1: <@U1>: pong",
		},
		{
			name: "api message with attachment",
			frame: &chat.Frame{Type: chat.FrameTypeMessage, Via: chat.ViaAPI, Channel: "C1", Text: "here you go",
				Attachments: []chat.Attachment{{Title: "Build", Text: "passed"}, {Fallback: "plain"}}},
			expected: "💬 C1 (api): here you go\n    📎 Build: passed\n    📎 plain",
		},
		{
			name:     "typing",
			frame:    &chat.Frame{Type: chat.FrameTypeTyping, Channel: "D1"},
			expected: "⌨️  typing in D1",
		},
		{
			name:     "reaction",
			frame:    &chat.Frame{Type: chat.FrameTypeReaction, Channel: "C1", Emoji: "eggplant", Timestamp: "1.000002"},
			expected: "😀 :eggplant: on C1@1.000002",
		},
		{
			name:     "keepalive",
			frame:    &chat.Frame{Type: chat.FrameTypePing},
			expected: "💓 keepalive",
		},
		{
			name:     "raw",
			frame:    &chat.Frame{Type: chat.FrameTypeRaw, Raw: json.RawMessage(`{"type":"typing"}`)},
			expected: `📦 raw: {"type":"typing"}`,
		},
		{
			name:     "unknown",
			frame:    &chat.Frame{ID: "f1", Type: "presence"},
			expected: "❓ presence frame f1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatLine(tt.frame))
		})
	}
}

func TestWriteFrame(t *testing.T) {
	frame := &chat.Frame{ID: "f1", Type: chat.FrameTypeMessage, Channel: "C1", Text: "hi", CreatedAtMs: time.Now().UnixMilli()}

	t.Run("default has timestamp prefix", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, frame, OutputFormatDefault))
		assert.True(t, strings.HasPrefix(buf.String(), "["))
		assert.True(t, strings.HasSuffix(buf.String(), "💬 C1: hi\n"))
	})

	t.Run("json is one object per line", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, frame, OutputFormatJSON))

		var decoded chat.Frame
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
		assert.Equal(t, "f1", decoded.ID)
		assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	})
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("default")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatDefault, f)

	f, err = ParseOutputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, f)

	_, err = ParseOutputFormat("yaml")
	assert.Error(t, err)
}

// lineWriter forwards each write to a channel, dropping writes nobody is waiting for.
type lineWriter struct {
	ch chan string
}

func (b *lineWriter) Write(p []byte) (int, error) {
	select {
	case b.ch <- string(p):
	default:
	}
	return len(p), nil
}

func TestStreamFrames(t *testing.T) {
	client := setupClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &lineWriter{ch: make(chan string, 1)}
	done := make(chan error, 1)
	go func() {
		done <- StreamFrames(ctx, client, OutputFormatJSON, out)
	}()

	// Keep sending until the stream's subscription is live
	var line string
	require.Eventually(t, func() bool {
		_ = client.SendMessage(ctx, "C1", "streamed")
		select {
		case line = <-out.ch:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	var frame chat.Frame
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(line)), &frame))
	assert.Equal(t, "streamed", frame.Text)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
}

func TestWaitForReply(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	t.Run("skips other frames and channels", func(t *testing.T) {
		sub, err := client.SubscribeFrames(ctx)
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, client.SendFrame(ctx, map[string]string{"type": "typing", "channel": "D1"}))
		require.NoError(t, client.SendMessage(ctx, "C9", "elsewhere"))
		require.NoError(t, client.React(ctx, "eggplant", "D1", "1.0"))
		require.NoError(t, client.SendMessage(ctx, "D1", "pong"))

		frame, err := WaitForReply(ctx, sub, "D1", time.Second)
		require.NoError(t, err)
		assert.Equal(t, "pong", frame.Text)
	})

	t.Run("times out", func(t *testing.T) {
		sub, err := client.SubscribeFrames(ctx)
		require.NoError(t, err)
		defer sub.Close()

		frame, err := WaitForReply(ctx, sub, "D1", 100*time.Millisecond)
		assert.Nil(t, frame)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for reply")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		sub, err := client.SubscribeFrames(ctx)
		require.NoError(t, err)
		defer sub.Close()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = WaitForReply(cctx, sub, "D1", time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
