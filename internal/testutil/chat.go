// Package testutil provides a miniredis-backed chat environment for tests that
// exercise the real Redis transport end to end.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/natter/pkg/chat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Bot is the identity every environment runs as.
var Bot = chat.Identity{ID: "U0BOT", Name: "natter"}

// ChatEnvironment is an isolated workspace on a private miniredis server,
// seeded with two users (U1 alice, U2 bob) and one channel (C1 #general).
type ChatEnvironment struct {
	T         *testing.T
	Ctx       context.Context
	Redis     *miniredis.Miniredis
	Client    *chat.Client
	Frames    *chat.FrameSubscription
	Workspace string
}

// SetupChat starts miniredis, connects a chat client and subscribes to outbound frames.
// Everything is torn down with t.Cleanup.
func SetupChat(t *testing.T) *ChatEnvironment {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	workspace := "test-ws"
	client, err := chat.NewClient(&redis.Options{Addr: mr.Addr()}, workspace, Bot)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.SetUser(ctx, Bot.ID, Bot.Name))
	require.NoError(t, client.SetUser(ctx, "U1", "alice"))
	require.NoError(t, client.SetUser(ctx, "U2", "bob"))
	require.NoError(t, client.SetChannel(ctx, &chat.Channel{
		ID:      "C1",
		Name:    "general",
		Members: []string{"U1", "U2", Bot.ID},
	}))

	frames, err := client.SubscribeFrames(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { frames.Close() })

	return &ChatEnvironment{
		T:         t,
		Ctx:       ctx,
		Redis:     mr,
		Client:    client,
		Frames:    frames,
		Workspace: workspace,
	}
}

// Message builds an inbound message event.
func (env *ChatEnvironment) Message(channel, user, text string) chat.Event {
	return chat.Event{
		Type:    chat.EventTypeMessage,
		Channel: channel,
		User:    user,
		Text:    text,
		TS:      chat.NewTimestamp(time.Now()),
	}
}

// WaitForFrame returns the next outbound frame, failing the test after timeout.
func (env *ChatEnvironment) WaitForFrame(timeout time.Duration) *chat.Frame {
	env.T.Helper()
	select {
	case frame, ok := <-env.Frames.Frames():
		require.True(env.T, ok, "frame subscription closed")
		return frame
	case <-time.After(timeout):
		env.T.Fatalf("timeout waiting for outbound frame after %v", timeout)
		return nil
	}
}

// WaitForFrames collects n outbound frames in arrival order.
func (env *ChatEnvironment) WaitForFrames(n int, timeout time.Duration) []*chat.Frame {
	env.T.Helper()
	frames := make([]*chat.Frame, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, env.WaitForFrame(timeout))
	}
	return frames
}

// ExpectNoFrame fails the test if any outbound frame arrives within d.
func (env *ChatEnvironment) ExpectNoFrame(d time.Duration) {
	env.T.Helper()
	select {
	case frame := <-env.Frames.Frames():
		env.T.Fatalf("unexpected outbound frame: %+v", frame)
	case <-time.After(d):
	}
}
