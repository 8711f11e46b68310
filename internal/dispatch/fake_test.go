package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/dyluth/natter/pkg/chat"
	"github.com/redis/go-redis/v9"
)

// sent records one outbound call made through fakeTransport.
type sent struct {
	Kind        string
	Channel     string
	Text        string
	Attachments []chat.Attachment
	Emoji       string
	Timestamp   string
	Payload     any
}

// fakeTransport is an in-memory Transport with a fixed user directory.
type fakeTransport struct {
	self     chat.Identity
	users    map[string]string // id -> name
	channels map[string]*chat.Channel
	sendErr  error

	mu           sync.Mutex
	sent         []sent
	channelCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		self: chat.Identity{ID: "U0BOT", Name: "natter"},
		users: map[string]string{
			"U1":    "alice",
			"U2":    "bob",
			"U0BOT": "natter",
			"USB":   "slackbot",
		},
		channels: map[string]*chat.Channel{
			"C1": {ID: "C1", Name: "general", Members: []string{"U1", "U2"}},
		},
	}
}

func (f *fakeTransport) Self() chat.Identity { return f.self }

func (f *fakeTransport) UserName(_ context.Context, id string) (string, error) {
	name, ok := f.users[id]
	if !ok {
		return "", redis.Nil
	}
	return name, nil
}

func (f *fakeTransport) UserID(_ context.Context, name string) (string, error) {
	for id, n := range f.users {
		if n == name {
			return id, nil
		}
	}
	return "", redis.Nil
}

func (f *fakeTransport) Channel(_ context.Context, id string) (*chat.Channel, error) {
	f.mu.Lock()
	f.channelCalls++
	f.mu.Unlock()

	ch, ok := f.channels[id]
	if !ok {
		return nil, redis.Nil
	}
	return ch, nil
}

func (f *fakeTransport) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, s)
	return nil
}

func (f *fakeTransport) SendMessage(_ context.Context, channel, text string) error {
	return f.record(sent{Kind: "rtm", Channel: channel, Text: text})
}

func (f *fakeTransport) SendRichMessage(_ context.Context, channel, text string, attachments []chat.Attachment) error {
	return f.record(sent{Kind: "api", Channel: channel, Text: text, Attachments: attachments})
}

func (f *fakeTransport) SendFrame(_ context.Context, payload any) error {
	return f.record(sent{Kind: "frame", Payload: payload})
}

func (f *fakeTransport) React(_ context.Context, emoji, channel, timestamp string) error {
	return f.record(sent{Kind: "reaction", Channel: channel, Emoji: emoji, Timestamp: timestamp})
}

func (f *fakeTransport) Sent() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sent, len(f.sent))
	copy(out, f.sent)
	return out
}

var errBoom = errors.New("boom")
