package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client is a workspace-scoped chat transport backed by Redis.
// All keys and channels are automatically namespaced with the workspace name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	workspace string
	self      Identity

	iconURL   string
	iconEmoji string

	mu      sync.Mutex
	pending []Event
	inbound *redis.PubSub
}

// NewClient creates a new chat client for the specified workspace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - workspace: workspace identifier (must not be empty)
//   - self: the bot's own identity on the chat backend (ID must not be empty)
func NewClient(redisOpts *redis.Options, workspace string, self Identity) (*Client, error) {
	if workspace == "" {
		return nil, fmt.Errorf("workspace name cannot be empty")
	}
	if self.ID == "" {
		return nil, fmt.Errorf("bot identity requires an ID")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		workspace: workspace,
		self:      self,
	}, nil
}

// SetBotIcon sets the icon passed through on rich messages. Either value may be empty.
func (c *Client) SetBotIcon(iconURL, iconEmoji string) {
	c.iconURL = iconURL
	c.iconEmoji = iconEmoji
}

// Close stops the inbound subscription and closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	c.mu.Lock()
	inbound := c.inbound
	c.inbound = nil
	c.mu.Unlock()

	if inbound != nil {
		inbound.Close()
	}
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Self returns the bot's own identity.
func (c *Client) Self() Identity {
	return c.self
}

// Connect subscribes to the workspace's inbound event channel.
// Events received after Connect returns are buffered until the next ReadEvents call.
// Returns an error if the client is already connected or the subscription fails.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.inbound != nil {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	c.mu.Unlock()

	pubsub := c.rdb.Subscribe(ctx, InboundEventsChannel(c.workspace))

	// Wait for the subscription confirmation so no event published after Connect is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to inbound events: %w", err)
	}

	c.mu.Lock()
	c.inbound = pubsub
	c.mu.Unlock()

	go c.receive(pubsub)

	return nil
}

// receive buffers inbound events until the subscription is closed.
// Malformed payloads are logged and skipped.
func (c *Client) receive(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("[WARN] Skipping malformed inbound event: %v", err)
			continue
		}

		c.mu.Lock()
		c.pending = append(c.pending, ev)
		c.mu.Unlock()
	}
}

// ReadEvents returns every event received since the previous call.
// Never blocks; returns an empty batch when nothing is pending.
func (c *Client) ReadEvents(ctx context.Context) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inbound == nil {
		return nil, fmt.Errorf("not connected")
	}

	batch := c.pending
	c.pending = nil
	return batch, nil
}

// PublishEvent publishes an inbound event, as the chat backend would.
// Fills in the type and timestamp when they are missing.
func (c *Client) PublishEvent(ctx context.Context, ev Event) error {
	if ev.Type == "" {
		ev.Type = EventTypeMessage
	}
	if ev.TS == "" {
		ev.TS = NewTimestamp(time.Now())
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := c.rdb.Publish(ctx, InboundEventsChannel(c.workspace), data).Err(); err != nil {
		return fmt.Errorf("failed to publish inbound event: %w", err)
	}

	return nil
}

// SendMessage sends a plain message over the realtime route.
func (c *Client) SendMessage(ctx context.Context, channel, text string) error {
	return c.publish(ctx, &Frame{
		Type:    FrameTypeMessage,
		Via:     ViaRealtime,
		Channel: channel,
		Text:    text,
	})
}

// SendRichMessage sends a message with attachments over the API route.
// The bot icon, if configured, is attached to the frame.
func (c *Client) SendRichMessage(ctx context.Context, channel, text string, attachments []Attachment) error {
	return c.publish(ctx, &Frame{
		Type:        FrameTypeMessage,
		Via:         ViaAPI,
		Channel:     channel,
		Text:        text,
		Attachments: attachments,
		IconURL:     c.iconURL,
		IconEmoji:   c.iconEmoji,
	})
}

// SendFrame sends an arbitrary JSON-encodable payload as a raw frame.
func (c *Client) SendFrame(ctx context.Context, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal raw frame: %w", err)
	}

	return c.publish(ctx, &Frame{
		Type: FrameTypeRaw,
		Raw:  raw,
	})
}

// React adds an emoji reaction to the message identified by channel and timestamp.
func (c *Client) React(ctx context.Context, emoji, channel, timestamp string) error {
	return c.publish(ctx, &Frame{
		Type:      FrameTypeReaction,
		Channel:   channel,
		Emoji:     emoji,
		Timestamp: timestamp,
	})
}

// KeepAlive checks Redis connectivity and publishes a ping frame so the gateway
// knows the bot is still running.
func (c *Client) KeepAlive(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return c.publish(ctx, &Frame{Type: FrameTypePing})
}

func (c *Client) publish(ctx context.Context, f *Frame) error {
	f.ID = uuid.New().String()
	f.CreatedAtMs = time.Now().UnixMilli()

	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid frame: %w", err)
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	if err := c.rdb.Publish(ctx, OutboundEventsChannel(c.workspace), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s frame: %w", f.Type, err)
	}

	return nil
}

// SetUser records a user in the workspace directory, indexed both ways.
func (c *Client) SetUser(ctx context.Context, id, name string) error {
	if id == "" || name == "" {
		return fmt.Errorf("user id and name are required")
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, UsersKey(c.workspace), id, name)
		pipe.HSet(ctx, UsernamesKey(c.workspace), name, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write user to Redis: %w", err)
	}

	return nil
}

// UserName resolves a user ID to its display name.
// Returns ("", redis.Nil) if the user is unknown. Use IsNotFound() to check.
func (c *Client) UserName(ctx context.Context, id string) (string, error) {
	return c.lookup(ctx, UsersKey(c.workspace), id)
}

// UserID resolves a display name to its user ID.
// Returns ("", redis.Nil) if the name is unknown.
func (c *Client) UserID(ctx context.Context, name string) (string, error) {
	return c.lookup(ctx, UsernamesKey(c.workspace), name)
}

func (c *Client) lookup(ctx context.Context, key, field string) (string, error) {
	if field == "" {
		return "", redis.Nil
	}

	value, err := c.rdb.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to read %s from Redis: %w", key, err)
	}

	return value, nil
}

// SetChannel writes a channel description to Redis.
func (c *Client) SetChannel(ctx context.Context, ch *Channel) error {
	if ch.ID == "" {
		return fmt.Errorf("channel id is required")
	}

	hash, err := ChannelToHash(ch)
	if err != nil {
		return fmt.Errorf("failed to serialize channel: %w", err)
	}

	if err := c.rdb.HSet(ctx, ChannelKey(c.workspace, ch.ID), hash).Err(); err != nil {
		return fmt.Errorf("failed to write channel to Redis: %w", err)
	}

	return nil
}

// Channel retrieves a channel by ID.
// Returns (nil, redis.Nil) if the channel doesn't exist.
func (c *Client) Channel(ctx context.Context, id string) (*Channel, error) {
	hashData, err := c.rdb.HGetAll(ctx, ChannelKey(c.workspace, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read channel from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	ch, err := HashToChannel(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize channel: %w", err)
	}

	return ch, nil
}

// FrameSubscription represents an active Pub/Sub subscription to outbound frames.
// Caller must call Close() when done to clean up resources.
type FrameSubscription struct {
	frames <-chan *Frame
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Frames returns the channel of outbound frames.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *FrameSubscription) Frames() <-chan *Frame {
	return s.frames
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - messages are skipped.
func (s *FrameSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *FrameSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeFrames subscribes to the workspace's outbound frames.
// Used by the chat gateway, the watch command and tests.
//
// Frames are delivered on a buffered channel (size 10). If the subscriber is too slow,
// frames may be dropped by Redis Pub/Sub (at-most-once delivery).
func (c *Client) SubscribeFrames(ctx context.Context) (*FrameSubscription, error) {
	pubsub := c.rdb.Subscribe(ctx, OutboundEventsChannel(c.workspace))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to outbound frames: %w", err)
	}

	framesChan := make(chan *Frame, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(framesChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var frame Frame
				if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal frame: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case framesChan <- &frame:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &FrameSubscription{
		frames: framesChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// NewTimestamp renders t in the backend's "seconds.micros" message timestamp format.
func NewTimestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10) + "." + fmt.Sprintf("%06d", t.Nanosecond()/1000)
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if UserName, UserID or Channel returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
