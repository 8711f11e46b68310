// Package bot wires the transport, the plugin units and the dispatcher together
// and runs the ingestion and keepalive loops.
package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dyluth/natter/internal/dispatch"
	"github.com/dyluth/natter/internal/plugins"
	"github.com/dyluth/natter/pkg/chat"
)

// Defaults for Options left at zero.
const (
	DefaultPollInterval      = 1 * time.Second
	DefaultKeepaliveInterval = 30 * time.Minute
)

// Transport is the full chat connection the bot drives.
type Transport interface {
	dispatch.Transport

	// Connect starts receiving inbound events.
	Connect(ctx context.Context) error

	// ReadEvents returns the events received since the last call, without blocking.
	ReadEvents(ctx context.Context) ([]chat.Event, error)

	// KeepAlive keeps the connection from being considered idle.
	KeepAlive(ctx context.Context) error
}

// Options configures a Bot.
type Options struct {
	PollInterval      time.Duration
	KeepaliveInterval time.Duration
	Dispatch          dispatch.Options
}

// Bot runs one chat connection.
//
// Run performs start-up in a fixed order: plugin units are registered, the
// dispatcher seals the registry and starts its workers, the transport connects,
// and only then do the keepalive and ingestion loops begin.
type Bot struct {
	transport  Transport
	units      []plugins.Unit
	opts       Options
	registry   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	wg         sync.WaitGroup
}

// New creates a bot. Nothing runs until Run is called.
func New(transport Transport, units []plugins.Unit, opts Options) *Bot {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = DefaultKeepaliveInterval
	}

	registry := dispatch.NewRegistry()
	return &Bot{
		transport:  transport,
		units:      units,
		opts:       opts,
		registry:   registry,
		dispatcher: dispatch.New(transport, registry, opts.Dispatch),
	}
}

// Dispatcher exposes the dispatcher, e.g. for health reporting.
func (b *Bot) Dispatcher() *dispatch.Dispatcher {
	return b.dispatcher
}

// Registry exposes the handler registry.
func (b *Bot) Registry() *dispatch.Registry {
	return b.registry
}

// Run starts the bot and blocks until ctx is cancelled or the transport fails to connect.
// On return every goroutine the bot started has exited.
func (b *Bot) Run(ctx context.Context) error {
	self := b.transport.Self()
	log.Printf("[INFO] Bot starting as %s (%s)", self.Name, self.ID)

	result := plugins.Load(b.registry, b.units)
	log.Printf("[INFO] Loaded %d plugins (%d failed)", len(result.Loaded), len(result.Failed))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.dispatcher.Start(runCtx)

	if err := b.transport.Connect(runCtx); err != nil {
		cancel()
		b.dispatcher.Wait()
		return fmt.Errorf("failed to connect transport: %w", err)
	}
	log.Printf("[INFO] Connected to chat transport")

	b.wg.Add(1)
	go b.keepAlive(runCtx)

	b.ingest(runCtx)

	log.Printf("[INFO] Shutdown signal received, initiating graceful shutdown")
	b.wg.Wait()
	b.dispatcher.Wait()
	log.Printf("[INFO] All goroutines exited, shutdown complete")

	return nil
}

// ingest polls the transport and hands every event to the dispatcher.
// It never runs handlers itself.
func (b *Bot) ingest(ctx context.Context) {
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			events, err := b.transport.ReadEvents(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] Failed to read events: %v", err)
				continue
			}

			for _, ev := range events {
				b.dispatcher.HandleEvent(ctx, ev)
			}
		}
	}
}

func (b *Bot) keepAlive(ctx context.Context) {
	defer b.wg.Done()
	defer log.Printf("[DEBUG] Keepalive loop exited cleanly")

	ticker := time.NewTicker(b.opts.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := b.transport.KeepAlive(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[WARN] Keepalive failed: %v", err)
			}
		}
	}
}
