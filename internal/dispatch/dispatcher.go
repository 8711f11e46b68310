package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/natter/internal/pool"
	"github.com/dyluth/natter/pkg/chat"
)

// mentionPattern recognises "<@USERID>: rest" or "<@USERID> rest" at the start of a text.
var mentionPattern = regexp.MustCompile(`^<@(\w+)>:? (.*)$`)

// DefaultReservedNames are authors whose messages are never dispatched.
var DefaultReservedNames = []string{"slackbot"}

// genericFailureReply is sent when a handler fails and debug output is off.
const genericFailureReply = "I have problem when handling your request"

// Task is one classified event waiting for a worker.
type Task struct {
	Category Category
	Event    chat.Event
}

// Options configures a Dispatcher.
type Options struct {
	// Debug includes the failure detail in the reply sent when a handler fails.
	Debug bool

	// Workers is the number of concurrent handler workers (default pool.DefaultWorkers).
	Workers int

	// ReservedNames are system authors whose messages are ignored (default DefaultReservedNames).
	ReservedNames []string

	// DefaultReply is sent when no respond_to pattern matches. Ignored if DefaultReplyFunc is set.
	DefaultReply string

	// DefaultReplyFunc handles unmatched respond_to messages instead of the help reply.
	DefaultReplyFunc func(msg *Message) error
}

// Dispatcher classifies inbound events and runs matching plugin handlers on a worker pool.
//
// The flow for one event is:
//  1. HandleEvent classifies it (ignore / respond_to / listen_to) on the caller's goroutine
//  2. The resulting Task is queued on the pool
//  3. A worker runs Execute, which invokes every matching handler in registration order
//  4. Unmatched respond_to tasks get the fallback reply
type Dispatcher struct {
	transport Transport
	registry  *Registry
	opts      Options
	reserved  map[string]bool
	pool      *pool.Pool[Task]

	ctx context.Context

	helpOnce  sync.Once
	helpLines []string
}

// New creates a dispatcher. The registry is sealed when Start is called.
func New(transport Transport, registry *Registry, opts Options) *Dispatcher {
	names := opts.ReservedNames
	if names == nil {
		names = DefaultReservedNames
	}
	reserved := make(map[string]bool, len(names))
	for _, name := range names {
		reserved[name] = true
	}

	d := &Dispatcher{
		transport: transport,
		registry:  registry,
		opts:      opts,
		reserved:  reserved,
		ctx:       context.Background(),
	}
	d.pool = pool.New(func(task Task) {
		d.Execute(d.ctx, task)
	}, opts.Workers)

	return d
}

// Start seals the registry and launches the workers. Handlers run with ctx, and
// cancelling it stops the workers once their current task is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.registry.Seal()
	d.ctx = ctx
	d.pool.Start(ctx)

	log.Printf("[Dispatcher] Started with %d respond_to and %d listen_to patterns",
		d.registry.Len(RespondTo), d.registry.Len(ListenTo))
}

// Wait blocks until the workers have exited after cancellation.
func (d *Dispatcher) Wait() {
	d.pool.Wait()
}

// Stats reports worker pool activity.
func (d *Dispatcher) Stats() pool.Stats {
	return d.pool.Stats()
}

// HandleEvent classifies ev and queues it for the workers. It never blocks on handlers.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev chat.Event) {
	task, ok := d.Classify(ctx, ev)
	if !ok {
		return
	}

	d.logEvent("task_queued", map[string]interface{}{
		"category": string(task.Category),
		"channel":  task.Event.Channel,
		"ts":       task.Event.TS,
	})
	d.pool.AddTask(task)
}

// Classify decides whether ev should be dispatched and under which category.
// Returns false for events that must be ignored: non-messages, edits, messages from
// unknown authors, from the bot itself or from reserved system users, and events
// without a channel.
func (d *Dispatcher) Classify(ctx context.Context, ev chat.Event) (Task, bool) {
	if ev.Type != chat.EventTypeMessage || ev.Subtype == chat.SubtypeMessageChanged {
		return Task{}, false
	}

	author, ok := d.resolveAuthor(ctx, ev)
	if !ok {
		return Task{}, false
	}
	if author == d.transport.Self().Name || d.reserved[author] {
		return Task{}, false
	}

	if ev.Channel == "" {
		log.Printf("[WARN] Dropping message from %s without channel", author)
		return Task{}, false
	}

	if directed, ok := d.FilterText(ev); ok {
		return Task{Category: RespondTo, Event: directed}, true
	}
	return Task{Category: ListenTo, Event: ev}, true
}

// resolveAuthor looks up the author's display name, falling back to the event's
// literal username.
func (d *Dispatcher) resolveAuthor(ctx context.Context, ev chat.Event) (string, bool) {
	if ev.User != "" {
		name, err := d.transport.UserName(ctx, ev.User)
		if err == nil && name != "" {
			return name, true
		}
		if err != nil && !chat.IsNotFound(err) {
			log.Printf("[WARN] Failed to resolve user %s: %v", ev.User, err)
		}
	}

	if ev.Username != "" {
		return ev.Username, true
	}
	return "", false
}

// FilterText decides whether ev is directed at the bot and returns a copy with the
// mention stripped.
//
// In multi-party channels the text must start with a mention of the bot; otherwise
// the event is not directed (false). In direct channels every message is directed
// and a leading mention, if any, is stripped.
func (d *Dispatcher) FilterText(ev chat.Event) (chat.Event, bool) {
	m := mentionPattern.FindStringSubmatch(ev.Text)

	if chat.IsMultiParty(ev.Channel) {
		if m == nil {
			return chat.Event{}, false
		}
		if m[1] != d.transport.Self().ID {
			// A channel message addressed to someone else
			return chat.Event{}, false
		}
		log.Printf("[DEBUG] Got a mention: %s", m[2])
		ev.Text = m[2]
		return ev, true
	}

	if m != nil {
		ev.Text = m[2]
	}
	return ev, true
}

// Execute runs every handler matching the task's text. Each handler runs under its
// own guard: a failure is logged and answered with one failure reply, and the
// remaining handlers still run. An unmatched respond_to task gets the fallback reply.
func (d *Dispatcher) Execute(ctx context.Context, task Task) {
	text := task.Event.Text
	responded := false

	for _, match := range d.registry.Match(task.Category, text) {
		if match.Handler == nil {
			continue
		}
		responded = true

		msg := NewMessage(ctx, d.transport, d.registry, task.Event)
		if detail, err := invoke(match.Handler.Handler, msg, match.Args); err != nil {
			d.handleFailure(ctx, task.Event, match.Handler.Name, err, detail)
		}
	}

	if !responded && task.Category == RespondTo {
		d.defaultReply(ctx, task.Event)
	}
}

// invoke calls fn, turning a panic into an error. detail carries the stack for panics.
func invoke(fn HandlerFunc, msg *Message, args []string) (detail string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			detail = string(debug.Stack())
		}
	}()

	return "", fn(msg, args)
}

// handleFailure logs a handler failure and sends exactly one reply about it.
func (d *Dispatcher) handleFailure(ctx context.Context, ev chat.Event, name string, err error, detail string) {
	log.Printf("[ERROR] Failed to handle message %q with plugin %q: %v", ev.Text, name, err)
	d.logEvent("handler_failed", map[string]interface{}{
		"plugin":  name,
		"channel": ev.Channel,
		"error":   err.Error(),
	})

	reply := genericFailureReply
	if d.opts.Debug {
		trace := err.Error()
		if detail != "" {
			trace += "\n" + detail
		}
		reply = fmt.Sprintf("[%s] I have problem when handling \"%s\"\n", name, ev.Text)
		reply += fmt.Sprintf("```\n%s\n```", trace)
	}

	if sendErr := d.transport.SendMessage(ctx, ev.Channel, reply); sendErr != nil {
		log.Printf("[ERROR] Failed to send failure reply to %s: %v", ev.Channel, sendErr)
	}
}

// defaultReply answers a respond_to message no pattern matched: the configured
// callback, else the configured text, else a list of the available commands.
func (d *Dispatcher) defaultReply(ctx context.Context, ev chat.Event) {
	msg := NewMessage(ctx, d.transport, d.registry, ev)

	var err error
	switch {
	case d.opts.DefaultReplyFunc != nil:
		err = invokeDefault(d.opts.DefaultReplyFunc, msg)
	case d.opts.DefaultReply != "":
		err = msg.Reply(d.opts.DefaultReply)
	default:
		err = msg.Reply(d.HelpReply(ev.Text))
	}

	if err != nil {
		log.Printf("[ERROR] Failed to send default reply to %s: %v", ev.Channel, err)
	}
}

func invokeDefault(fn func(*Message) error, msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("default reply panicked: %v", r)
		}
	}()
	return fn(msg)
}

// HelpReply renders the fallback help text for an unmatched command. The command
// list is built once from the sealed registry; the header quotes text.
func (d *Dispatcher) HelpReply(text string) string {
	d.helpOnce.Do(func() {
		for _, e := range d.registry.Enumerate(RespondTo) {
			d.helpLines = append(d.helpLines, helpLine(e.Pattern, e.Description))
		}
	})

	parts := make([]string, 0, len(d.helpLines)+1)
	parts = append(parts, fmt.Sprintf("Bad command \"%s\", You can ask me one of the following questions:\n", text))
	parts = append(parts, d.helpLines...)
	return strings.Join(parts, "\n")
}

// logEvent logs a structured event in JSON format.
func (d *Dispatcher) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "dispatcher"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Dispatcher] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
