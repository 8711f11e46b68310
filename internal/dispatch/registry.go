package dispatch

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

// Category selects which messages a pattern is evaluated against.
type Category string

const (
	// RespondTo patterns only see text explicitly directed at the bot.
	RespondTo Category = "respond_to"

	// ListenTo patterns see every observed message that was not directed at the bot.
	ListenTo Category = "listen_to"
)

// Validate checks that the category is one of the known values.
func (c Category) Validate() error {
	switch c {
	case RespondTo, ListenTo:
		return nil
	default:
		return fmt.Errorf("invalid category: %q (must be 'respond_to' or 'listen_to')", c)
	}
}

// Flags modify how a pattern is compiled.
type Flags uint8

const (
	// IgnoreCase makes the pattern case-insensitive.
	IgnoreCase Flags = 1 << iota

	// Multiline lets ^ and $ match at line boundaries.
	Multiline

	// DotAll lets . match newlines.
	DotAll

	// Ungreedy swaps the meaning of x* and x*?.
	Ungreedy
)

func (f Flags) prefix() string {
	var b strings.Builder
	if f&IgnoreCase != 0 {
		b.WriteByte('i')
	}
	if f&Multiline != 0 {
		b.WriteByte('m')
	}
	if f&DotAll != 0 {
		b.WriteByte('s')
	}
	if f&Ungreedy != 0 {
		b.WriteByte('U')
	}
	if b.Len() == 0 {
		return ""
	}
	return "(?" + b.String() + ")"
}

// ParseFlags converts flag names as written in configuration files
// ("ignorecase", "multiline", "dotall", "ungreedy") into Flags.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ignorecase", "i":
			f |= IgnoreCase
		case "multiline", "m":
			f |= Multiline
		case "dotall", "s":
			f |= DotAll
		case "ungreedy", "u":
			f |= Ungreedy
		default:
			return 0, fmt.Errorf("unknown pattern flag: %q", name)
		}
	}
	return f, nil
}

// HandlerFunc handles one matched message. args holds the pattern's capture groups;
// an optional group that did not participate in the match is "".
// A returned error or a panic is treated as a handler failure.
type HandlerFunc func(msg *Message, args []string) error

// PatternHandler binds a compiled pattern to a handler.
type PatternHandler struct {
	Category    Category
	Source      string // Pattern as registered, without flag prefix
	Flags       Flags
	Pattern     *regexp.Regexp
	Name        string
	Description string
	Handler     HandlerFunc
}

// Match is one handler selected for a text, with its capture groups.
// The zero Match (nil Handler, nil Args) means "no pattern matched".
type Match struct {
	Handler *PatternHandler
	Args    []string
}

// HelpEntry describes a registered pattern for help output.
type HelpEntry struct {
	Pattern     string
	Name        string
	Description string
}

// Option customises a registration.
type Option func(*PatternHandler)

// WithName overrides the handler name used in logs and help text.
func WithName(name string) Option {
	return func(ph *PatternHandler) {
		ph.Name = name
	}
}

// WithDescription attaches a one-line description shown in help text.
func WithDescription(description string) Option {
	return func(ph *PatternHandler) {
		ph.Description = description
	}
}

// ErrRegistrySealed is returned by Register once dispatch has started.
var ErrRegistrySealed = errors.New("registry is sealed: registration must complete before dispatch starts")

// Registry holds pattern handlers per category in registration order.
//
// Registration happens during start-up. Seal freezes the registry; after that Match
// and Enumerate may be called from any number of goroutines without locking, since
// nothing mutates the handler lists any more.
type Registry struct {
	mu       sync.Mutex
	sealed   atomic.Bool
	handlers map[Category][]*PatternHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: map[Category][]*PatternHandler{
			RespondTo: {},
			ListenTo:  {},
		},
	}
}

// Register compiles pattern with flags and stores handler under category.
// Registering the same pattern and flags again replaces the handler while keeping
// the original registration position.
func (r *Registry) Register(category Category, pattern string, flags Flags, handler HandlerFunc, opts ...Option) error {
	if err := category.Validate(); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("handler for pattern %q cannot be nil", pattern)
	}

	compiled, err := regexp.Compile(flags.prefix() + pattern)
	if err != nil {
		return fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}

	ph := &PatternHandler{
		Category: category,
		Source:   pattern,
		Flags:    flags,
		Pattern:  compiled,
		Name:     funcName(handler),
		Handler:  handler,
	}
	for _, opt := range opts {
		opt(ph)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return ErrRegistrySealed
	}

	list := r.handlers[category]
	for i, existing := range list {
		if existing.Source == pattern && existing.Flags == flags {
			list[i] = ph
			log.Printf("[INFO] Replaced %s plugin %q for pattern %q", category, ph.Name, pattern)
			return nil
		}
	}
	r.handlers[category] = append(list, ph)

	log.Printf("[INFO] Registered %s plugin %q to %q", category, ph.Name, pattern)
	return nil
}

// Seal freezes the registry. Subsequent Register calls fail with ErrRegistrySealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Len returns the number of patterns registered under category.
func (r *Registry) Len(category Category) int {
	return len(r.handlers[category])
}

// Match returns every handler in category whose pattern matches somewhere in text,
// in registration order. All matching handlers are returned, not just the first.
// When nothing matches, the result is a single zero Match so callers can range over
// it and detect "no match" from the nil Handler.
func (r *Registry) Match(category Category, text string) []Match {
	var matches []Match
	for _, ph := range r.handlers[category] {
		groups := ph.Pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		matches = append(matches, Match{Handler: ph, Args: groups[1:]})
	}

	if len(matches) == 0 {
		return []Match{{}}
	}
	return matches
}

// Enumerate lists the patterns registered under category, in registration order.
func (r *Registry) Enumerate(category Category) []HelpEntry {
	list := r.handlers[category]
	entries := make([]HelpEntry, 0, len(list))
	for _, ph := range list {
		entries = append(entries, HelpEntry{
			Pattern:     ph.Source,
			Name:        ph.Name,
			Description: ph.Description,
		})
	}
	return entries
}

// funcName derives a readable name from a function value,
// e.g. "github.com/x/plugins.(*Ping).pong-fm" becomes "pong".
func funcName(fn any) string {
	full := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	name := full[strings.LastIndex(full, ".")+1:]
	name = strings.TrimSuffix(name, "-fm")
	if name == "" {
		return full
	}
	return name
}
