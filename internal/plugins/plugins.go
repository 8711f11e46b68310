// Package plugins holds the bot's plugin units and the loader that registers them.
//
// A unit groups related handlers. Units are registered explicitly, before the
// dispatcher starts, by passing them to Load.
package plugins

import (
	"fmt"
	"log"
	"sort"

	"github.com/dyluth/natter/internal/config"
	"github.com/dyluth/natter/internal/dispatch"
)

// Unit is a named group of handlers.
type Unit interface {
	Name() string
	Register(r *dispatch.Registry) error
}

// LoadResult reports which units registered cleanly.
type LoadResult struct {
	Loaded []string
	Failed map[string]error
}

// Load registers every unit in order. A unit that errors or panics is logged and
// skipped; loading continues with the next unit.
func Load(registry *dispatch.Registry, units []Unit) LoadResult {
	result := LoadResult{Failed: make(map[string]error)}

	for _, unit := range units {
		name := unit.Name()
		log.Printf("[INFO] Loading plugin %q", name)

		if err := register(registry, unit); err != nil {
			log.Printf("[ERROR] Failed to load plugin %q: %v", name, err)
			result.Failed[name] = err
			continue
		}
		result.Loaded = append(result.Loaded, name)
	}

	return result
}

func register(registry *dispatch.Registry, unit Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during registration: %v", r)
		}
	}()
	return unit.Register(registry)
}

// Builtin returns every built-in unit keyed by name.
func Builtin() map[string]Unit {
	units := []Unit{
		Ping{},
		Help{},
		Greetings{},
		Echo{},
		Attachment{},
	}

	byName := make(map[string]Unit, len(units))
	for _, u := range units {
		byName[u.Name()] = u
	}
	return byName
}

// Select resolves the configured plugin set. An empty enabled list selects every
// built-in unit in name order. Configured static replies are appended last.
func Select(cfg config.PluginsConfig) ([]Unit, error) {
	builtin := Builtin()

	names := cfg.Enabled
	if len(names) == 0 {
		for name := range builtin {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	units := make([]Unit, 0, len(names)+1)
	for _, name := range names {
		unit, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("unknown plugin: %q", name)
		}
		units = append(units, unit)
	}

	if len(cfg.Replies) > 0 {
		units = append(units, Replies(cfg.Replies))
	}

	return units, nil
}
