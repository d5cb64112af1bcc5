package agent

import (
	"errors"
	"fmt"

	"github.com/travela2a/concierge/backend/internal/analysis/intent"
)

// ErrUnknownAgent is returned when a key is not in the registry.
var ErrUnknownAgent = errors.New("unknown agent")

// Store exposes agent lookup for HTTP handlers.
type Store interface {
	List() []Descriptor
	Find(key Key) (Descriptor, bool)
}

// routes maps every intent onto exactly one agent.
var routes = map[intent.Intent]Key{
	intent.Restaurant:    Restaurant,
	intent.Activity:      Activity,
	intent.GeneralTravel: Travel,
}

// Registry is built once at startup and is read-only afterwards.
type Registry struct {
	items []Descriptor
	byKey map[Key]Descriptor
}

// NewRegistry validates items and indexes them. Every intent must resolve to a
// registered agent so ForIntent cannot miss.
func NewRegistry(items []Descriptor) (*Registry, error) {
	r := &Registry{byKey: make(map[Key]Descriptor, len(items))}
	for _, item := range items {
		if item.Key == "" {
			return nil, errors.New("agent key is required")
		}
		if _, dup := r.byKey[item.Key]; dup {
			return nil, fmt.Errorf("duplicate agent key %q", item.Key)
		}
		r.byKey[item.Key] = item
		r.items = append(r.items, item)
	}
	for _, in := range intent.All {
		key, ok := routes[in]
		if !ok {
			return nil, fmt.Errorf("intent %q has no route", in)
		}
		if _, ok := r.byKey[key]; !ok {
			return nil, fmt.Errorf("intent %q routes to missing agent %q", in, key)
		}
	}
	return r, nil
}

// List returns the registered agents in registration order.
func (r *Registry) List() []Descriptor {
	return append([]Descriptor(nil), r.items...)
}

// Find looks up an agent by key.
func (r *Registry) Find(key Key) (Descriptor, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

// ForIntent resolves the agent serving in. Unknown intents fall back to the
// general travel agent.
func (r *Registry) ForIntent(in intent.Intent) Descriptor {
	key, ok := routes[in]
	if !ok {
		key = routes[intent.GeneralTravel]
	}
	return r.byKey[key]
}
