// Package signals provides the slot registry and the Signaler, the dispatch core
// that resolves slot names and carries per-execution ambient state.
package signals

import (
	"context"
	"sort"
	"strings"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
)

// SlotFunc is the synchronous slot contract: read and mutate n, optionally
// using the signaler's scope stack.
type SlotFunc func(s *Signaler, n *lambda.Node) error

// AsyncSlotFunc is the asynchronous slot contract. Implementations may block
// and should honour ctx.
type AsyncSlotFunc func(ctx context.Context, s *Signaler, n *lambda.Node) error

// Entry defines a single slot with its implementations and metadata.
// This serves as the single source of truth for both dispatch and introspection.
type Entry struct {
	Name        string
	Sync        SlotFunc
	Async       AsyncSlotFunc
	Description string
}

// SupportsSync reports whether the slot can be signaled synchronously.
func (e Entry) SupportsSync() bool { return e.Sync != nil }

// SupportsAsync reports whether the slot can be signaled asynchronously.
func (e Entry) SupportsAsync() bool { return e.Async != nil }

// Registry maps slot names to their entries. It is immutable once built.
type Registry struct {
	entries map[string]Entry
	names   []string
}

// NewRegistry validates entries and builds a registry.
// Every name must be non-empty and unique, and every entry must have at least one implementation.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		switch {
		case strings.TrimSpace(e.Name) == "":
			return nil, perrors.New("SLOT-0006", map[string]any{"Reason": "empty slot name"})
		case e.Sync == nil && e.Async == nil:
			return nil, perrors.New("SLOT-0006", map[string]any{"Reason": "slot '" + e.Name + "' has no implementation"})
		}
		if _, exists := r.entries[e.Name]; exists {
			return nil, perrors.New("SLOT-0004", map[string]any{"Name": e.Name})
		}
		r.entries[e.Name] = e
		r.names = append(r.names, e.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the entry for the given name, if it exists.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns a sorted list of slot names.
// Used for fuzzy matching in error messages.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Entries returns all entries sorted by name.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.entries[name])
	}
	return out
}

// Len returns the number of registered slots.
func (r *Registry) Len() int {
	return len(r.names)
}
