// Package virtual renders software-generated sources: test patterns,
// solid colors, and title cards. Generators are pure, a frame is
// rendered on demand at the requested size.
package virtual

import (
	"fmt"
	"image"
	"sort"
	"sync"
)

// Generator renders frames for one virtual source.
type Generator interface {
	// ID is the stable identifier used to load the source into a slot.
	ID() string
	// Name is the human-readable label.
	Name() string
	// Render draws one frame at the given size.
	Render(width, height int) *image.NRGBA
}

// Registry holds the available virtual sources.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry creates a registry preloaded with the built-in sources:
// color bars, black, white, and a default title card.
func NewRegistry() *Registry {
	r := &Registry{generators: make(map[string]Generator)}
	r.Register(Bars())
	r.Register(Solid("black", "Black", 0, 0, 0))
	r.Register(Solid("white", "White", 255, 255, 255))
	r.Register(Title("title", "Title Card", "STUDIO SWITCH"))
	return r
}

// Register adds or replaces a generator.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.ID()] = g
}

// Lookup resolves a virtual source by ID.
func (r *Registry) Lookup(id string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[id]
	if !ok {
		return nil, fmt.Errorf("unknown virtual source %q", id)
	}
	return g, nil
}

// List returns all generators sorted by ID.
func (r *Registry) List() []Generator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Generator, 0, len(r.generators))
	for _, g := range r.generators {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
