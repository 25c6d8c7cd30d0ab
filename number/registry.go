package number

import (
	"fmt"
	"sync"
)

// Registry is an ordered set of entities keyed by unique id
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Entity
	order []string
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Entity)}
}

// Add registers entities in order. Nothing is added if any id collides.
func (r *Registry) Add(entities ...Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		id := e.UniqueID()
		if _, ok := r.byID[id]; ok || seen[id] {
			return fmt.Errorf("%s: %w", id, ErrDuplicateID)
		}
		seen[id] = true
	}
	for _, e := range entities {
		r.byID[e.UniqueID()] = e
		r.order = append(r.order, e.UniqueID())
	}
	return nil
}

// Get looks up an entity by unique id
func (r *Registry) Get(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

// Remove drops an entity; unknown ids are ignored
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Entities returns the registered entities in registration order
func (r *Registry) Entities() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

var defaultRegistry = NewRegistry()

// Register adds entities to the process-wide registry
func Register(entities ...Entity) error {
	return defaultRegistry.Add(entities...)
}

// Lookup finds an entity in the process-wide registry
func Lookup(id string) (Entity, bool) {
	return defaultRegistry.Get(id)
}

// Unregister removes an entity from the process-wide registry
func Unregister(id string) {
	defaultRegistry.Remove(id)
}

// All returns every entity in the process-wide registry
func All() []Entity {
	return defaultRegistry.Entities()
}
