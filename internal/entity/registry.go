package entity

import "fmt"

// Commander is implemented by entities that accept commands (switches,
// selects).
type Commander interface {
	Entity
	Command(cmd string) error
}

// Registry is the ordered list of all entities of a node. It is filled during
// startup and closed before the scheduler runs.
type Registry struct {
	entities []Entity
	byKey    map[string]Entity
	closed   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Entity)}
}

func key(domain Domain, objectID string) string { return string(domain) + "/" + objectID }

// Add appends e. Object ids must be unique per domain. Adding to a closed
// registry panics.
func (r *Registry) Add(e Entity) error {
	if r.closed {
		panic(fmt.Sprintf("entity: Add(%q) after Close", e.Info().Name))
	}
	info := e.Info()
	k := key(info.Domain, info.ObjectID)
	if _, exists := r.byKey[k]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, k)
	}
	r.byKey[k] = e
	r.entities = append(r.entities, e)
	return nil
}

// MustAdd is Add that panics on duplicates.
func (r *Registry) MustAdd(e Entity) {
	if err := r.Add(e); err != nil {
		panic(err)
	}
}

// Close forbids further additions.
func (r *Registry) Close() { r.closed = true }

// All returns the entities in insertion order.
func (r *Registry) All() []Entity {
	out := make([]Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

// ByObjectID looks an entity up.
func (r *Registry) ByObjectID(domain Domain, objectID string) (Entity, bool) {
	e, ok := r.byKey[key(domain, objectID)]
	return e, ok
}

// Len returns the number of entities.
func (r *Registry) Len() int { return len(r.entities) }
