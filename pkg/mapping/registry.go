package mapping

import (
	"sort"
	"sync"

	"github.com/rowmap/rowmap/pkg/schema"
)

// Registry is a thread-safe, append-only map from a typeId discriminator to
// a factory for one polymorphic axis (rules, transformations, comparisons).
// Registrations are never overwritten or removed for the process lifetime;
// when two writers race on the same typeId, one wins and the other gets a
// CONFLICT error.
type Registry[T any] struct {
	kind string

	mu        sync.RWMutex
	factories map[string]func() T
}

// NewRegistry creates an empty registry; kind names the axis in error
// messages ("rule", "transformation", "comparison").
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:      kind,
		factories: make(map[string]func() T),
	}
}

// Register adds a factory under a typeId. Returns an error on duplicates.
func (r *Registry[T]) Register(typeID string, factory func() T) error {
	if typeID == "" {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s typeId is empty", r.kind)
	}
	if factory == nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s factory for %q is nil", r.kind, typeID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeID]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "%s type %q already registered", r.kind, typeID)
	}

	r.factories[typeID] = factory
	return nil
}

// MustRegister registers a factory and panics on error. Built-in types use
// it at package init; hosts should prefer Register.
func (r *Registry[T]) MustRegister(typeID string, factory func() T) {
	if err := r.Register(typeID, factory); err != nil {
		panic(err)
	}
}

// Resolve returns the factory for a typeId, or a NOT_FOUND error.
func (r *Registry[T]) Resolve(typeID string) (func() T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[typeID]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "%s type %q not registered", r.kind, typeID)
	}
	return factory, nil
}

// TryResolve returns the factory for a typeId and whether it exists.
func (r *Registry[T]) TryResolve(typeID string) (func() T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[typeID]
	return factory, ok
}

// Has checks whether a typeId is registered.
func (r *Registry[T]) Has(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typeID]
	return ok
}

// List returns all registered typeIds, sorted.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// The process-wide registries, one per polymorphic axis. Built-in variants
// register at package init; hosts add custom variants during startup, before
// any (de)serialization that involves them.
var (
	Rules           = NewRegistry[Rule]("rule")
	Transformations = NewRegistry[Transformation]("transformation")
	Comparisons     = NewRegistry[Comparison]("comparison")
)
