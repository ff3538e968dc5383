package notifications

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// TypeRegistry maps type names to descriptors. Lookups read an immutable
// snapshot without locking; registrations copy the map under a mutex.
type TypeRegistry struct {
	mu    sync.Mutex
	types atomic.Pointer[map[string]NotificationType]
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{}
	empty := map[string]NotificationType{}
	r.types.Store(&empty)
	return r
}

// Register adds t. Registering the same name again with the same renderer
// is a no-op; a different renderer fails with ErrTypeConflict.
// It reports whether the type was newly added.
func (r *TypeRegistry) Register(t NotificationType) (bool, error) {
	if err := ValidateTypeName(t.Name); err != nil {
		return false, err
	}
	if t.Renderer == "" {
		return false, errors.Join(ErrUnknownRenderer, fmt.Errorf("type %q has no renderer", t.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.types.Load()
	if existing, ok := current[t.Name]; ok {
		if existing.Renderer != t.Renderer {
			return false, fmt.Errorf("%w: %q uses %q, got %q", ErrTypeConflict, t.Name, existing.Renderer, t.Renderer)
		}
		return false, nil
	}

	next := maps.Clone(current)
	t.RendererContext = Payload(t.RendererContext).Clone()
	next[t.Name] = t
	r.types.Store(&next)
	return true, nil
}

// Lookup returns the descriptor registered under name.
func (r *TypeRegistry) Lookup(name string) (NotificationType, bool) {
	t, ok := (*r.types.Load())[name]
	return t, ok
}

// Get returns the descriptor registered under name or ErrUnknownType.
func (r *TypeRegistry) Get(name string) (NotificationType, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return NotificationType{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// All returns a snapshot of every registered type ordered by name.
func (r *TypeRegistry) All() []NotificationType {
	current := *r.types.Load()
	out := slices.Collect(maps.Values(current))
	slices.SortFunc(out, func(a, b NotificationType) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
