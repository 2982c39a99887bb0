package schemamap

import "sync"

type bindingKey struct {
	typeName string
	field    string
}

// Registry holds the handler bindings of one service. Bindings are added at
// configuration time and looked up during execution.
type Registry struct {
	mu       sync.RWMutex
	handlers map[bindingKey]*HandlerDescriptor
	order    []*HandlerDescriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[bindingKey]*HandlerDescriptor)}
}

// Bind registers the descriptors. A malformed descriptor or a duplicate
// (type, field) pair aborts the call with the first error found; earlier
// descriptors in the same call stay registered.
func (r *Registry) Bind(descriptors ...*HandlerDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range descriptors {
		if d.err != nil {
			return d.err
		}
		key := bindingKey{d.TypeName, d.Field}
		if _, exists := r.handlers[key]; exists {
			return &DuplicateBindingError{TypeName: d.TypeName, Field: d.Field}
		}
		r.handlers[key] = d
		r.order = append(r.order, d)
	}
	return nil
}

// Lookup returns the handler bound to the (type, field) pair.
func (r *Registry) Lookup(typeName, field string) (*HandlerDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.handlers[bindingKey{typeName, field}]
	return d, ok
}

// All returns the bound descriptors in registration order.
func (r *Registry) All() []*HandlerDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*HandlerDescriptor, len(r.order))
	copy(out, r.order)
	return out
}
