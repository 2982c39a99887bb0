package schemamap

import (
	"context"
	"sync"
)

// ContextBag is the request-scoped store shared by reference across every
// handler invoked within one execution. Access is memory-safe, but the bag is
// weakly synchronized: concurrent writes from sibling field resolutions are
// not ordered, and no handler may assume exclusive ownership.
type ContextBag struct {
	mu     sync.Mutex
	values map[string]any
}

// NewContextBag creates an empty bag.
func NewContextBag() *ContextBag {
	return &ContextBag{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (b *ContextBag) Get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok
}

// Put stores value under key, replacing any previous value.
func (b *ContextBag) Put(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
}

// Delete removes key from the bag.
func (b *ContextBag) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
}

// FieldContext is the per-field resolution environment handed to handlers
// that declare it as a parameter.
type FieldContext struct {
	// TypeName is the parent GraphQL object type name.
	TypeName string
	// FieldName is the field being resolved.
	FieldName string
	// Path is the response path of the field.
	Path []any
	// Args holds the field's raw argument values, coerced per the schema.
	Args map[string]any
	// Parent is the parent resolved value (nil for root fields).
	Parent any
	// Bag is the operation's shared context bag.
	Bag *ContextBag
	// ExecutionID identifies the execution pass.
	ExecutionID string
}

type bagKey struct{}

func withBag(ctx context.Context, bag *ContextBag) context.Context {
	return context.WithValue(ctx, bagKey{}, bag)
}

func bagFrom(ctx context.Context) *ContextBag {
	if b, ok := ctx.Value(bagKey{}).(*ContextBag); ok {
		return b
	}
	return nil
}
