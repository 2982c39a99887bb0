package schemamap

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	eventbus "github.com/hanpama/schemamap/internal/eventbus"
	events "github.com/hanpama/schemamap/internal/events"
)

// BatchFunc loads the values for a batch of unique keys in one call. The
// returned slice must align positionally with keys; a shorter or longer slice
// fails the whole batch.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// Deferred is a result placeholder produced by an asynchronous handler.
// Resolve blocks until the owning batch has been dispatched and settled.
type Deferred interface {
	Resolve(ctx context.Context) (any, error)
}

type typePair struct {
	key   reflect.Type
	value reflect.Type
}

type registration struct {
	pair       typePair
	handleType reflect.Type
	dispatch   func(ctx context.Context, keys []any) ([]any, error)
	makeHandle func(c *Coordinator) reflect.Value
}

// LoaderRegistry holds the batch loading functions of one service, keyed by
// their (key type, value type) pair.
type LoaderRegistry struct {
	mu       sync.Mutex
	byPair   map[typePair]*registration
	byHandle map[reflect.Type]*registration
}

// NewLoaderRegistry creates an empty loader registry.
func NewLoaderRegistry() *LoaderRegistry {
	return &LoaderRegistry{
		byPair:   make(map[typePair]*registration),
		byHandle: make(map[reflect.Type]*registration),
	}
}

// RegisterBatchLoader registers fn as the batch loader for the (K, V) pair.
// Handlers request it by declaring a *Loader[K, V] parameter.
func RegisterBatchLoader[K comparable, V any](r *LoaderRegistry, fn BatchFunc[K, V]) error {
	pair := typePair{key: typeFor[K](), value: typeFor[V]()}
	reg := &registration{
		pair:       pair,
		handleType: reflect.TypeOf((*Loader[K, V])(nil)),
	}
	reg.dispatch = func(ctx context.Context, keys []any) ([]any, error) {
		typed := make([]K, len(keys))
		for i, k := range keys {
			typed[i] = k.(K)
		}
		values, err := fn(ctx, typed)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out, nil
	}
	reg.makeHandle = func(c *Coordinator) reflect.Value {
		return reflect.ValueOf(&Loader[K, V]{coordinator: c, reg: reg})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byPair[pair]; exists {
		return &DuplicateLoaderError{KeyType: pair.key, ValueType: pair.value}
	}
	r.byPair[pair] = reg
	r.byHandle[reg.handleType] = reg
	return nil
}

func (r *LoaderRegistry) lookupHandle(handleType reflect.Type) (*registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byHandle[handleType]
	return reg, ok
}

// Coordinator accumulates keyed load requests for one execution pass and
// dispatches each registration's pending keys as a single batch call when
// flushed at a wave boundary. Keys are deduplicated per registration:
// a key requested twice, in the same wave or a later one, shares one slot
// and triggers at most one load over the whole pass.
type Coordinator struct {
	registry *LoaderRegistry
	mu       sync.Mutex
	states   map[*registration]*loadState
}

type loadState struct {
	// pending holds this wave's not-yet-dispatched keys in first-request order.
	pending []any
	// slots holds every key requested during the pass, settled or not.
	slots map[any]*loadSlot
}

type loadSlot struct {
	done  chan struct{}
	value any
	err   error
}

func (s *loadSlot) settle(value any, err error) {
	s.value = value
	s.err = err
	close(s.done)
}

// NewCoordinator creates a coordinator over the given registry.
func NewCoordinator(registry *LoaderRegistry) *Coordinator {
	return &Coordinator{
		registry: registry,
		states:   make(map[*registration]*loadState),
	}
}

func (c *Coordinator) load(reg *registration, key any) *loadSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[reg]
	if st == nil {
		st = &loadState{slots: make(map[any]*loadSlot)}
		c.states[reg] = st
	}
	if slot, ok := st.slots[key]; ok {
		return slot
	}
	slot := &loadSlot{done: make(chan struct{})}
	st.slots[key] = slot
	st.pending = append(st.pending, key)
	return slot
}

// Flush dispatches every registration's pending keys as one batch call each
// and settles their slots. A cancelled context fails the pending slots
// without calling the batch functions.
func (c *Coordinator) Flush(ctx context.Context) {
	c.mu.Lock()
	type batch struct {
		reg  *registration
		keys []any
	}
	var batches []batch
	for reg, st := range c.states {
		if len(st.pending) == 0 {
			continue
		}
		batches = append(batches, batch{reg: reg, keys: st.pending})
		st.pending = nil
	}
	c.mu.Unlock()

	for _, b := range batches {
		c.dispatchBatch(ctx, b.reg, b.keys)
	}
}

func (c *Coordinator) dispatchBatch(ctx context.Context, reg *registration, keys []any) {
	eventbus.Publish(ctx, events.BatchLoadStart{
		KeyType:   reg.pair.key.String(),
		ValueType: reg.pair.value.String(),
		Keys:      len(keys),
	})
	start := time.Now()

	var values []any
	err := ctx.Err()
	if err == nil {
		values, err = reg.dispatch(ctx, keys)
		if err != nil {
			err = &BatchLoadError{Cause: err}
		} else if len(values) != len(keys) {
			err = &BatchLoadError{Cause: fmt.Errorf("loader returned %d values for %d keys", len(values), len(keys))}
		}
	}

	c.mu.Lock()
	slots := make([]*loadSlot, len(keys))
	for i, k := range keys {
		slots[i] = c.states[reg].slots[k]
	}
	c.mu.Unlock()

	for i, slot := range slots {
		if err != nil {
			slot.settle(nil, err)
			continue
		}
		slot.settle(values[i], nil)
	}

	eventbus.Publish(ctx, events.BatchLoadFinish{
		KeyType:   reg.pair.key.String(),
		ValueType: reg.pair.value.String(),
		Keys:      len(keys),
		Err:       err,
		Duration:  time.Since(start),
	})
}

// Loader is the live handle a handler uses to request keyed values. Load
// only records the key; the value arrives after the wave's flush.
type Loader[K comparable, V any] struct {
	coordinator *Coordinator
	reg         *registration
}

// Load requests the value for key and returns a thunk settled at the next
// wave boundary. Loading the same key again returns a thunk backed by the
// same slot.
func (l *Loader[K, V]) Load(key K) *Thunk[V] {
	return &Thunk[V]{slot: l.coordinator.load(l.reg, key)}
}

func (l *Loader[K, V]) handleTypes() (reflect.Type, reflect.Type) {
	return typeFor[K](), typeFor[V]()
}

// loaderHandle is implemented by every Loader instantiation; descriptor
// construction uses it to recover the key and value types.
type loaderHandle interface {
	handleTypes() (reflect.Type, reflect.Type)
}

// Thunk is a typed placeholder for a batched value.
type Thunk[V any] struct {
	slot *loadSlot
}

// Await blocks until the thunk's batch settles or ctx is done.
func (t *Thunk[V]) Await(ctx context.Context) (V, error) {
	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-t.slot.done:
	}
	if t.slot.err != nil {
		return zero, t.slot.err
	}
	if t.slot.value == nil {
		return zero, nil
	}
	return t.slot.value.(V), nil
}

// Resolve implements Deferred, so a handler may return its thunk directly.
func (t *Thunk[V]) Resolve(ctx context.Context) (any, error) {
	return t.Await(ctx)
}

func typeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
