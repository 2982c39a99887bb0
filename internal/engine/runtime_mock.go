package engine

import (
	"context"
	"fmt"
	"sync"
)

// MockResolver resolves a single item; MockRuntime adapts it for wave calls in tests.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// Call kinds recorded by the mock.
const (
	CallKindSync  = "sync"
	CallKindWave  = "wave"
	CallKindScope = "scope"
)

// NewMockValueResolver returns a MockResolver that always returns the provided value.
func NewMockValueResolver(val any) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return val, nil
	}
}

// NewMockErrorResolver returns a MockResolver that always returns the provided error.
func NewMockErrorResolver(err error) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, err
	}
}

// Call is a single task-level invocation record. Wave items share a WaveID.
type Call struct {
	Kind       string
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
	WaveID     int // >0 for items resolved in the same wave, 0 for sync
}

// MockRuntime implements Runtime with a resolver registry and an ordered call log.
type MockRuntime struct {
	mu        sync.Mutex
	resolvers map[string]MockResolver
	streams   map[string]func(ctx context.Context, args map[string]any) <-chan StreamEvent
	calls     []Call
	waveSeq   int
	scopes    int

	typeResolver func(value any) (string, error)
}

// NewMockRuntime creates a MockRuntime with the provided resolvers, keyed
// "ObjectType.Field".
func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{
		resolvers: make(map[string]MockResolver),
		streams:   make(map[string]func(ctx context.Context, args map[string]any) <-chan StreamEvent),
		typeResolver: func(value any) (string, error) {
			if mv, ok := value.(map[string]any); ok {
				if typename, ok := mv["__typename"].(string); ok {
					return typename, nil
				}
			}
			return "", fmt.Errorf("cannot resolve type")
		},
	}
	for k, v := range resolvers {
		m.resolvers[k] = v
	}
	return m
}

// SetResolver registers or updates a resolver for the given object type and field.
func (m *MockRuntime) SetResolver(objectType, field string, resolver MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = resolver
}

// SetStream registers a stream source for a subscription root field.
func (m *MockRuntime) SetStream(objectType, field string, src func(ctx context.Context, args map[string]any) <-chan StreamEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[objectType+"."+field] = src
}

// SetTypeResolver overrides concrete-type resolution for abstract values.
func (m *MockRuntime) SetTypeResolver(f func(value any) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typeResolver = f
}

// NewRequestScope implements Runtime.
func (m *MockRuntime) NewRequestScope(ctx context.Context) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes++
	return ctx
}

// ResolveField implements Runtime by invoking the resolver for a single item.
func (m *MockRuntime) ResolveField(ctx context.Context, task FieldTask) (any, error) {
	key := task.ObjectType + "." + task.Field

	m.mu.Lock()
	r := m.resolvers[key]
	m.mu.Unlock()

	var val any
	var err error
	if r != nil {
		val, err = r(ctx, task.Source, task.Args)
	}

	m.mu.Lock()
	m.calls = append(m.calls, Call{
		Kind:       CallKindSync,
		ObjectType: task.ObjectType,
		Field:      task.Field,
		Source:     task.Source,
		Args:       task.Args,
	})
	m.mu.Unlock()

	return val, err
}

// ResolveWave implements Runtime, resolving each task in input order and
// recording every item under one wave id.
func (m *MockRuntime) ResolveWave(ctx context.Context, tasks []FieldTask) []FieldResult {
	if len(tasks) == 0 {
		return nil
	}

	m.mu.Lock()
	m.waveSeq++
	waveID := m.waveSeq
	m.mu.Unlock()

	results := make([]FieldResult, len(tasks))
	for i, task := range tasks {
		key := task.ObjectType + "." + task.Field

		m.mu.Lock()
		r := m.resolvers[key]
		m.mu.Unlock()

		if r != nil {
			val, err := r(ctx, task.Source, task.Args)
			results[i] = FieldResult{Value: val, Err: err}
		}

		m.mu.Lock()
		m.calls = append(m.calls, Call{
			Kind:       CallKindWave,
			ObjectType: task.ObjectType,
			Field:      task.Field,
			Source:     task.Source,
			Args:       task.Args,
			WaveID:     waveID,
		})
		m.mu.Unlock()
	}
	return results
}

// ResolveStream implements Runtime.
func (m *MockRuntime) ResolveStream(ctx context.Context, task FieldTask) (<-chan StreamEvent, error) {
	key := task.ObjectType + "." + task.Field
	m.mu.Lock()
	src := m.streams[key]
	m.mu.Unlock()
	if src == nil {
		return nil, fmt.Errorf("no stream registered for %s", key)
	}
	return src(ctx, task.Args), nil
}

// ResolveType implements Runtime.
func (m *MockRuntime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	m.mu.Lock()
	tr := m.typeResolver
	m.mu.Unlock()
	if tr == nil {
		return "", fmt.Errorf("type resolver not configured")
	}
	return tr(value)
}

// SerializeLeaf implements Runtime as a pass-through.
func (m *MockRuntime) SerializeLeaf(ctx context.Context, typeName string, value any) (any, error) {
	return value, nil
}

// GetCalls returns a copy of the recorded calls in order.
func (m *MockRuntime) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Scopes reports how many request scopes were opened.
func (m *MockRuntime) Scopes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scopes
}

// Reset clears recorded calls and counters (resolvers remain).
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.waveSeq = 0
	m.scopes = 0
}
