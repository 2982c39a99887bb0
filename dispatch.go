package schemamap

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	engine "github.com/hanpama/schemamap/internal/engine"
	eventbus "github.com/hanpama/schemamap/internal/eventbus"
	events "github.com/hanpama/schemamap/internal/events"
	execid "github.com/hanpama/schemamap/internal/execid"
)

// dispatcher implements engine.Runtime over a handler registry and a loader
// registry. Synchronous fields invoke their handler inline; asynchronous
// fields run in waves with one coordinator flush per wave.
type dispatcher struct {
	registry *Registry
	loaders  *LoaderRegistry
}

var _ engine.Runtime = (*dispatcher)(nil)

func newDispatcher(registry *Registry, loaders *LoaderRegistry) *dispatcher {
	return &dispatcher{registry: registry, loaders: loaders}
}

type coordinatorKey struct{}

func withCoordinator(ctx context.Context, c *Coordinator) context.Context {
	return context.WithValue(ctx, coordinatorKey{}, c)
}

func coordinatorFrom(ctx context.Context) *Coordinator {
	c, _ := ctx.Value(coordinatorKey{}).(*Coordinator)
	return c
}

// NewRequestScope installs a fresh batch coordinator for the execution pass.
// Subscription executions call this per event, so each event batches
// independently. An execution id is added unless the caller already set one.
func (d *dispatcher) NewRequestScope(ctx context.Context) context.Context {
	if _, ok := execid.FromContext(ctx); !ok {
		ctx, _ = execid.NewContext(ctx)
	}
	return withCoordinator(ctx, NewCoordinator(d.loaders))
}

func (d *dispatcher) ResolveField(ctx context.Context, task engine.FieldTask) (any, error) {
	h, ok := d.registry.Lookup(task.ObjectType, task.Field)
	if !ok {
		return resolveProperty(task.Source, task.Field), nil
	}
	value, err := d.invoke(ctx, h, task)
	if err != nil {
		return nil, err
	}
	if _, isDeferred := value.(Deferred); isDeferred {
		// A sync field cannot wait on a wave flush that will never come.
		return nil, fmt.Errorf("handler for %s.%s returned a deferred value outside a wave", task.ObjectType, task.Field)
	}
	return value, nil
}

// ResolveWave invokes every handler of the wave first, so all loader keys are
// recorded, then flushes the coordinator once and settles the deferred
// results. Each element fails independently.
func (d *dispatcher) ResolveWave(ctx context.Context, tasks []engine.FieldTask) []engine.FieldResult {
	results := make([]engine.FieldResult, len(tasks))
	type pendingResult struct {
		idx int
		def Deferred
	}
	var pending []pendingResult

	for i, task := range tasks {
		h, ok := d.registry.Lookup(task.ObjectType, task.Field)
		if !ok {
			results[i].Value = resolveProperty(task.Source, task.Field)
			continue
		}
		value, err := d.invoke(ctx, h, task)
		if err != nil {
			results[i].Err = err
			continue
		}
		if def, isDeferred := value.(Deferred); isDeferred {
			pending = append(pending, pendingResult{idx: i, def: def})
			continue
		}
		results[i].Value = value
	}

	if c := coordinatorFrom(ctx); c != nil {
		c.Flush(ctx)
	}

	for _, p := range pending {
		results[p.idx].Value, results[p.idx].Err = p.def.Resolve(ctx)
	}
	return results
}

func (d *dispatcher) ResolveStream(ctx context.Context, task engine.FieldTask) (<-chan engine.StreamEvent, error) {
	h, ok := d.registry.Lookup(task.ObjectType, task.Field)
	if !ok || !h.stream {
		return nil, fmt.Errorf("no stream handler bound for %s.%s", task.ObjectType, task.Field)
	}
	value, err := d.invoke(ctx, h, task)
	if err != nil {
		return nil, err
	}
	return adaptStream(ctx, reflect.ValueOf(value), task.ObjectType, task.Field)
}

func (d *dispatcher) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if tn, ok := m["__typename"].(string); ok {
			return tn, nil
		}
		return "", fmt.Errorf("cannot determine concrete type of %s value: no __typename", abstractType)
	}
	t := reflect.Indirect(reflect.ValueOf(value)).Type()
	if t.Kind() == reflect.Struct && t.Name() != "" {
		return t.Name(), nil
	}
	return "", fmt.Errorf("cannot determine concrete type of %s value %T", abstractType, value)
}

func (d *dispatcher) SerializeLeaf(ctx context.Context, typeName string, value any) (any, error) {
	return value, nil
}

// invoke runs the full field dispatch for one matched handler: parameter
// resolution, the reflective call with panic confinement, and result
// unpacking. Every outcome is reported as a dispatch event.
func (d *dispatcher) invoke(ctx context.Context, h *HandlerDescriptor, task engine.FieldTask) (any, error) {
	eventbus.Publish(ctx, events.DispatchStart{ObjectType: task.ObjectType, Field: task.Field})
	start := time.Now()
	value, err := d.invokeHandler(ctx, h, task)
	eventbus.Publish(ctx, events.DispatchFinish{
		ObjectType: task.ObjectType,
		Field:      task.Field,
		Err:        err,
		Duration:   time.Since(start),
	})
	return value, err
}

func (d *dispatcher) invokeHandler(ctx context.Context, h *HandlerDescriptor, task engine.FieldTask) (any, error) {
	fc := d.fieldContext(ctx, task)
	in, err := resolveParameters(ctx, h, fc, coordinatorFrom(ctx))
	if err != nil {
		return nil, err
	}
	out, err := safeCall(h.fn, in)
	if err != nil {
		return nil, err
	}
	if h.hasErr {
		if errv := out[1]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
	}
	// Normalize typed nils so the engine sees a GraphQL null.
	v := out[0]
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		if v.IsNil() {
			return nil, nil
		}
	}
	return v.Interface(), nil
}

func (d *dispatcher) fieldContext(ctx context.Context, task engine.FieldTask) *FieldContext {
	id, _ := execid.FromContext(ctx)
	path := make([]any, len(task.Path))
	for i, el := range task.Path {
		path[i] = el
	}
	return &FieldContext{
		TypeName:    task.ObjectType,
		FieldName:   task.Field,
		Path:        path,
		Args:        task.Args,
		Parent:      task.Source,
		Bag:         bagFrom(ctx),
		ExecutionID: id,
	}
}

func safeCall(fn reflect.Value, in []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &ApplicationError{Recovered: r}
		}
	}()
	return fn.Call(in), nil
}

// resolveProperty is the fallback for unbound fields: read the equally-named
// property off the parent value. Maps match by key; structs match by
// `graphql` tag, then exact field name, then case-insensitive name.
func resolveProperty(source any, field string) any {
	if source == nil {
		return nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[field]
	}
	v := reflect.Indirect(reflect.ValueOf(source))
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	fallback := -1
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if name, _ := inputFieldName(f); name == field {
			return v.Field(i).Interface()
		}
		if fallback < 0 && strings.EqualFold(f.Name, field) {
			fallback = i
		}
	}
	if fallback >= 0 {
		return v.Field(fallback).Interface()
	}
	return nil
}
