package schemamap

import (
	"context"
	"fmt"
	"reflect"
)

// OperationKind names the binding site of a handler.
type OperationKind int

const (
	// KindQuery binds a handler to a field of the Query root type.
	KindQuery OperationKind = iota
	// KindMutation binds a handler to a field of the Mutation root type.
	KindMutation
	// KindSubscription binds a handler to a field of the Subscription root type.
	KindSubscription
	// KindField binds a handler to a field of an arbitrary object type.
	KindField
)

func (k OperationKind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindMutation:
		return "mutation"
	case KindSubscription:
		return "subscription"
	default:
		return "field"
	}
}

// SourceKind classifies where a handler parameter's value comes from.
type SourceKind int

const (
	// SourceNamedArgument takes a single field argument by name.
	SourceNamedArgument SourceKind = iota
	// SourceObjectArgument takes a field argument coerced into a struct.
	SourceObjectArgument
	// SourceExecutionContext takes the execution context or field context.
	SourceExecutionContext
	// SourceContextBag takes the operation's shared context bag.
	SourceContextBag
	// SourceBatchLoader takes a live batch loader handle.
	SourceBatchLoader
	// SourceParent takes the parent resolved value.
	SourceParent
)

// ParameterDescriptor describes one handler parameter and its value source.
type ParameterDescriptor struct {
	Source   SourceKind
	Name     string
	Type     reflect.Type
	Required bool

	keyType   reflect.Type
	valueType reflect.Type
}

// HandlerDescriptor is the immutable record of one bound handler: its target
// coordinates, parameter plan, and result shape. Descriptors are built by
// Query, Mutation, Subscription and Field and consumed by Registry.Bind.
type HandlerDescriptor struct {
	Kind     OperationKind
	TypeName string
	Field    string
	Params   []ParameterDescriptor

	fn       reflect.Value
	hasErr   bool
	deferred bool
	stream   bool
	err      error
}

// Async reports whether the handler participates in wave batching: it either
// requests a loader handle or returns a deferred value.
func (d *HandlerDescriptor) Async() bool {
	if d.deferred {
		return true
	}
	for _, p := range d.Params {
		if p.Source == SourceBatchLoader {
			return true
		}
	}
	return false
}

// Stream reports whether the handler produces an event stream.
func (d *HandlerDescriptor) Stream() bool { return d.stream }

// BindOption configures descriptor construction.
type BindOption func(*bindConfig)

type bindConfig struct {
	argNames []string
}

// WithArgs declares the schema argument names consumed by the handler's
// argument parameters, in positional order. Parameters drawn from the
// execution context, the bag, loaders, or the parent value do not consume
// a name.
func WithArgs(names ...string) BindOption {
	return func(c *bindConfig) { c.argNames = names }
}

// Query binds fn to the named field of the Query root type.
func Query(field string, fn any, opts ...BindOption) *HandlerDescriptor {
	return newDescriptor(KindQuery, "Query", field, fn, opts)
}

// Mutation binds fn to the named field of the Mutation root type.
func Mutation(field string, fn any, opts ...BindOption) *HandlerDescriptor {
	return newDescriptor(KindMutation, "Mutation", field, fn, opts)
}

// Subscription binds fn to the named field of the Subscription root type.
// The handler must return a receive-only channel of event values.
func Subscription(field string, fn any, opts ...BindOption) *HandlerDescriptor {
	return newDescriptor(KindSubscription, "Subscription", field, fn, opts)
}

// Field binds fn to a field of an arbitrary object type. The first parameter
// not claimed by a context, bag, or loader source receives the parent value.
func Field(typeName, field string, fn any, opts ...BindOption) *HandlerDescriptor {
	return newDescriptor(KindField, typeName, field, fn, opts)
}

var (
	ctxType          = reflect.TypeOf((*context.Context)(nil)).Elem()
	fieldContextType = reflect.TypeOf((*FieldContext)(nil))
	contextBagType   = reflect.TypeOf((*ContextBag)(nil))
	deferredType     = reflect.TypeOf((*Deferred)(nil)).Elem()
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
	loaderHandleType = reflect.TypeOf((*loaderHandle)(nil)).Elem()
)

func newDescriptor(kind OperationKind, typeName, field string, fn any, opts []BindOption) *HandlerDescriptor {
	d := &HandlerDescriptor{Kind: kind, TypeName: typeName, Field: field}
	var cfg bindConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		d.err = fmt.Errorf("binding %s.%s: handler must be a function, got %T", typeName, field, fn)
		return d
	}
	d.fn = fv
	ft := fv.Type()

	switch ft.NumOut() {
	case 1:
		if ft.Out(0) == errorType {
			d.err = fmt.Errorf("binding %s.%s: handler must return a value", typeName, field)
			return d
		}
	case 2:
		if ft.Out(1) != errorType {
			d.err = fmt.Errorf("binding %s.%s: second return must be error", typeName, field)
			return d
		}
		d.hasErr = true
	default:
		d.err = fmt.Errorf("binding %s.%s: handler must return (T) or (T, error)", typeName, field)
		return d
	}
	out := ft.Out(0)
	d.deferred = out.Implements(deferredType)
	d.stream = out.Kind() == reflect.Chan
	if d.stream && kind != KindSubscription {
		d.err = fmt.Errorf("binding %s.%s: channel results are only valid on subscription fields", typeName, field)
		return d
	}
	if !d.stream && kind == KindSubscription {
		d.err = fmt.Errorf("binding %s.%s: subscription handler must return a channel", typeName, field)
		return d
	}
	if d.deferred && kind == KindSubscription {
		d.err = fmt.Errorf("binding %s.%s: subscription handler cannot return a deferred value", typeName, field)
		return d
	}

	nextName := 0
	parentTaken := kind != KindField
	for i := 0; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		p := ParameterDescriptor{Type: pt}
		switch {
		case pt == ctxType || pt == fieldContextType:
			p.Source = SourceExecutionContext
		case pt == contextBagType:
			p.Source = SourceContextBag
		case pt.Kind() == reflect.Pointer && pt.Implements(loaderHandleType):
			p.Source = SourceBatchLoader
			h := reflect.New(pt.Elem()).Interface().(loaderHandle)
			p.keyType, p.valueType = h.handleTypes()
		case !parentTaken:
			p.Source = SourceParent
			parentTaken = true
		default:
			if nextName >= len(cfg.argNames) {
				d.err = fmt.Errorf("binding %s.%s: parameter %d has no argument name; declare it with WithArgs", typeName, field, i)
				return d
			}
			p.Name = cfg.argNames[nextName]
			nextName++
			p.Required = pt.Kind() != reflect.Pointer
			if isObjectArgType(pt) {
				p.Source = SourceObjectArgument
			} else {
				p.Source = SourceNamedArgument
			}
		}
		d.Params = append(d.Params, p)
	}
	if nextName < len(cfg.argNames) {
		d.err = fmt.Errorf("binding %s.%s: %d argument names declared but only %d argument parameters found",
			typeName, field, len(cfg.argNames), nextName)
		return d
	}
	if kind == KindSubscription {
		// Streams never see a wave flush, so a loader handle could not settle.
		for _, p := range d.Params {
			if p.Source == SourceBatchLoader {
				d.err = fmt.Errorf("binding %s.%s: subscription handlers cannot take loader handles", typeName, field)
				return d
			}
		}
	}
	return d
}

func isObjectArgType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
