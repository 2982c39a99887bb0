package schemamap

import (
	"context"
	"fmt"
	"time"

	engine "github.com/hanpama/schemamap/internal/engine"
	eventbus "github.com/hanpama/schemamap/internal/eventbus"
	events "github.com/hanpama/schemamap/internal/events"
	execid "github.com/hanpama/schemamap/internal/execid"
	introspection "github.com/hanpama/schemamap/internal/introspection"
	language "github.com/hanpama/schemamap/internal/language"
	schema "github.com/hanpama/schemamap/internal/schema"
)

// OperationRequest is one GraphQL request against a Service.
type OperationRequest struct {
	Query         string
	OperationName string
	Variables     map[string]any
	// Bag seeds the operation's shared context bag. A nil Bag gets a fresh
	// empty bag.
	Bag *ContextBag
}

// ResponseError is an execution error located at a response path.
type ResponseError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Response is the outcome of one operation or one subscription event.
type Response struct {
	Data   any             `json:"data"`
	Errors []ResponseError `json:"errors,omitempty"`
}

// Service executes GraphQL operations by dispatching schema fields to bound
// handlers. Configuration is validated up front: every binding must target a
// schema field and every requested loader handle must have a registration.
type Service struct {
	schema   *schema.Schema
	engine   *engine.Engine
	registry *Registry
	loaders  *LoaderRegistry
}

// NewService builds a service from an SDL schema, a handler registry, and a
// loader registry. Malformed configuration fails here, never at request time.
func NewService(sdl string, registry *Registry, loaders *LoaderRegistry) (*Service, error) {
	s, err := schema.BuildFromSDL(sdl)
	if err != nil {
		return nil, fmt.Errorf("schemamap: %w", err)
	}
	if loaders == nil {
		loaders = NewLoaderRegistry()
	}
	if err := validateBindings(s, registry, loaders); err != nil {
		return nil, fmt.Errorf("schemamap: %w", err)
	}
	rt, extended := introspection.Wrap(newDispatcher(registry, loaders), s)
	return &Service{
		schema:   extended,
		engine:   engine.New(rt, extended),
		registry: registry,
		loaders:  loaders,
	}, nil
}

func validateBindings(s *schema.Schema, registry *Registry, loaders *LoaderRegistry) error {
	for _, d := range registry.All() {
		rootName := ""
		switch d.Kind {
		case KindQuery:
			rootName = s.QueryType
		case KindMutation:
			rootName = s.MutationType
		case KindSubscription:
			rootName = s.SubscriptionType
		}
		if d.Kind != KindField && rootName != d.TypeName {
			return fmt.Errorf("binding %s.%s: schema names its %s root type %q", d.TypeName, d.Field, d.Kind, rootName)
		}
		t := s.Types[d.TypeName]
		if t == nil {
			return fmt.Errorf("binding %s.%s: type %q is not defined in the schema", d.TypeName, d.Field, d.TypeName)
		}
		f := t.GetField(d.Field)
		if f == nil {
			return fmt.Errorf("binding %s.%s: field %q is not defined on type %q", d.TypeName, d.Field, d.Field, d.TypeName)
		}
		for _, p := range d.Params {
			if p.Source != SourceBatchLoader {
				continue
			}
			if _, ok := loaders.lookupHandle(p.Type); !ok {
				return &UnregisteredLoaderError{KeyType: p.keyType, ValueType: p.valueType}
			}
		}
		if d.Kind != KindSubscription {
			f.Async = d.Async()
		}
	}
	return nil
}

// Execute runs a query or mutation operation to completion and returns its
// response. Field failures surface as located errors next to partial data.
func (s *Service) Execute(ctx context.Context, req OperationRequest) *Response {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return &Response{Errors: []ResponseError{{Message: err.Error()}}}
	}

	bag := req.Bag
	if bag == nil {
		bag = NewContextBag()
	}
	ctx = withBag(ctx, bag)
	ctx, _ = execid.NewContext(ctx)

	opName, opType := operationInfo(doc, req.OperationName)
	eventbus.Publish(ctx, events.OperationStart{
		Query:         req.Query,
		OperationName: opName,
		OperationType: opType,
	})
	start := time.Now()
	res := s.engine.Execute(ctx, doc, req.OperationName, req.Variables, nil)
	eventbus.Publish(ctx, events.OperationFinish{
		Query:         req.Query,
		OperationName: opName,
		OperationType: opType,
		ErrorCount:    len(res.Errors),
		Duration:      time.Since(start),
	})
	return toResponse(res)
}

// Subscribe opens a subscription operation. Each source event yields one
// Response on the returned channel, executed in its own request scope so that
// batching never spans events. The channel closes on stream completion, a
// terminal stream error, or context cancellation.
func (s *Service) Subscribe(ctx context.Context, req OperationRequest) (<-chan *Response, error) {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return nil, err
	}

	bag := req.Bag
	if bag == nil {
		bag = NewContextBag()
	}
	ctx = withBag(ctx, bag)
	ctx, _ = execid.NewContext(ctx)

	opName, opType := operationInfo(doc, req.OperationName)
	eventbus.Publish(ctx, events.OperationStart{
		Query:         req.Query,
		OperationName: opName,
		OperationType: opType,
	})
	start := time.Now()

	ch, err := s.engine.Subscribe(ctx, doc, req.OperationName, req.Variables)
	if err != nil {
		eventbus.Publish(ctx, events.OperationFinish{
			Query: req.Query, OperationName: opName, OperationType: opType,
			ErrorCount: 1, Duration: time.Since(start),
		})
		return nil, err
	}

	out := make(chan *Response)
	go func() {
		defer close(out)
		errCount := 0
		for res := range ch {
			errCount += len(res.Errors)
			select {
			case out <- toResponse(res):
			case <-ctx.Done():
				eventbus.Publish(ctx, events.OperationFinish{
					Query: req.Query, OperationName: opName, OperationType: opType,
					ErrorCount: errCount, Duration: time.Since(start),
				})
				return
			}
		}
		eventbus.Publish(ctx, events.OperationFinish{
			Query: req.Query, OperationName: opName, OperationType: opType,
			ErrorCount: errCount, Duration: time.Since(start),
		})
	}()
	return out, nil
}

func toResponse(res *engine.Result) *Response {
	out := &Response{Data: res.Data}
	for _, fe := range res.Errors {
		re := ResponseError{Message: fe.Message}
		if len(fe.Path) > 0 {
			re.Path = make([]any, len(fe.Path))
			for i, el := range fe.Path {
				re.Path[i] = el
			}
		}
		out.Errors = append(out.Errors, re)
	}
	return out
}

func operationInfo(doc *language.QueryDocument, operationName string) (name, opType string) {
	for _, op := range doc.Operations {
		if operationName == "" || op.Name == operationName {
			return op.Name, string(op.Operation)
		}
	}
	return operationName, ""
}
