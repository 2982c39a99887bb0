package engine

import (
	"context"
	"fmt"

	language "github.com/hanpama/schemamap/internal/language"
	schema "github.com/hanpama/schemamap/internal/schema"
)

// Subscribe opens a subscription operation. The runtime supplies the source
// event stream; every event runs one selection-set execution in its own
// request scope and yields one Result on the returned channel, in emission
// order. The channel closes on stream completion, after a terminal stream
// error, or once ctx is cancelled. No event is executed after cancellation.
func (e *Engine) Subscribe(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
) (<-chan *Result, error) {
	operation := getOperation(document, operationName)
	if operation == nil {
		return nil, fmt.Errorf("operation not found")
	}
	if operation.Operation != language.Subscription {
		return nil, fmt.Errorf("operation %q is not a subscription", operation.Operation)
	}

	coerced, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return nil, err
	}

	rootType := e.schema.GetSubscriptionType()
	if rootType == nil {
		return nil, fmt.Errorf("schema does not define a subscription root type")
	}

	// A subscription operation selects exactly one root field.
	probe := e.newExecution(ctx, document, coerced)
	grouped := collectFields(probe, rootType, operation.SelectionSet)
	roots := grouped.orderedFields()
	if len(roots) != 1 {
		return nil, fmt.Errorf("subscription must select exactly one root field, got %d", len(roots))
	}
	responseName := roots[0].responseName
	fields := roots[0].fields

	fieldDef := rootType.GetField(fields[0].Name)
	if fieldDef == nil {
		return nil, fmt.Errorf("cannot subscribe to field '%s' on type '%s'", fields[0].Name, rootType.Name)
	}

	path := Path{responseName}
	argumentValues := coerceArgumentValues(fieldDef, fields[0].Arguments, coerced, probe, path)
	if len(probe.errors) > 0 {
		return nil, fmt.Errorf("%s", probe.errors[0].Message)
	}

	events, err := e.runtime.ResolveStream(ctx, FieldTask{
		ObjectType: rootType.Name,
		Field:      fieldDef.Name,
		Args:       argumentValues,
		Path:       path,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan *Result)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Err != nil {
					res := &Result{Errors: []FieldError{{Message: ev.Err.Error(), Path: path}}}
					select {
					case out <- res:
					case <-ctx.Done():
					}
					return
				}
				res := e.executeEvent(ctx, document, coerced, fieldDef, fields, responseName, ev.Value)
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// executeEvent completes one stream event against the subscription's
// selection set, draining any waves it queues.
func (e *Engine) executeEvent(
	ctx context.Context,
	document *language.QueryDocument,
	variables map[string]any,
	fieldDef *schema.Field,
	fields []*language.Field,
	responseName string,
	value any,
) *Result {
	eventCtx := e.runtime.NewRequestScope(ctx)
	state := e.newExecution(eventCtx, document, variables)

	path := Path{responseName}
	responseRoot := make(map[string]any)
	completed := state.completeValue(fieldDef.Type, fields, value, path)
	if isNullish(completed) {
		responseRoot[responseName] = nil
	} else {
		responseRoot[responseName] = completed
	}
	state.drainWaves(responseRoot)

	return &Result{Data: responseRoot, Errors: state.errors}
}
