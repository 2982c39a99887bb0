package engine

import (
	"context"
)

// Runtime is the host integration surface the engine resolves fields through.
//
// Contract:
//   - Execution is breadth-first. At each depth the engine drains synchronous
//     fields via ResolveField, then calls ResolveWave ONCE with every deferred
//     task collected at that depth. The next depth does not begin until
//     ResolveWave returns and its results are completed. That single call per
//     depth is the wave boundary the runtime may use to flush batched work.
//   - ResolveWave must return one FieldResult per task, positionally aligned:
//     results[i] corresponds to tasks[i]. Results are independent; a failure in
//     one element must not fail the others (partial success).
//   - The engine never calls ResolveField for fields marked Async in the
//     schema, and never calls ResolveWave with zero tasks.
//   - NewRequestScope is called once at the start of every execution pass
//     (including every subscription event) so the runtime can install
//     request-scoped state such as batch-load windows.
//   - Errors returned from any method become located field errors. Non-Null
//     violations propagate to the nearest nullable ancestor.
//   - Implementations must be safe for concurrent use across executions and
//     must not mutate source or args values.
type Runtime interface {
	// NewRequestScope derives the context one execution pass runs under.
	NewRequestScope(ctx context.Context) context.Context

	// ResolveField resolves a synchronous field immediately.
	// Return (nil, nil) to produce a GraphQL null for nullable fields.
	ResolveField(ctx context.Context, task FieldTask) (any, error)

	// ResolveWave resolves one depth of deferred field tasks in a single call.
	ResolveWave(ctx context.Context, tasks []FieldTask) []FieldResult

	// ResolveStream opens the event stream backing a subscription root field.
	// The returned channel is closed by the runtime on stream completion; a
	// terminal failure is delivered as an event with Err set. The runtime must
	// stop the upstream source promptly once ctx is cancelled.
	ResolveStream(ctx context.Context, task FieldTask) (<-chan StreamEvent, error)

	// ResolveType determines the concrete object type name for a value of an
	// abstract type (interface or union).
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeaf serializes a scalar or enum value to a JSON-safe Go value.
	SerializeLeaf(ctx context.Context, typeName string, value any) (any, error)
}

// FieldTask identifies one field resolution handed to the runtime.
type FieldTask struct {
	// ObjectType is the parent GraphQL object type name (root type name for
	// root fields).
	ObjectType string
	// Field is the GraphQL field name on that type.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced per the schema.
	Args map[string]any
	// Path is the response path of the field being resolved.
	Path Path
}

// FieldResult is the outcome of one task within a wave.
type FieldResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Err is a failure specific to this element; other elements in the same
	// wave are unaffected.
	Err error
}

// StreamEvent is one element of a subscription stream.
type StreamEvent struct {
	Value any
	Err   error
}
