// Package schemamap dispatches GraphQL fields to plain Go functions.
//
// A Service is configured from three pieces: an SDL schema, a Registry of
// handler bindings, and a LoaderRegistry of batch loading functions.
// Handlers are ordinary functions bound to (type, field) coordinates with
// Query, Mutation, Subscription and Field; their parameters are filled from
// the field's arguments, the execution context, the shared ContextBag, or a
// live batch loader handle, according to each parameter's declared type.
//
// Execution is breadth-first. Handlers without a loader dependency resolve
// inline. Handlers that request a *Loader[K, V], or return a Deferred value,
// run in depth waves: every handler of the wave is invoked first so all keys
// are recorded, then each loader's unique keys are dispatched in a single
// batch call, and only then are the deferred results settled. A key loaded
// twice anywhere in the operation is fetched once.
//
// Failures stay field-local. A handler error, panic, or unresolvable
// argument produces a located error in the response while sibling fields
// keep their data; Non-Null violations propagate to the nearest nullable
// ancestor.
//
// Subscription handlers return a channel. Each received element executes the
// selection set in its own request scope, so per-event batching never spans
// events, and yields one Response in emission order.
package schemamap
