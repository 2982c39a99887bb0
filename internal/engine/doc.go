// Package engine implements a breadth-first GraphQL execution engine with
// explicit runtime hooks for synchronous resolution, wave-based batching of
// deferred work, subscription event streams, abstract-type resolution, and
// leaf serialization.
//
// # Execution Model
//
// Execution proceeds level by level through the response tree:
//
//   - Synchronous fields expand immediately via Runtime.ResolveField without
//     adding depth.
//   - Deferred fields encountered at the current depth are collected and
//     resolved in a single call to Runtime.ResolveWave. That one call per depth
//     is the wave boundary: a runtime backing deferred fields with batch
//     loaders flushes its pending batches exactly once per wave.
//   - Values are completed per the GraphQL specification (lists, leaves,
//     objects, abstract types), including Non-Null null propagation, while
//     errors accumulate as located field errors and sibling fields keep
//     resolving (partial success).
//
// Whether a field is synchronous or deferred is conveyed by schema.Field.Async.
// The binding layer sets Async for handler-bound fields whose resolution
// depends on batch loaders or otherwise produces deferred values.
//
// A Non-Null violation at path p nullifies the nearest nullable ancestor and
// tombstones that subtree; queued tasks under a tombstoned path are dropped
// before the next wave is dispatched.
//
// # Subscriptions
//
// Subscribe asks the runtime for the event stream behind the single root
// field, then executes the selection set once per emitted event, each event in
// a fresh request scope with its own wave windows. Results are delivered in
// emission order; a stream error is terminal; cancelling the context stops the
// loop before the next event is executed.
//
// # Runtime Contract
//
// See runtime.go for the detailed per-method contracts (ordering, positional
// result alignment, partial success, request scoping, cancellation).
package engine
