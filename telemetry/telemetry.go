// Package telemetry activates the event pipeline behind the dispatch layer.
//
// The dispatcher, batch coordinator, service, and HTTP handler publish
// lifecycle events on a process-wide bus that is off until Enable installs
// one. Subscribe attaches handlers for individual event types; Setup
// additionally exports operation, dispatch, and batch load events as
// OpenTelemetry traces over OTLP gRPC.
package telemetry

import (
	"context"

	eventbus "github.com/hanpama/schemamap/internal/eventbus"
	events "github.com/hanpama/schemamap/internal/events"
	otel "github.com/hanpama/schemamap/internal/otel"
)

// Event types carried on the bus.
type (
	// OperationStart is emitted before executing a GraphQL operation.
	OperationStart = events.OperationStart
	// OperationFinish is emitted after executing a GraphQL operation.
	OperationFinish = events.OperationFinish
	// DispatchStart is emitted before a bound handler is invoked.
	DispatchStart = events.DispatchStart
	// DispatchFinish is emitted after a bound handler invocation completes.
	DispatchFinish = events.DispatchFinish
	// BatchLoadStart is emitted before a batch loading function is called.
	BatchLoadStart = events.BatchLoadStart
	// BatchLoadFinish is emitted after a batch loading function returns.
	BatchLoadFinish = events.BatchLoadFinish
	// StreamEmit is emitted for each element delivered on a subscription stream.
	StreamEmit = events.StreamEmit
	// HTTPStart is emitted when the HTTP handler accepts a request.
	HTTPStart = events.HTTPStart
	// HTTPFinish is emitted when the HTTP handler finishes a request.
	HTTPFinish = events.HTTPFinish
)

// Enable installs a fresh process-wide event bus. Until it is called every
// publish is a no-op. Call it once at startup, before Subscribe or Setup;
// enabling again replaces the bus and drops existing subscribers. The
// returned function uninstalls the bus.
func Enable() (disable func()) {
	eventbus.Use(eventbus.New())
	return func() { eventbus.Use(nil) }
}

// Subscribe registers h for events of type T on the active bus and returns
// its unsubscribe function. With no active bus the subscription is a no-op.
func Subscribe[T any](h func(context.Context, T)) (unsubscribe func()) {
	return eventbus.Subscribe(h)
}

// Setup enables the event bus and attaches a subscriber exporting operation,
// dispatch, and batch load events as trace spans through an OTLP gRPC
// endpoint. An empty endpoint enables the bus without configuring an
// exporter. The returned function flushes and shuts the exporter down.
func Setup(endpoint, service string) (shutdown func(context.Context) error, err error) {
	Enable()
	return otel.Setup(endpoint, service)
}
