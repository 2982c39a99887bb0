// Package events declares the lifecycle events published by the dispatch
// layer. Subscribers (tracing, test probes) attach through the eventbus.
package events

import "time"

// OperationStart is emitted before executing a GraphQL operation.
type OperationStart struct {
	Query         string
	OperationName string
	OperationType string
}

// OperationFinish is emitted after executing a GraphQL operation.
type OperationFinish struct {
	Query         string
	OperationName string
	OperationType string
	ErrorCount    int
	Duration      time.Duration
}

// DispatchStart is emitted before a bound handler is invoked.
type DispatchStart struct {
	ObjectType string
	Field      string
}

// DispatchFinish is emitted after a bound handler invocation completes.
type DispatchFinish struct {
	ObjectType string
	Field      string
	Err        error
	Duration   time.Duration
}

// BatchLoadStart is emitted before a batch loading function is called.
type BatchLoadStart struct {
	KeyType   string
	ValueType string
	Keys      int
}

// BatchLoadFinish is emitted after a batch loading function returns.
type BatchLoadFinish struct {
	KeyType   string
	ValueType string
	Keys      int
	Err       error
	Duration  time.Duration
}

// StreamEmit is emitted for each element delivered on a subscription stream.
type StreamEmit struct {
	ObjectType string
	Field      string
	Seq        int
}

// HTTPStart is emitted when the HTTP handler accepts a request.
type HTTPStart struct {
	Method string
	Path   string
}

// HTTPFinish is emitted when the HTTP handler finishes a request.
type HTTPFinish struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
}
