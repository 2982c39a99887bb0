// Package otel exports dispatch lifecycle events as OpenTelemetry traces.
package otel

import (
	"context"
	"sync"
	"time"

	eventbus "github.com/hanpama/schemamap/internal/eventbus"
	events "github.com/hanpama/schemamap/internal/events"
	execid "github.com/hanpama/schemamap/internal/execid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := NewSubscriber(otel.Tracer("schemamap"))
	sub.Register()

	return tp.Shutdown, nil
}

// Subscriber bridges eventbus events into trace spans. Operation spans are
// kept open across the execution and correlated by execution id; dispatch and
// batch-load spans are recorded on completion with their measured duration.
type Subscriber struct {
	tracer  trace.Tracer
	opSpans sync.Map // execution id -> trace.Span
}

func NewSubscriber(tracer trace.Tracer) *Subscriber {
	return &Subscriber{tracer: tracer}
}

// Register attaches the subscriber to the global event bus.
func (s *Subscriber) Register() {
	eventbus.Subscribe(func(ctx context.Context, e events.OperationStart) {
		id, ok := execid.FromContext(ctx)
		if !ok {
			return
		}
		_, span := s.tracer.Start(ctx, "graphql.operation")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.opSpans.Store(id, span)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.OperationFinish) {
		id, ok := execid.FromContext(ctx)
		if !ok {
			return
		}
		if v, loaded := s.opSpans.LoadAndDelete(id); loaded {
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.errors.count", e.ErrorCount))
			span.End()
		}
	})
	eventbus.Subscribe(func(ctx context.Context, e events.DispatchFinish) {
		s.recordSpan(ctx, "graphql.dispatch", e.Duration, e.Err,
			attribute.String("graphql.field.parent_type", e.ObjectType),
			attribute.String("graphql.field.name", e.Field),
		)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.BatchLoadFinish) {
		s.recordSpan(ctx, "graphql.batch_load", e.Duration, e.Err,
			attribute.String("loader.key_type", e.KeyType),
			attribute.String("loader.value_type", e.ValueType),
			attribute.Int("loader.keys", e.Keys),
		)
	})
}

func (s *Subscriber) recordSpan(ctx context.Context, name string, d time.Duration, err error, attrs ...attribute.KeyValue) {
	start := time.Now().Add(-d)
	_, span := s.tracer.Start(ctx, name, trace.WithTimestamp(start))
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
