package schemamap

import (
	"context"
	"fmt"
	"reflect"

	engine "github.com/hanpama/schemamap/internal/engine"
	eventbus "github.com/hanpama/schemamap/internal/eventbus"
	events "github.com/hanpama/schemamap/internal/events"
)

// adaptStream pumps a handler-returned channel into the engine's stream
// event shape. The pump stops on source close or context cancellation; the
// out channel is always closed.
func adaptStream(ctx context.Context, ch reflect.Value, objectType, field string) (<-chan engine.StreamEvent, error) {
	if ch.Kind() != reflect.Chan {
		return nil, fmt.Errorf("stream handler for %s.%s returned %s, want a channel", objectType, field, ch.Kind())
	}
	if ch.Type().ChanDir()&reflect.RecvDir == 0 {
		return nil, fmt.Errorf("stream handler for %s.%s returned a send-only channel", objectType, field)
	}
	if ch.IsNil() {
		return nil, fmt.Errorf("stream handler for %s.%s returned a nil channel", objectType, field)
	}

	out := make(chan engine.StreamEvent)
	go func() {
		defer close(out)
		cases := []reflect.SelectCase{
			{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
			{Dir: reflect.SelectRecv, Chan: ch},
		}
		seq := 0
		for {
			chosen, recv, ok := reflect.Select(cases)
			if chosen == 0 {
				return
			}
			if !ok {
				return
			}
			value := recv.Interface()
			// Error-typed events terminate the stream.
			if err, isErr := value.(error); isErr {
				select {
				case out <- engine.StreamEvent{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			seq++
			select {
			case out <- engine.StreamEvent{Value: value}:
				eventbus.Publish(ctx, events.StreamEmit{ObjectType: objectType, Field: field, Seq: seq})
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
