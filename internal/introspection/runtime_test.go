package introspection

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	engine "github.com/hanpama/schemamap/internal/engine"
	language "github.com/hanpama/schemamap/internal/language"
	schema "github.com/hanpama/schemamap/internal/schema"
)

// stubRuntime fails on any non-introspection field so tests notice
// unexpected delegation.
type stubRuntime struct{}

func (stubRuntime) NewRequestScope(ctx context.Context) context.Context { return ctx }

func (stubRuntime) ResolveField(ctx context.Context, task engine.FieldTask) (any, error) {
	return nil, fmt.Errorf("unexpected delegation for %s.%s", task.ObjectType, task.Field)
}

func (stubRuntime) ResolveWave(ctx context.Context, tasks []engine.FieldTask) []engine.FieldResult {
	return make([]engine.FieldResult, len(tasks))
}

func (stubRuntime) ResolveStream(ctx context.Context, task engine.FieldTask) (<-chan engine.StreamEvent, error) {
	return nil, fmt.Errorf("no stream")
}

func (stubRuntime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return "", fmt.Errorf("no type resolution")
}

func (stubRuntime) SerializeLeaf(ctx context.Context, typeName string, value any) (any, error) {
	return value, nil
}

const testSDL = `
type Query {
  bookById(id: ID): Book
}

type Book {
  id: ID
  name: String
}

enum Genre {
  HORROR
  DRAMA
}
`

func execute(t *testing.T, query string) *engine.Result {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	wrapped, extended := Wrap(stubRuntime{}, sch)
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	return engine.New(wrapped, extended).Execute(context.Background(), doc, "", nil, nil)
}

func TestSchemaAndTypeQueries(t *testing.T) {
	got := execute(t, `{
		__schema { queryType { name } }
		__type(name: "Book") {
			kind
			fields { name type { kind name } }
		}
	}`)

	want := &engine.Result{
		Data: map[string]any{
			"__schema": map[string]any{
				"queryType": map[string]any{"name": "Query"},
			},
			"__type": map[string]any{
				"kind": "OBJECT",
				"fields": []any{
					map[string]any{"name": "id", "type": map[string]any{"kind": "SCALAR", "name": "ID"}},
					map[string]any{"name": "name", "type": map[string]any{"kind": "SCALAR", "name": "String"}},
				},
			},
		},
		Errors: []engine.FieldError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Result mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumValues(t *testing.T) {
	got := execute(t, `{ __type(name: "Genre") { kind enumValues { name } } }`)

	want := &engine.Result{
		Data: map[string]any{
			"__type": map[string]any{
				"kind": "ENUM",
				"enumValues": []any{
					map[string]any{"name": "HORROR"},
					map[string]any{"name": "DRAMA"},
				},
			},
		},
		Errors: []engine.FieldError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Result mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownTypeIsNull(t *testing.T) {
	got := execute(t, `{ __type(name: "Nope") { name } }`)
	want := &engine.Result{
		Data:   map[string]any{"__type": nil},
		Errors: []engine.FieldError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Result mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldArguments(t *testing.T) {
	got := execute(t, `{ __type(name: "Query") { fields { name args { name type { name } } } } }`)

	want := &engine.Result{
		Data: map[string]any{
			"__type": map[string]any{
				"fields": []any{
					map[string]any{
						"name": "bookById",
						"args": []any{
							map[string]any{"name": "id", "type": map[string]any{"name": "ID"}},
						},
					},
				},
			},
		},
		Errors: []engine.FieldError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Result mismatch (-want +got):\n%s", diff)
	}
}
