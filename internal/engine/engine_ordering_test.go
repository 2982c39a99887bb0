package engine

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	schema "github.com/hanpama/schemamap/internal/schema"
)

// Sync fields resolve immediately in document order; async fields are
// deferred into one wave that runs after the sync pass.
func TestOrdering_SyncThenWave(t *testing.T) {
	sch := newTestSchema(newObjectType("Query",
		&schema.Field{Name: "a", Type: schema.NamedType("String"), Async: false},
		&schema.Field{Name: "b", Type: schema.NamedType("String"), Async: true},
		&schema.Field{Name: "c", Type: schema.NamedType("String"), Async: false},
	))
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockValueResolver("A"),
		"Query.b": NewMockValueResolver("B"),
		"Query.c": NewMockValueResolver("C"),
	})
	eng := New(rt, sch)
	doc := mustParseQuery(t, "{ a b c }")

	gotRes := eng.Execute(context.Background(), doc, "", nil, nil)
	gotCalls := rt.GetCalls()

	wantRes := &Result{Data: map[string]any{"a": "A", "b": "B", "c": "C"}, Errors: []FieldError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("Result mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{Kind: "sync", ObjectType: "Query", Field: "a", Source: nil, Args: map[string]any{}},
		{Kind: "sync", ObjectType: "Query", Field: "c", Source: nil, Args: map[string]any{}},
		{Kind: "wave", ObjectType: "Query", Field: "b", Source: nil, Args: map[string]any{}, WaveID: 1},
	}
	if diff := cmp.Diff(wantCalls, gotCalls); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

// All async siblings at one depth share a single wave; async children
// discovered while completing that wave go into the next one.
func TestOrdering_OneWavePerDepth(t *testing.T) {
	sch := newTestSchema(
		newObjectType("Query",
			&schema.Field{Name: "x", Type: schema.NamedType("Obj"), Async: true},
			&schema.Field{Name: "y", Type: schema.NamedType("Obj"), Async: true},
		),
		newObjectType("Obj",
			&schema.Field{Name: "leaf", Type: schema.NamedType("String"), Async: true},
		),
	)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.x":  NewMockValueResolver(map[string]any{}),
		"Query.y":  NewMockValueResolver(map[string]any{}),
		"Obj.leaf": NewMockValueResolver("L"),
	})
	eng := New(rt, sch)
	doc := mustParseQuery(t, "{ x { leaf } y { leaf } }")

	gotRes := eng.Execute(context.Background(), doc, "", nil, nil)

	wantRes := &Result{Data: map[string]any{
		"x": map[string]any{"leaf": "L"},
		"y": map[string]any{"leaf": "L"},
	}, Errors: []FieldError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("Result mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{Kind: "wave", ObjectType: "Query", Field: "x", Source: nil, Args: map[string]any{}, WaveID: 1},
		{Kind: "wave", ObjectType: "Query", Field: "y", Source: nil, Args: map[string]any{}, WaveID: 1},
		{Kind: "wave", ObjectType: "Obj", Field: "leaf", Source: map[string]any{}, Args: map[string]any{}, WaveID: 2},
		{Kind: "wave", ObjectType: "Obj", Field: "leaf", Source: map[string]any{}, Args: map[string]any{}, WaveID: 2},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

// Aliased duplicate selections of the same field merge into one group per
// response name.
func TestOrdering_AliasedFields(t *testing.T) {
	sch := newTestSchema(newObjectType("Query",
		&schema.Field{Name: "v", Type: schema.NamedType("String")},
	))
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.v": NewMockValueResolver("V"),
	})
	eng := New(rt, sch)
	doc := mustParseQuery(t, "{ first: v second: v }")

	gotRes := eng.Execute(context.Background(), doc, "", nil, nil)
	wantRes := &Result{Data: map[string]any{"first": "V", "second": "V"}, Errors: []FieldError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("Result mismatch (-want +got):\n%s", diff)
	}
}
