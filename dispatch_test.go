package schemamap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	engine "github.com/hanpama/schemamap/internal/engine"
)

func TestResolveField_InvokesBoundHandler(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Bind(Query("greeting", func(name string) string {
		return "Hello, " + name
	}, WithArgs("name"))))

	d := newDispatcher(reg, NewLoaderRegistry())
	ctx := d.NewRequestScope(context.Background())

	got, err := d.ResolveField(ctx, engine.FieldTask{
		ObjectType: "Query",
		Field:      "greeting",
		Args:       map[string]any{"name": "GraphQL"},
	})
	require.NoError(t, err)
	require.Equal(t, "Hello, GraphQL", got)
}

func TestResolveField_PropertyFallback(t *testing.T) {
	type book struct {
		Id   int64
		Name string `graphql:"title"`
	}
	d := newDispatcher(NewRegistry(), NewLoaderRegistry())
	ctx := context.Background()

	cases := []struct {
		name   string
		source any
		field  string
		want   any
	}{
		{"map key", map[string]any{"name": "Dune"}, "name", "Dune"},
		{"struct tag", book{Name: "Dune"}, "title", "Dune"},
		{"case-insensitive field", book{Id: 9}, "id", int64(9)},
		{"pointer source", &book{Id: 9}, "id", int64(9)},
		{"absent", book{}, "publisher", nil},
		{"nil source", nil, "anything", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.ResolveField(ctx, engine.FieldTask{ObjectType: "Book", Field: tc.field, Source: tc.source})
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolveField_PanicBecomesApplicationError(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Bind(Query("boom", func() string { panic("kaboom") })))

	d := newDispatcher(reg, NewLoaderRegistry())
	_, err := d.ResolveField(context.Background(), engine.FieldTask{ObjectType: "Query", Field: "boom"})

	var ae *ApplicationError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, "kaboom", ae.Recovered)
}

type staticDeferred struct{ v any }

func (s staticDeferred) Resolve(ctx context.Context) (any, error) { return s.v, nil }

func TestResolveField_RejectsDeferredOutsideWave(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Bind(Query("sneaky", func() Deferred {
		return staticDeferred{v: "x"}
	})))

	d := newDispatcher(reg, NewLoaderRegistry())
	ctx := d.NewRequestScope(context.Background())
	_, err := d.ResolveField(ctx, engine.FieldTask{ObjectType: "Query", Field: "sneaky"})
	require.Error(t, err)
}

// ResolveWave invokes every handler before the flush, so keys from all wave
// members land in one batch call, and each element settles independently.
func TestResolveWave_InvokeAllThenFlushOnce(t *testing.T) {
	var batches [][]int64
	loaders := NewLoaderRegistry()
	require.NoError(t, RegisterBatchLoader(loaders, func(ctx context.Context, keys []int64) ([]string, error) {
		batches = append(batches, keys)
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = fmt.Sprintf("author-%d", k)
		}
		return out, nil
	}))

	reg := NewRegistry()
	require.NoError(t, reg.Bind(Field("Book", "author",
		func(parent map[string]any, l *Loader[int64, string]) *Thunk[string] {
			return l.Load(parent["authorId"].(int64))
		})))

	d := newDispatcher(reg, loaders)
	ctx := d.NewRequestScope(context.Background())

	results := d.ResolveWave(ctx, []engine.FieldTask{
		{ObjectType: "Book", Field: "author", Source: map[string]any{"authorId": int64(7)}},
		{ObjectType: "Book", Field: "author", Source: map[string]any{"authorId": int64(3)}},
		{ObjectType: "Book", Field: "author", Source: map[string]any{"authorId": int64(7)}},
	})

	if diff := cmp.Diff([][]int64{{7, 3}}, batches); diff != "" {
		t.Fatalf("batch calls mismatch (-want +got):\n%s", diff)
	}
	want := []engine.FieldResult{
		{Value: "author-7"},
		{Value: "author-3"},
		{Value: "author-7"},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("wave results mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveWave_ElementFailureIsIsolated(t *testing.T) {
	loaders := NewLoaderRegistry()
	require.NoError(t, RegisterBatchLoader(loaders, func(ctx context.Context, keys []int64) ([]string, error) {
		return make([]string, len(keys)), nil
	}))

	reg := NewRegistry()
	require.NoError(t, reg.Bind(Field("Book", "author",
		func(parent map[string]any, l *Loader[int64, string]) (*Thunk[string], error) {
			id, ok := parent["authorId"].(int64)
			if !ok {
				return nil, errors.New("book has no author id")
			}
			return l.Load(id), nil
		})))

	d := newDispatcher(reg, loaders)
	ctx := d.NewRequestScope(context.Background())

	results := d.ResolveWave(ctx, []engine.FieldTask{
		{ObjectType: "Book", Field: "author", Source: map[string]any{"authorId": int64(1)}},
		{ObjectType: "Book", Field: "author", Source: map[string]any{}},
	})

	require.NoError(t, results[0].Err)
	require.EqualError(t, results[1].Err, "book has no author id")
}

func TestNewRequestScope_FreshCoordinatorPerScope(t *testing.T) {
	d := newDispatcher(NewRegistry(), NewLoaderRegistry())
	ctx1 := d.NewRequestScope(context.Background())
	ctx2 := d.NewRequestScope(context.Background())

	c1, c2 := coordinatorFrom(ctx1), coordinatorFrom(ctx2)
	require.NotNil(t, c1)
	require.NotNil(t, c2)
	require.NotSame(t, c1, c2)
}

func TestResolveType_StructAndTypename(t *testing.T) {
	type Novel struct{ Name string }
	d := newDispatcher(NewRegistry(), NewLoaderRegistry())
	ctx := context.Background()

	got, err := d.ResolveType(ctx, "Media", Novel{Name: "Dune"})
	require.NoError(t, err)
	require.Equal(t, "Novel", got)

	got, err = d.ResolveType(ctx, "Media", map[string]any{"__typename": "Film"})
	require.NoError(t, err)
	require.Equal(t, "Film", got)

	_, err = d.ResolveType(ctx, "Media", map[string]any{})
	require.Error(t, err)
}
