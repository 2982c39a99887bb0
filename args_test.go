package schemamap

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type searchCriteria struct {
	Author   string   `graphql:"author"`
	Genre    *string  `graphql:"genre"`
	MinPages int64    `graphql:"minPages,nonnull"`
	Tags     []string `graphql:"tags"`
}

func TestCoerceToType_Scalars(t *testing.T) {
	cases := []struct {
		name   string
		raw    any
		target reflect.Type
		want   any
	}{
		{"string to string", "x", reflect.TypeOf(""), "x"},
		{"id string to int64", "42", reflect.TypeOf(int64(0)), int64(42)},
		{"int to int64", 7, reflect.TypeOf(int64(0)), int64(7)},
		{"float64 whole to int", float64(3), reflect.TypeOf(int(0)), 3},
		{"int to float64", 2, reflect.TypeOf(float64(0)), 2.0},
		{"bool to bool", true, reflect.TypeOf(false), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := coerceToType(tc.raw, tc.target, "v")
			require.NoError(t, err)
			require.Equal(t, tc.want, got.Interface())
		})
	}
}

func TestCoerceToType_Struct(t *testing.T) {
	raw := map[string]any{
		"author":   "Josh",
		"minPages": 200,
		"tags":     []any{"java", "spring"},
	}
	got, err := coerceToType(raw, reflect.TypeOf(searchCriteria{}), "criteria")
	require.NoError(t, err)

	want := searchCriteria{Author: "Josh", MinPages: 200, Tags: []string{"java", "spring"}}
	if diff := cmp.Diff(want, got.Interface()); diff != "" {
		t.Fatalf("coerced struct mismatch (-want +got):\n%s", diff)
	}
}

func TestCoerceToType_StructMatchesFieldNameWithoutTag(t *testing.T) {
	type input struct{ Name string }
	got, err := coerceToType(map[string]any{"Name": "n"}, reflect.TypeOf(input{}), "in")
	require.NoError(t, err)
	require.Equal(t, input{Name: "n"}, got.Interface())
}

func TestCoerceToType_MissingNonNullField(t *testing.T) {
	_, err := coerceToType(map[string]any{"author": "Josh"}, reflect.TypeOf(searchCriteria{}), "criteria")
	var ce *CoercionError
	require.True(t, errors.As(err, &ce))
	require.Contains(t, ce.Path, "minPages")
}

func TestCoerceToType_PointerWrapsValue(t *testing.T) {
	got, err := coerceToType("horror", reflect.TypeOf((*string)(nil)), "genre")
	require.NoError(t, err)
	require.Equal(t, "horror", got.Elem().Interface())
}

func TestCoerceToType_IncompatibleValue(t *testing.T) {
	_, err := coerceToType("nope", reflect.TypeOf(false), "flag")
	var ce *CoercionError
	require.True(t, errors.As(err, &ce))
}

func TestResolveParameters_MissingRequiredArgument(t *testing.T) {
	d := Query("bookById", func(id int64) string { return "" }, WithArgs("id"))
	require.NoError(t, d.err)

	fc := &FieldContext{Args: map[string]any{}}
	_, err := resolveParameters(context.Background(), d, fc, nil)

	var are *ArgumentResolutionError
	require.True(t, errors.As(err, &are))
	require.Equal(t, "id", are.Parameter)
}

func TestResolveParameters_OptionalArgumentDefaultsToNil(t *testing.T) {
	d := Query("books", func(genre *string) string { return "" }, WithArgs("genre"))
	require.NoError(t, d.err)

	in, err := resolveParameters(context.Background(), d, &FieldContext{Args: map[string]any{}}, nil)
	require.NoError(t, err)
	require.True(t, in[0].IsNil())
}

func TestResolveParameters_ContextSources(t *testing.T) {
	d := Query("probe", func(ctx context.Context, fc *FieldContext, bag *ContextBag) string { return "" })
	require.NoError(t, d.err)

	bag := NewContextBag()
	fc := &FieldContext{FieldName: "probe", Bag: bag}
	ctx := context.Background()

	in, err := resolveParameters(ctx, d, fc, nil)
	require.NoError(t, err)
	require.Equal(t, ctx, in[0].Interface())
	require.Same(t, fc, in[1].Interface())
	require.Same(t, bag, in[2].Interface())
}

func TestResolveParameters_UnregisteredLoader(t *testing.T) {
	d := Query("authors", func(l *Loader[int64, string]) Deferred { return nil })
	require.NoError(t, d.err)

	c := NewCoordinator(NewLoaderRegistry())
	_, err := resolveParameters(context.Background(), d, &FieldContext{}, c)

	var ule *UnregisteredLoaderError
	require.True(t, errors.As(err, &ule))
	require.Equal(t, reflect.TypeOf(int64(0)), ule.KeyType)
	require.Equal(t, reflect.TypeOf(""), ule.ValueType)
}
