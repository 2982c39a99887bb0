package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schemamap "github.com/hanpama/schemamap"
	eventbus "github.com/hanpama/schemamap/internal/eventbus"
)

const bookSDL = `
type Query {
  bookById(id: ID): Book
}

type Book {
  id: ID
  name: String
  author: Author
}

type Author {
  id: ID
  firstName: String
}
`

type testBook struct {
	Id       int64
	Name     string
	AuthorId int64
}

type testAuthor struct {
	Id        int64
	FirstName string
}

func newBookService(t *testing.T) *schemamap.Service {
	t.Helper()

	books := map[int64]*testBook{
		1: {Id: 1, Name: "Nineteen Eighty-Four", AuthorId: 11},
	}
	authors := map[int64]*testAuthor{
		11: {Id: 11, FirstName: "George"},
	}

	loaders := schemamap.NewLoaderRegistry()
	require.NoError(t, schemamap.RegisterBatchLoader(loaders, func(ctx context.Context, ids []int64) ([]*testAuthor, error) {
		out := make([]*testAuthor, len(ids))
		for i, id := range ids {
			out[i] = authors[id]
		}
		return out, nil
	}))

	reg := schemamap.NewRegistry()
	require.NoError(t, reg.Bind(
		schemamap.Query("bookById", func(id int64) *testBook {
			return books[id]
		}, schemamap.WithArgs("id")),
		schemamap.Field("Book", "author", func(b *testBook, authorLoader *schemamap.Loader[int64, *testAuthor]) *schemamap.Thunk[*testAuthor] {
			return authorLoader.Load(b.AuthorId)
		}),
	))

	svc, err := schemamap.NewService(bookSDL, reg, loaders)
	require.NoError(t, err)
	return svc
}

type eventLog struct {
	mu         sync.Mutex
	operations []OperationFinish
	dispatches []DispatchFinish
	batches    []BatchLoadFinish
}

func (l *eventLog) attach() (detach func()) {
	u1 := Subscribe(func(_ context.Context, e OperationFinish) {
		l.mu.Lock()
		l.operations = append(l.operations, e)
		l.mu.Unlock()
	})
	u2 := Subscribe(func(_ context.Context, e DispatchFinish) {
		l.mu.Lock()
		l.dispatches = append(l.dispatches, e)
		l.mu.Unlock()
	})
	u3 := Subscribe(func(_ context.Context, e BatchLoadFinish) {
		l.mu.Lock()
		l.batches = append(l.batches, e)
		l.mu.Unlock()
	})
	return func() {
		u1()
		u2()
		u3()
	}
}

func TestEnableDeliversExecutionEvents(t *testing.T) {
	defer Enable()()

	var log eventLog
	defer log.attach()()

	svc := newBookService(t)
	res := svc.Execute(context.Background(), schemamap.OperationRequest{
		Query: `{ bookById(id: 1) { name author { firstName } } }`,
	})
	require.Empty(t, res.Errors)

	var fields [][2]string
	for _, e := range log.dispatches {
		fields = append(fields, [2]string{e.ObjectType, e.Field})
	}
	want := [][2]string{{"Query", "bookById"}, {"Book", "author"}}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("dispatch events mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, log.batches, 1)
	require.Equal(t, "int64", log.batches[0].KeyType)
	require.Equal(t, 1, log.batches[0].Keys)
	require.NoError(t, log.batches[0].Err)

	require.Len(t, log.operations, 1)
	require.Equal(t, "query", log.operations[0].OperationType)
	require.Zero(t, log.operations[0].ErrorCount)
}

func TestEventsAreQuietWithoutEnable(t *testing.T) {
	var log eventLog
	defer log.attach()()

	svc := newBookService(t)
	res := svc.Execute(context.Background(), schemamap.OperationRequest{
		Query: `{ bookById(id: 1) { name } }`,
	})
	require.Empty(t, res.Errors)

	require.Empty(t, log.operations)
	require.Empty(t, log.dispatches)
	require.Empty(t, log.batches)
}

func TestDisableStopsDelivery(t *testing.T) {
	disable := Enable()

	var log eventLog
	defer log.attach()()

	svc := newBookService(t)
	disable()

	res := svc.Execute(context.Background(), schemamap.OperationRequest{
		Query: `{ bookById(id: 1) { name } }`,
	})
	require.Empty(t, res.Errors)
	require.Empty(t, log.dispatches)
}

func TestSetupWithoutEndpointActivatesBus(t *testing.T) {
	shutdown, err := Setup("", "schemamap-test")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, shutdown(context.Background()))
		eventbus.Use(nil)
	})

	var log eventLog
	defer log.attach()()

	svc := newBookService(t)
	res := svc.Execute(context.Background(), schemamap.OperationRequest{
		Query: `{ bookById(id: 1) { name } }`,
	})
	require.Empty(t, res.Errors)
	require.Len(t, log.operations, 1)
}
