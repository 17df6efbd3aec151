package text2sql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/cache"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
)

// fakeExecutor records executed queries and returns canned results.
type fakeExecutor struct {
	searchCalls int
	countCalls  int
	lastQuery   string
	lastBinds   []interface{}
	outlets     []storage.Outlet
	count       int
	err         error
}

func (f *fakeExecutor) ExecuteSearch(ctx context.Context, query string, binds []interface{}) ([]storage.Outlet, error) {
	f.searchCalls++
	f.lastQuery = query
	f.lastBinds = binds
	return f.outlets, f.err
}

func (f *fakeExecutor) ExecuteCount(ctx context.Context, query string, binds []interface{}) (int, error) {
	f.countCalls++
	f.lastQuery = query
	f.lastBinds = binds
	return f.count, f.err
}

func newTestService(t *testing.T, exec *fakeExecutor) *Service {
	t.Helper()

	logger := observability.DefaultLogger()
	qc := NewQueryCache(cache.NewMemoryClient(100), logger, DefaultQueryCacheConfig())
	return NewService(exec, qc, logger)
}

func TestService_Query_RowQuery(t *testing.T) {
	exec := &fakeExecutor{
		outlets: []storage.Outlet{
			{ID: 1, Name: "SS 2 Drive-Thru", City: "Petaling Jaya", State: "Selangor"},
		},
	}
	svc := newTestService(t, exec)

	result, err := svc.Query(context.Background(), "outlets in PJ")
	require.NoError(t, err)

	assert.Equal(t, QueryTypeLocation, result.Translation.QueryType)
	assert.Equal(t, 1, result.Count)
	assert.False(t, result.Cached)
	require.Len(t, result.Outlets, 1)
	assert.Equal(t, "SS 2 Drive-Thru", result.Outlets[0].Name)

	assert.Equal(t, 1, exec.searchCalls)
	assert.Equal(t, 0, exec.countCalls)
	assert.Equal(t, []interface{}{"Petaling Jaya", "Petaling Jaya"}, exec.lastBinds)
}

func TestService_Query_CountQuery(t *testing.T) {
	exec := &fakeExecutor{count: 4}
	svc := newTestService(t, exec)

	result, err := svc.Query(context.Background(), "How many outlets are there in KL?")
	require.NoError(t, err)

	assert.Equal(t, QueryTypeCount, result.Translation.QueryType)
	assert.Equal(t, 4, result.Count)
	assert.Empty(t, result.Outlets)

	assert.Equal(t, 0, exec.searchCalls)
	assert.Equal(t, 1, exec.countCalls)
}

func TestService_Query_SecondCallHitsCache(t *testing.T) {
	exec := &fakeExecutor{
		outlets: []storage.Outlet{{ID: 1, Name: "SS 2 Drive-Thru"}},
	}
	svc := newTestService(t, exec)
	ctx := context.Background()

	first, err := svc.Query(ctx, "outlets in PJ")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Query(ctx, "outlets in PJ")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Count, second.Count)

	assert.Equal(t, 1, exec.searchCalls)
}

func TestService_Query_ExecutionError(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("connection refused")}
	svc := newTestService(t, exec)

	_, err := svc.Query(context.Background(), "outlets in PJ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outlet search query")
}

func TestService_Query_InvalidLocationStillExecutes(t *testing.T) {
	exec := &fakeExecutor{}
	svc := newTestService(t, exec)

	result, err := svc.Query(context.Background(), "outlets in Atlantis")
	require.NoError(t, err)

	assert.False(t, result.Translation.Valid)
	assert.Equal(t, 0, result.Count)
	assert.Equal(t, "SELECT * FROM outlets WHERE 1=0", exec.lastQuery)
	assert.Empty(t, exec.lastBinds)
}

func TestService_Query_NilCache(t *testing.T) {
	exec := &fakeExecutor{}
	svc := NewService(exec, nil, observability.DefaultLogger())
	ctx := context.Background()

	_, err := svc.Query(ctx, "show all outlets")
	require.NoError(t, err)
	_, err = svc.Query(ctx, "show all outlets")
	require.NoError(t, err)

	assert.Equal(t, 2, exec.searchCalls)
}

func TestService_InvalidateCache(t *testing.T) {
	exec := &fakeExecutor{}
	svc := newTestService(t, exec)
	ctx := context.Background()

	_, err := svc.Query(ctx, "show all outlets")
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateCache(ctx))

	result, err := svc.Query(ctx, "show all outlets")
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, 2, exec.searchCalls)
}
