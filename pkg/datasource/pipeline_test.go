package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-viewstate/pkg/method"
)

func TestSelectRejectsUnsupportedCapabilityBeforeFetch(t *testing.T) {
	provider := &fakeProvider{
		name:  "users",
		caps:  Capabilities(CapabilityPage),
		fetch: func(context.Context, *Request) (any, error) { return numberedRows(3), nil },
	}
	pipeline, err := NewPipeline(provider)
	require.NoError(t, err)

	result, err := pipeline.Select(context.Background(), NewSelectArguments("Name", 0, 10))
	assert.Nil(t, result)
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, CapabilitySort, capErr.Capability)
	assert.Zero(t, provider.fetches)
	assert.Zero(t, provider.finishes)
}

func TestSelectSavesCountBeforeData(t *testing.T) {
	rows := numberedRows(25)
	provider := &fakeProvider{
		name: "users",
		caps: Capabilities(CapabilityPage, CapabilityRetrieveTotalRowCount),
		fetch: func(_ context.Context, req *Request) (any, error) {
			return window(rows, req.Args), nil
		},
		count: func(context.Context, *Request) (int, error) { return len(rows), nil },
	}
	recorder := NewRecorder(nil)
	pipeline, err := NewPipeline(provider, WithCache(recorder))
	require.NoError(t, err)

	args := NewSelectArguments("", 0, 10)
	args.RetrieveTotalRowCount = true
	result, err := pipeline.Select(context.Background(), args)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, ResultEnumerable, result.Kind)
	assert.Len(t, result.Items, 10)
	assert.Equal(t, "row-00", result.Items[0])
	assert.Equal(t, 25, result.TotalRowCount)

	assert.Equal(t, []string{
		"LoadData",
		"LoadTotalRowCount",
		"SaveTotalRowCount",
		"LoadTotalRowCount",
		"SaveData",
	}, recorder.Ops())

	again := NewSelectArguments("", 0, 10)
	again.RetrieveTotalRowCount = true
	cached, err := pipeline.Select(context.Background(), again)
	require.NoError(t, err)
	assert.Equal(t, result.Items, cached.Items)
	assert.Equal(t, 25, cached.TotalRowCount)
	assert.Equal(t, 1, provider.fetches)
	assert.Equal(t, 1, provider.counts)
}

func TestSelectingCancelReturnsNothing(t *testing.T) {
	provider := &fakeProvider{name: "users", fetch: func(context.Context, *Request) (any, error) { return numberedRows(2), nil }}
	pipeline, err := NewPipeline(provider)
	require.NoError(t, err)
	selected := false
	pipeline.Selecting = func(e *SelectingEvent) { e.Cancel = true }
	pipeline.Selected = func(*SelectedEvent) { selected = true }

	result, err := pipeline.Select(context.Background(), EmptyArguments())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Zero(t, provider.fetches)
	assert.False(t, selected)
}

func TestSelectingSeesCountQuery(t *testing.T) {
	provider := &fakeProvider{
		name:  "users",
		caps:  Capabilities(CapabilityRetrieveTotalRowCount),
		fetch: func(context.Context, *Request) (any, error) { return numberedRows(4), nil },
		count: func(context.Context, *Request) (int, error) { return 4, nil },
	}
	pipeline, err := NewPipeline(provider)
	require.NoError(t, err)
	var seen []bool
	pipeline.Selecting = func(e *SelectingEvent) {
		seen = append(seen, e.ExecutingCount)
		if e.ExecutingCount {
			e.Cancel = true
		}
	}

	args := EmptyArguments()
	args.RetrieveTotalRowCount = true
	result, err := pipeline.Select(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, seen)
	assert.Equal(t, -1, result.TotalRowCount)
	assert.Zero(t, provider.counts)
	assert.Equal(t, 1, provider.finishes)
}

func TestSelectNilFetchResult(t *testing.T) {
	provider := &fakeProvider{name: "users"}
	pipeline, err := NewPipeline(provider)
	require.NoError(t, err)

	result, err := pipeline.Select(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, provider.fetches)
}

func TestSelectTableBuildsFilteredSortedView(t *testing.T) {
	provider := &fakeProvider{
		name:   "people",
		caps:   Capabilities(CapabilitySort, CapabilityRetrieveTotalRowCount),
		filter: "city == params.city",
		params: map[string]any{"city": "Oslo"},
		fetch:  func(context.Context, *Request) (any, error) { return peopleTable(), nil },
	}
	pipeline, err := NewPipeline(provider)
	require.NoError(t, err)

	args := NewSelectArguments("name DESC", 0, 0)
	args.RetrieveTotalRowCount = true
	result, err := pipeline.Select(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, ResultTable, result.Kind)
	assert.Equal(t, 4, result.TotalRowCount)

	rows, err := result.View.Rows()
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "bob"}, names(rows))

	all, err := result.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFilteringCancel(t *testing.T) {
	provider := &fakeProvider{
		name:   "people",
		filter: "age > 35",
		fetch:  func(context.Context, *Request) (any, error) { return peopleTable(), nil },
	}
	pipeline, err := NewPipeline(provider)
	require.NoError(t, err)
	pipeline.Filtering = func(e *FilteringEvent) { e.Cancel = true }

	result, err := pipeline.Select(context.Background(), EmptyArguments())
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestSelectCachedTableRunsPagingCount(t *testing.T) {
	provider := &fakeProvider{
		name:  "people",
		caps:  Capabilities(CapabilityRetrieveTotalRowCount),
		fetch: func(context.Context, *Request) (any, error) { return peopleTable(), nil },
		count: func(context.Context, *Request) (int, error) { return 4, nil },
	}
	recorder := NewRecorder(nil)
	pipeline, err := NewPipeline(provider, WithCache(recorder))
	require.NoError(t, err)

	_, err = pipeline.Select(context.Background(), EmptyArguments())
	require.NoError(t, err)

	recorder.Cache.SaveTotalRowCount("people", 4)
	recorder.Cache.SaveData("people", 0, 0, peopleTable())

	args := EmptyArguments()
	args.RetrieveTotalRowCount = true
	result, err := pipeline.Select(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, ResultTable, result.Kind)
	assert.Equal(t, 4, result.TotalRowCount)
	assert.Equal(t, 1, provider.fetches)
	assert.Zero(t, provider.counts)
}

func TestUnsupportedShapes(t *testing.T) {
	cases := []struct {
		name   string
		caps   CapabilitySet
		filter string
		raw    any
		args   *SelectArguments
		cache  Cache
		shape  ResultKind
	}{
		{
			name:  "sort on enumerable",
			caps:  Capabilities(CapabilitySort),
			raw:   []string{"a"},
			args:  NewSelectArguments("name", 0, 0),
			shape: ResultEnumerable,
		},
		{
			name:   "filter on scalar",
			raw:    42,
			filter: "x > 1",
			args:   EmptyArguments(),
			shape:  ResultScalar,
		},
		{
			name:  "cached stream",
			raw:   NewSliceStream([]any{1, 2}),
			args:  EmptyArguments(),
			cache: NewMemoryCache(0, ExpireAbsolute),
			shape: ResultStream,
		},
		{
			name:  "sorted view with caching",
			caps:  Capabilities(CapabilitySort),
			raw:   NewTableView(peopleTable()),
			args:  NewSelectArguments("name", 0, 0),
			cache: NewMemoryCache(0, ExpireAbsolute),
			shape: ResultView,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := tc.raw
			provider := &fakeProvider{
				name:   "things",
				caps:   tc.caps,
				filter: tc.filter,
				fetch:  func(context.Context, *Request) (any, error) { return raw, nil },
			}
			opts := []Option{}
			if tc.cache != nil {
				opts = append(opts, WithCache(tc.cache))
			}
			pipeline, err := NewPipeline(provider, opts...)
			require.NoError(t, err)

			_, err = pipeline.Select(context.Background(), tc.args)
			var shapeErr *UnsupportedShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, tc.shape, shapeErr.Shape)
		})
	}
}

func TestScalarAndStreamResults(t *testing.T) {
	provider := &fakeProvider{
		name: "scalar",
		caps: Capabilities(CapabilityRetrieveTotalRowCount),
		fetch: func(context.Context, *Request) (any, error) {
			return map[string]any{"id": 1}, nil
		},
	}
	pipeline, err := NewPipeline(provider)
	require.NoError(t, err)
	args := EmptyArguments()
	args.RetrieveTotalRowCount = true
	result, err := pipeline.Select(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, ResultScalar, result.Kind)
	assert.Equal(t, 1, result.TotalRowCount)
	assert.Len(t, result.Items, 1)

	streaming := &fakeProvider{
		name:  "stream",
		fetch: func(context.Context, *Request) (any, error) { return NewSliceStream([]any{"x", "y"}), nil },
	}
	pipeline, err = NewPipeline(streaming)
	require.NoError(t, err)
	result, err = pipeline.Select(context.Background(), EmptyArguments())
	require.NoError(t, err)
	assert.Equal(t, ResultStream, result.Kind)
	all, err := result.All()
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, all)
}

type paramProvider struct {
	fakeProvider
	values *method.Values
}

func (p *paramProvider) SelectValues(context.Context) (*method.Values, error) {
	return p.values.Clone(), nil
}

func TestSelectingCanEditParameters(t *testing.T) {
	var received any
	provider := &paramProvider{values: method.NewValues("region", "emea")}
	provider.name = "regions"
	provider.fetch = func(_ context.Context, req *Request) (any, error) {
		received, _ = req.Params.Get("region")
		return []string{"ok"}, nil
	}
	pipeline, err := NewPipeline(provider)
	require.NoError(t, err)
	pipeline.Selecting = func(e *SelectingEvent) { e.Params.Set("REGION", "apac") }

	_, err = pipeline.Select(context.Background(), EmptyArguments())
	require.NoError(t, err)
	assert.Equal(t, "apac", received)
}

func TestFetchErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	provider := &fakeProvider{name: "users", fetch: func(context.Context, *Request) (any, error) { return nil, boom }}
	pipeline, err := NewPipeline(provider)
	require.NoError(t, err)

	var events []LogEvent
	WithLogger(LoggerFunc(func(e LogEvent) { events = append(events, e) }))(pipeline)

	_, err = pipeline.Select(context.Background(), EmptyArguments())
	assert.ErrorIs(t, err, boom)
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, boom)
	assert.Equal(t, 1, provider.finishes)
}

func TestNegativeStartRowIndex(t *testing.T) {
	pipeline, err := NewPipeline(&fakeProvider{name: "users"})
	require.NoError(t, err)
	_, err = pipeline.Select(context.Background(), NewSelectArguments("", -1, 0))
	assert.ErrorContains(t, err, "must not be negative")
}
