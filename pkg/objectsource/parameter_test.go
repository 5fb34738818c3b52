package objectsource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	viewstate "github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/method"
)

type tenantKey struct{}

func TestParametersValuesEvaluateSourcesAndDefaults(t *testing.T) {
	params := NewParameters(
		Parameter{Name: "tenant", Source: FromContext(tenantKey{}), DefaultValue: "public"},
		Parameter{Name: "limit", Type: method.TypeOf[int](), DefaultValue: "25"},
		Parameter{Name: "search", ConvertEmptyStringToNull: true, DefaultValue: ""},
	)

	values, err := params.Values(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant", "limit", "search"}, values.Keys())
	assert.Equal(t, map[string]any{"tenant": "public", "limit": 25, "search": nil}, values.Map())

	ctx := context.WithValue(context.Background(), tenantKey{}, "acme")
	values, err = params.Values(ctx)
	require.NoError(t, err)
	tenant, _ := values.Get("TENANT")
	assert.Equal(t, "acme", tenant)
}

func TestParametersSourceError(t *testing.T) {
	params := NewParameters(Parameter{
		Name: "broken",
		Source: SourceFunc(func(context.Context) (any, bool, error) {
			return nil, false, errors.New("no session")
		}),
	})
	_, err := params.Values(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session")
}

func TestParametersConversionError(t *testing.T) {
	params := NewParameters(Parameter{Name: "limit", Type: method.TypeOf[int](), DefaultValue: "many"})
	_, err := params.Values(context.Background())
	var convErr *method.TypeConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "limit", convErr.Param)
}

func TestParametersSetDefaultRaisesChanged(t *testing.T) {
	params := NewParameters(Parameter{Name: "status", DefaultValue: "open"})
	changed := 0
	params.Changed = func() { changed++ }

	require.NoError(t, params.SetDefault("STATUS", "closed"))
	assert.Equal(t, 1, changed)
	got, ok := params.Default("status")
	require.True(t, ok)
	assert.Equal(t, "closed", got)

	assert.Error(t, params.SetDefault("missing", 1))
}

func TestParametersStateRoundTrip(t *testing.T) {
	build := func() *Parameters {
		return NewParameters(
			Parameter{Name: "status", DefaultValue: "open"},
			Parameter{Name: "page", DefaultValue: 0},
		)
	}
	params := build()
	params.TrackState()

	saved, err := params.SaveState()
	require.NoError(t, err)
	assert.Nil(t, saved, "defaults set before tracking are not saved")

	require.NoError(t, params.SetDefault("page", 4))
	saved, err = params.SaveState()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, []viewstate.Entry{{Key: "page", Value: 4}}, saved.Entries)

	restored := build()
	require.NoError(t, restored.LoadState(saved))
	got, _ := restored.Default("page")
	assert.Equal(t, 4, got)

	err = restored.LoadState(&viewstate.Snapshot{Entries: []viewstate.Entry{{Key: "unknown", Value: 1}}})
	assert.ErrorIs(t, err, viewstate.ErrStateCorrupt)
}

func TestObjectViewStateUsesSelectAndFilterSlots(t *testing.T) {
	build := func() *ObjectView {
		view := NewObjectView(method.NewRegistry(), "UserStore")
		view.SelectParameters.Add(Parameter{Name: "status", DefaultValue: "open"})
		view.FilterParameters.Add(Parameter{Name: "minAge", DefaultValue: 18})
		return view
	}

	view := build()
	changed := 0
	view.Changed = func() { changed++ }
	view.TrackState()

	saved, err := view.SaveState()
	require.NoError(t, err)
	assert.Nil(t, saved)

	require.NoError(t, view.FilterParameters.SetDefault("minAge", 21))
	saved, err = view.SaveState()
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Len(t, saved.Slots, 2)
	assert.Nil(t, saved.Slots[0])
	assert.NotNil(t, saved.Slots[1])
	assert.Zero(t, changed, "filter changes do not raise Changed")

	require.NoError(t, view.SelectParameters.SetDefault("status", "closed"))
	assert.Equal(t, 1, changed)

	restored := build()
	require.NoError(t, restored.LoadState(saved))
	got, _ := restored.FilterParameters.Default("minAge")
	assert.Equal(t, 21, got)

	err = restored.LoadState(&viewstate.Snapshot{Slots: []*viewstate.Snapshot{nil}})
	assert.ErrorIs(t, err, viewstate.ErrStateCorrupt)
}
