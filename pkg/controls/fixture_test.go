package controls

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/datasource"
)

type product struct {
	ID   int
	Name string
}

// rowsProvider serves rows and, with count set, pages them itself.
type rowsProvider struct {
	rows  []any
	caps  datasource.CapabilitySet
	count bool

	lastArgs datasource.SelectArguments
	fetches  int
}

func (p *rowsProvider) Name() string                           { return "products" }
func (p *rowsProvider) Capabilities() datasource.CapabilitySet { return p.caps }

func (p *rowsProvider) Fetch(_ context.Context, req *datasource.Request) (any, error) {
	p.fetches++
	p.lastArgs = *req.Args
	if !p.caps.Has(datasource.CapabilityPage) {
		return p.rows, nil
	}
	start := min(req.Args.StartRowIndex, len(p.rows))
	end := len(p.rows)
	if req.Args.MaximumRows > 0 {
		end = min(start+req.Args.MaximumRows, end)
	}
	return p.rows[start:end], nil
}

func (p *rowsProvider) CanCount() bool { return p.count }

func (p *rowsProvider) Count(context.Context, *datasource.Request) (int, error) {
	return len(p.rows), nil
}

func products(n int) []any {
	rows := make([]any, n)
	for i := range rows {
		rows[i] = product{ID: i + 1, Name: "p" + string(rune('a'+i%26))}
	}
	return rows
}

func pipeline(t *testing.T, provider datasource.Provider) *datasource.Pipeline {
	t.Helper()
	p, err := datasource.NewPipeline(provider)
	require.NoError(t, err)
	return p
}

// roundTrip saves from, encodes and decodes the blob, and loads it into to.
func roundTrip(t *testing.T, from, to viewstate.Stateful) *viewstate.Snapshot {
	t.Helper()
	snap, err := from.SaveState()
	require.NoError(t, err)
	codec := viewstate.NewCodec()
	blob, err := codec.Encode(snap)
	require.NoError(t, err)
	decoded, err := codec.Decode(blob)
	require.NoError(t, err)
	require.NoError(t, to.LoadState(decoded))
	return decoded
}
