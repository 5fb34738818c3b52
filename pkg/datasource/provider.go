package datasource

import (
	"context"

	"github.com/goliatone/go-viewstate/pkg/method"
)

// Request is handed to a provider for one select. Params holds the merged
// select parameters; providers must not mutate it because the count query
// reuses it.
type Request struct {
	Args   *SelectArguments
	Params *method.Values

	// Handle is provider scratch space shared between Fetch, Count and Finish.
	Handle any
}

// Provider is the data source boundary.
type Provider interface {
	Name() string
	Capabilities() CapabilitySet
	Fetch(ctx context.Context, req *Request) (any, error)
}

// Counter is implemented by providers with a dedicated total-row-count query.
type Counter interface {
	CanCount() bool
	Count(ctx context.Context, req *Request) (int, error)
}

// Filterer is implemented by providers that filter tabular results after the
// fetch.
type Filterer interface {
	Filter() string
	FilterValues(ctx context.Context) (map[string]any, error)
}

// Parameterizer supplies the merged select parameters.
type Parameterizer interface {
	SelectValues(ctx context.Context) (*method.Values, error)
}

// CacheKeyer overrides the cache key, which defaults to the provider name.
type CacheKeyer interface {
	CacheKey() string
}

// Finisher is called once the select (and its count) completed, on every exit
// path after Fetch was attempted.
type Finisher interface {
	Finish(ctx context.Context, req *Request)
}

func canCount(p Provider) (Counter, bool) {
	counter, ok := p.(Counter)
	if !ok || !counter.CanCount() {
		return nil, false
	}
	return counter, true
}

func cacheKey(p Provider) string {
	if keyer, ok := p.(CacheKeyer); ok {
		if key := keyer.CacheKey(); key != "" {
			return key
		}
	}
	return p.Name()
}

func filterExpression(p Provider) string {
	if f, ok := p.(Filterer); ok {
		return f.Filter()
	}
	return ""
}
