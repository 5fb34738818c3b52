package config

import (
	"github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/datasource"
	"github.com/goliatone/go-viewstate/pkg/filter"
	"github.com/goliatone/go-viewstate/pkg/objectsource"
	"github.com/goliatone/go-viewstate/pkg/state"
)

// NewCodec builds the blob codec. An empty mac_key disables signing.
func (c StateConfig) NewCodec(opts ...viewstate.CodecOption) *viewstate.Codec {
	base := []viewstate.CodecOption{viewstate.WithVersion(c.Version)}
	if c.MACKey != "" {
		base = append(base, viewstate.WithMACKey([]byte(c.MACKey)))
	}
	return viewstate.NewCodec(append(base, opts...)...)
}

// OpenStore opens the configured page-state store. The returned close
// function is never nil.
func (c StateConfig) OpenStore() (state.Store, func() error, error) {
	if c.Store == StoreBolt {
		store, err := state.OpenBoltStore(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return state.NewMemoryStore(), func() error { return nil }, nil
}

// NewCache returns the select cache, or nil when caching is disabled.
func (c CacheConfig) NewCache() datasource.Cache {
	if !c.Enabled {
		return nil
	}
	policy := datasource.ExpireAbsolute
	if c.Policy == PolicySliding {
		policy = datasource.ExpireSliding
	}
	return datasource.NewMemoryCache(c.Duration, policy)
}

// NewEvaluator builds the configured filter engine with the default
// function registry.
func (c FilterConfig) NewEvaluator(opts ...filter.Option) (filter.Evaluator, error) {
	base := []filter.Option{filter.WithFunctionRegistry(filter.DefaultFunctions())}
	return filter.New(c.Engine, append(base, opts...)...)
}

// PipelineOptions turns the cache and filter settings into pipeline options.
func (c Config) PipelineOptions() ([]datasource.Option, error) {
	evaluator, err := c.Filter.NewEvaluator()
	if err != nil {
		return nil, err
	}
	opts := []datasource.Option{datasource.WithEvaluator(evaluator)}
	if cache := c.Cache.NewCache(); cache != nil {
		opts = append(opts, datasource.WithCache(cache))
	}
	return opts, nil
}

// Apply copies the method settings onto an object view.
func (c MethodConfig) Apply(view *objectsource.ObjectView) {
	view.ConvertNullToDBNull = c.ConvertNullToDBNull
	view.OldValuesParameterFormat = c.OldValuesFormat
}
