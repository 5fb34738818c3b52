package datasource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/metric"

	"github.com/goliatone/go-viewstate/pkg/filter"
	"github.com/goliatone/go-viewstate/pkg/method"
)

// SelectingEvent is raised before the fetch and again before a count query
// (ExecutingCount). Handlers may edit Args and Params or set Cancel.
type SelectingEvent struct {
	Args           *SelectArguments
	Params         *method.Values
	ExecutingCount bool
	Cancel         bool
}

// SelectedEvent is raised after a successful select.
type SelectedEvent struct {
	Args     *SelectArguments
	Result   *Result
	Cached   bool
	Duration time.Duration
}

// FilteringEvent is raised before a filter expression is applied to a table.
// Handlers may edit Params or set Cancel, which yields no result.
type FilteringEvent struct {
	Params map[string]any
	Cancel bool
}

// Pipeline runs selects against one provider. Callback fields must be set
// before the first select. A Pipeline runs one select at a time.
type Pipeline struct {
	Selecting func(*SelectingEvent)
	Selected  func(*SelectedEvent)
	Filtering func(*FilteringEvent)

	provider      Provider
	cache         Cache
	evaluator     filter.Evaluator
	logger        Logger
	meterProvider metric.MeterProvider
	metrics       *pipelineMetrics
	now           func() time.Time

	pending atomic.Bool
	wg      conc.WaitGroup
}

// NewPipeline returns a pipeline over provider.
func NewPipeline(provider Provider, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, errors.New("datasource: provider is nil")
	}
	p := &Pipeline{
		provider: provider,
		logger:   noopLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.evaluator == nil {
		evaluator, err := filter.New(filter.EngineExpr, filter.WithFunctionRegistry(filter.DefaultFunctions()))
		if err != nil {
			return nil, err
		}
		p.evaluator = evaluator
	}
	p.metrics = newPipelineMetrics(p.meterProvider)
	return p, nil
}

// Provider returns the wrapped provider.
func (p *Pipeline) Provider() Provider { return p.provider }

// Cache returns the configured cache, which may be nil.
func (p *Pipeline) Cache() Cache { return p.cache }

// selection carries one select through the stages.
type selection struct {
	req          *Request
	view         string
	key          string
	filter       string
	counter      Counter
	canCount     bool
	cacheEnabled bool
	start        time.Time
}

// Select runs the full state machine: declare and validate capabilities,
// check the cache, notify, fetch, count, normalize and store. A canceled
// Selecting event or a nil fetch result yields (nil, nil). While another
// fetch is pending on the pipeline it returns ErrFetchPending.
func (p *Pipeline) Select(ctx context.Context, args *SelectArguments) (*Result, error) {
	if !p.pending.CompareAndSwap(false, true) {
		return nil, ErrFetchPending
	}
	defer p.pending.Store(false)

	sel, err := p.prepare(ctx, args)
	if err != nil {
		return p.finish(ctx, sel, nil, false, err)
	}
	if result, hit, err := p.fromCache(ctx, sel); err != nil || hit {
		return p.finish(ctx, sel, result, true, err)
	}
	if !p.notifySelecting(sel, false) {
		return p.finish(ctx, sel, nil, false, nil)
	}
	raw, err := p.execute(ctx, sel)
	result, err := p.complete(ctx, sel, raw, err)
	return p.finish(ctx, sel, result, false, err)
}

func (p *Pipeline) prepare(ctx context.Context, args *SelectArguments) (*selection, error) {
	if args == nil {
		args = EmptyArguments()
	}
	sel := &selection{
		req:   &Request{Args: args, Params: &method.Values{}},
		view:  p.provider.Name(),
		start: p.now(),
	}
	if err := args.check(); err != nil {
		return sel, err
	}

	args.AddSupportedCapabilities(DeclareSupported(p.provider))
	if err := Validate(sel.view, args.Supported(), args.Requested()); err != nil {
		return sel, err
	}

	sel.counter, sel.canCount = canCount(p.provider)
	sel.cacheEnabled = p.cache != nil && p.cache.Enabled()
	sel.key = cacheKey(p.provider)
	sel.filter = filterExpression(p.provider)

	if pz, ok := p.provider.(Parameterizer); ok {
		params, err := pz.SelectValues(ctx)
		if err != nil {
			return sel, err
		}
		if params != nil {
			sel.req.Params = params
		}
	}
	return sel, nil
}

func (p *Pipeline) notifySelecting(sel *selection, executingCount bool) bool {
	if p.Selecting == nil {
		return true
	}
	event := &SelectingEvent{Args: sel.req.Args, Params: sel.req.Params, ExecutingCount: executingCount}
	p.Selecting(event)
	return !event.Cancel
}

func (p *Pipeline) fromCache(ctx context.Context, sel *selection) (*Result, bool, error) {
	if !sel.cacheEnabled {
		return nil, false, nil
	}
	args := sel.req.Args
	data, ok := p.cache.LoadData(sel.key, args.StartRowIndex, args.MaximumRows)
	hit := ok && data != nil
	p.metrics.recordLookup(ctx, sel.view, hit)
	if !hit {
		return nil, false, nil
	}

	switch cached := data.(type) {
	case *TableView:
		if args.RetrieveTotalRowCount && !sel.canCount {
			n, err := cached.Count()
			if err != nil {
				return nil, false, err
			}
			args.TotalRowCount = n
		}
		if sel.filter != "" {
			return nil, false, &UnsupportedShapeError{View: sel.view, Shape: ResultView, Reason: "filtering is not supported"}
		}
		if args.SortExpression == "" {
			return &Result{Kind: ResultView, View: cached}, true, nil
		}
		// a sorted request re-fetches
		return nil, false, nil
	case *Table:
		if err := p.processPaging(ctx, sel); err != nil {
			return nil, false, err
		}
		view, ok, err := p.filteredView(ctx, sel, cached)
		if err != nil || !ok {
			return nil, true, err
		}
		return &Result{Kind: ResultTable, View: view}, true, nil
	default:
		items, kind, err := p.enumerable(sel, data)
		if err != nil {
			return nil, false, err
		}
		if err := p.processPaging(ctx, sel); err != nil {
			return nil, false, err
		}
		return &Result{Kind: kind, Items: items}, true, nil
	}
}

// processPaging fills TotalRowCount for cached results from the cached count
// or a fresh count query.
func (p *Pipeline) processPaging(ctx context.Context, sel *selection) error {
	args := sel.req.Args
	if !args.RetrieveTotalRowCount {
		return nil
	}
	if n := p.cache.LoadTotalRowCount(sel.key); n >= 0 {
		args.TotalRowCount = n
		return nil
	}
	n, err := p.queryCount(ctx, sel)
	if err != nil {
		return err
	}
	args.TotalRowCount = n
	if n >= 0 {
		p.cache.SaveTotalRowCount(sel.key, n)
	}
	return nil
}

func (p *Pipeline) queryCount(ctx context.Context, sel *selection) (int, error) {
	if !sel.canCount {
		return -1, nil
	}
	if !p.notifySelecting(sel, true) {
		return -1, nil
	}
	return sel.counter.Count(ctx, sel.req)
}

func (p *Pipeline) execute(ctx context.Context, sel *selection) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if finisher, ok := p.provider.(Finisher); ok {
		defer finisher.Finish(ctx, sel.req)
	}
	raw, err := p.provider.Fetch(ctx, sel.req)
	if err != nil || raw == nil {
		return nil, err
	}
	if err := p.countAfterFetch(ctx, sel); err != nil {
		return nil, err
	}
	return raw, nil
}

func (p *Pipeline) countAfterFetch(ctx context.Context, sel *selection) error {
	args := sel.req.Args
	if !args.RetrieveTotalRowCount || !sel.canCount {
		return nil
	}
	n := -1
	if sel.cacheEnabled {
		n = p.cache.LoadTotalRowCount(sel.key)
	}
	if n >= 0 {
		args.TotalRowCount = n
		return nil
	}
	n, err := p.queryCount(ctx, sel)
	if err != nil {
		return err
	}
	args.TotalRowCount = n
	if sel.cacheEnabled && n >= 0 {
		p.cache.SaveTotalRowCount(sel.key, n)
	}
	return nil
}

func (p *Pipeline) complete(ctx context.Context, sel *selection, raw any, err error) (*Result, error) {
	if err != nil || raw == nil {
		return nil, err
	}
	args := sel.req.Args

	switch Shape(raw) {
	case ResultView:
		view := raw.(*TableView)
		if args.RetrieveTotalRowCount && !sel.canCount {
			n, err := view.Count()
			if err != nil {
				return nil, err
			}
			args.TotalRowCount = n
		}
		if sel.filter != "" {
			return nil, &UnsupportedShapeError{View: sel.view, Shape: ResultView, Reason: "filtering is not supported"}
		}
		if args.SortExpression != "" {
			if sel.cacheEnabled {
				return nil, &UnsupportedShapeError{View: sel.view, Shape: ResultView, Reason: "a sorted view cannot be cached"}
			}
			view.SetSort(args.SortExpression)
		}
		if sel.cacheEnabled {
			p.store(sel, view)
		}
		return &Result{Kind: ResultView, View: view}, nil

	case ResultTable:
		table := raw.(*Table)
		if args.RetrieveTotalRowCount && !sel.canCount {
			args.TotalRowCount = table.Len()
		}
		if sel.cacheEnabled {
			p.store(sel, table)
		}
		view, ok, err := p.filteredView(ctx, sel, table)
		if err != nil || !ok {
			return nil, err
		}
		return &Result{Kind: ResultTable, View: view}, nil

	case ResultStream:
		stream := raw.(Stream)
		var reason string
		switch {
		case sel.filter != "":
			reason = "filtering is not supported"
		case args.SortExpression != "":
			reason = "sorting is not supported"
		case sel.cacheEnabled:
			reason = "a forward-only stream cannot be cached"
		}
		if reason != "" {
			_ = stream.Close()
			return nil, &UnsupportedShapeError{View: sel.view, Shape: ResultStream, Reason: reason}
		}
		return &Result{Kind: ResultStream, Stream: stream}, nil

	default:
		items, kind, err := p.enumerable(sel, raw)
		if err != nil {
			return nil, err
		}
		if sel.cacheEnabled {
			p.store(sel, items)
		}
		return &Result{Kind: kind, Items: items}, nil
	}
}

func (p *Pipeline) enumerable(sel *selection, data any) ([]any, ResultKind, error) {
	args := sel.req.Args
	kind := ResultScalar
	items, ok := enumerate(data)
	if ok {
		kind = ResultEnumerable
	}
	if sel.filter != "" {
		return nil, kind, &UnsupportedShapeError{View: sel.view, Shape: kind, Reason: "filtering is not supported"}
	}
	if args.SortExpression != "" {
		return nil, kind, &UnsupportedShapeError{View: sel.view, Shape: kind, Reason: "sorting is not supported"}
	}
	if ok {
		if !args.Supported().Has(CapabilityPage) && args.RetrieveTotalRowCount && !sel.canCount {
			args.TotalRowCount = len(items)
		}
		return items, kind, nil
	}
	if args.RetrieveTotalRowCount && !sel.canCount {
		args.TotalRowCount = 1
	}
	return []any{data}, kind, nil
}

// store saves the total row count before the data because saving the count
// drops data entries under the same key.
func (p *Pipeline) store(sel *selection, data any) {
	args := sel.req.Args
	if args.RetrieveTotalRowCount {
		if p.cache.LoadTotalRowCount(sel.key) != args.TotalRowCount {
			p.cache.SaveTotalRowCount(sel.key, args.TotalRowCount)
		}
	}
	p.cache.SaveData(sel.key, args.StartRowIndex, args.MaximumRows, data)
}

func (p *Pipeline) filteredView(ctx context.Context, sel *selection, table *Table) (*TableView, bool, error) {
	params := map[string]any{}
	if f, ok := p.provider.(Filterer); ok {
		values, err := f.FilterValues(ctx)
		if err != nil {
			return nil, false, err
		}
		if values != nil {
			params = values
		}
	}
	if sel.filter != "" && p.Filtering != nil {
		event := &FilteringEvent{Params: params}
		p.Filtering(event)
		if event.Cancel {
			return nil, false, nil
		}
		params = event.Params
	}
	return &TableView{
		Table:     table,
		Sort:      sel.req.Args.SortExpression,
		Filter:    sel.filter,
		Params:    params,
		Evaluator: p.evaluator,
	}, true, nil
}

func (p *Pipeline) finish(ctx context.Context, sel *selection, result *Result, cached bool, err error) (*Result, error) {
	elapsed := p.now().Sub(sel.start)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case result == nil:
		outcome = "empty"
	case cached:
		outcome = "cached"
	}
	p.metrics.recordSelect(ctx, sel.view, outcome, elapsed)

	rows := 0
	if result != nil {
		result.TotalRowCount = sel.req.Args.TotalRowCount
		rows = len(result.Items)
	}
	p.logger.LogSelect(LogEvent{
		View:     sel.view,
		Stage:    "select",
		Args:     *sel.req.Args,
		Cached:   cached && result != nil,
		Rows:     rows,
		Duration: elapsed,
		Err:      err,
	})

	if err == nil && result != nil && p.Selected != nil {
		p.Selected(&SelectedEvent{Args: sel.req.Args, Result: result, Cached: cached, Duration: elapsed})
	}
	return result, err
}
