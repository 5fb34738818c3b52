package objectsource

import (
	"context"
	"reflect"
	"sync"

	viewstate "github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/activity"
	"github.com/goliatone/go-viewstate/pkg/datasource"
	"github.com/goliatone/go-viewstate/pkg/method"
)

const (
	DefaultStartRowIndexParameterName = "startRowIndex"
	DefaultMaximumRowsParameterName   = "maximumRows"
)

// ConflictOptions selects how updates and deletes detect concurrent changes.
type ConflictOptions int

const (
	// OverwriteChanges passes only keys and new values.
	OverwriteChanges ConflictOptions = iota
	// CompareAllValues also passes the old values, which are then required.
	CompareAllValues
)

func (c ConflictOptions) String() string {
	if c == CompareAllValues {
		return "CompareAllValues"
	}
	return "OverwriteChanges"
}

// MethodEvent is raised before an insert, update or delete. Handlers may edit
// Params or set Cancel, which skips the call and reports zero affected rows.
type MethodEvent struct {
	Params *method.Values
	Cancel bool
}

// ObjectView is a data source over the operations of one registered type.
// Configure the fields before the first select; an ObjectView serves one
// request at a time.
type ObjectView struct {
	ViewName string
	Registry *method.Registry
	TypeName string

	SelectMethod      string
	SelectCountMethod string
	InsertMethod      string
	UpdateMethod      string
	DeleteMethod      string

	EnablePaging               bool
	StartRowIndexParameterName string
	MaximumRowsParameterName   string
	SortParameterName          string
	FilterExpression           string

	// DataObjectTypeName names an aggregate registered with
	// Registry.RegisterAggregate. When set, modifications pass built objects.
	DataObjectTypeName       string
	ConflictDetection        ConflictOptions
	OldValuesParameterFormat string
	ConvertNullToDBNull      bool
	// Converter replaces method.DefaultConverter. Set it before the first
	// operation.
	Converter method.Converter

	SelectParameters *Parameters
	FilterParameters *Parameters
	InsertParameters *Parameters
	UpdateParameters *Parameters
	DeleteParameters *Parameters

	Selecting       func(*datasource.SelectingEvent)
	Filtering       func(*datasource.FilteringEvent)
	Selected        func(*method.StatusEvent)
	Inserting       func(*MethodEvent)
	Inserted        func(*method.StatusEvent)
	Updating        func(*MethodEvent)
	Updated         func(*method.StatusEvent)
	Deleting        func(*MethodEvent)
	Deleted         func(*method.StatusEvent)
	ObjectCreating  func(*method.ObjectEvent)
	ObjectCreated   func(*method.ObjectEvent)
	ObjectDisposing func(*method.DisposingEvent)
	// Changed is raised after a modification and when a select parameter
	// default changes.
	Changed func()

	Activity *activity.Emitter
	Cache    datasource.Cache

	mu          sync.Mutex
	resolver    *method.Resolver
	resolverKey resolverSettings
	pipeline    *datasource.Pipeline
	state       *viewstate.Composite
}

type resolverSettings struct {
	format string
	dbNull bool
}

// NewObjectView returns a view over typeName with default paging parameter
// names and empty parameter collections.
func NewObjectView(registry *method.Registry, typeName string) *ObjectView {
	v := &ObjectView{
		Registry:                   registry,
		TypeName:                   typeName,
		StartRowIndexParameterName: DefaultStartRowIndexParameterName,
		MaximumRowsParameterName:   DefaultMaximumRowsParameterName,
		OldValuesParameterFormat:   method.DefaultOldValuesFormat,
		SelectParameters:           NewParameters(),
		FilterParameters:           NewParameters(),
		InsertParameters:           NewParameters(),
		UpdateParameters:           NewParameters(),
		DeleteParameters:           NewParameters(),
	}
	v.SelectParameters.Changed = v.raiseChanged
	return v
}

// Name implements datasource.Provider.
func (v *ObjectView) Name() string {
	if v.ViewName != "" {
		return v.ViewName
	}
	return v.TypeName
}

// CacheKey scopes cached results to the type and select method.
func (v *ObjectView) CacheKey() string {
	return v.Name() + "|" + v.TypeName + "." + v.SelectMethod
}

func (v *ObjectView) CanSort() bool { return true }

func (v *ObjectView) CanPage() bool { return v.EnablePaging }

func (v *ObjectView) CanRetrieveTotalRowCount() bool {
	return v.SelectCountMethod != "" || !v.EnablePaging
}

func (v *ObjectView) CanInsert() bool { return v.InsertMethod != "" }

func (v *ObjectView) CanUpdate() bool { return v.UpdateMethod != "" }

func (v *ObjectView) CanDelete() bool { return v.DeleteMethod != "" }

// Capabilities implements datasource.Provider.
func (v *ObjectView) Capabilities() datasource.CapabilitySet {
	set := datasource.Capabilities(datasource.CapabilitySort)
	if v.CanPage() {
		set = set.With(datasource.CapabilityPage)
	}
	if v.CanRetrieveTotalRowCount() {
		set = set.With(datasource.CapabilityRetrieveTotalRowCount)
	}
	return set
}

// CanCount implements datasource.Counter.
func (v *ObjectView) CanCount() bool { return v.SelectCountMethod != "" }

// Filter implements datasource.Filterer.
func (v *ObjectView) Filter() string { return v.FilterExpression }

// FilterValues implements datasource.Filterer.
func (v *ObjectView) FilterValues(ctx context.Context) (map[string]any, error) {
	values, err := v.FilterParameters.Values(ctx)
	if err != nil {
		return nil, err
	}
	return values.Map(), nil
}

// SelectValues implements datasource.Parameterizer.
func (v *ObjectView) SelectValues(ctx context.Context) (*method.Values, error) {
	return v.SelectParameters.Values(ctx)
}

// Fetch resolves and calls SelectMethod. The instance stays alive in
// req.Handle so Count runs on it; Finish releases it.
func (v *ObjectView) Fetch(ctx context.Context, req *datasource.Request) (any, error) {
	if v.SelectMethod == "" {
		return nil, &datasource.ConfigurationError{View: v.Name(), Op: "select", Reason: "SelectMethod is not set"}
	}
	args := req.Args
	params := req.Params.Clone()

	if v.SortParameterName != "" {
		params.Set(v.SortParameterName, args.SortExpression)
		args.SortExpression = ""
	}
	if v.EnablePaging {
		if v.StartRowIndexParameterName == "" || v.MaximumRowsParameterName == "" {
			return nil, &datasource.ConfigurationError{View: v.Name(), Op: "select", Reason: "paging requires StartRowIndexParameterName and MaximumRowsParameterName"}
		}
		paging := method.NewValues(
			v.MaximumRowsParameterName, args.MaximumRows,
			v.StartRowIndexParameterName, args.StartRowIndex,
		)
		if err := merge(v.SelectParameters, paging, params, ""); err != nil {
			return nil, err
		}
	}

	binding, err := v.resolve().ResolveNamed(v.TypeName, v.SelectMethod, method.KindSelect, params)
	if err != nil {
		return nil, err
	}
	session := v.invoker().Session()
	req.Handle = session
	result, err := session.Invoke(ctx, binding)
	if err != nil {
		return nil, err
	}
	return result.ReturnValue, nil
}

// Count resolves SelectCountMethod with the select parameters as they were
// before sort and paging values were added.
func (v *ObjectView) Count(ctx context.Context, req *datasource.Request) (int, error) {
	if v.SelectCountMethod == "" {
		return -1, nil
	}
	binding, err := v.resolve().ResolveNamed(v.TypeName, v.SelectCountMethod, method.KindSelectCount, req.Params)
	if err != nil {
		return -1, err
	}
	session, ok := req.Handle.(*method.Session)
	if !ok {
		session = v.invoker().Session()
		defer session.Close()
	}
	result, err := session.Invoke(ctx, binding)
	if err != nil {
		return -1, err
	}
	if result.ReturnValue == nil {
		return -1, nil
	}
	n, err := v.converter().Convert(result.ReturnValue, reflect.TypeOf(0))
	if err != nil {
		return -1, &method.TypeConversionError{Param: "return", From: reflect.TypeOf(result.ReturnValue), To: reflect.TypeOf(0), Err: err}
	}
	return n.(int), nil
}

// Finish implements datasource.Finisher.
func (v *ObjectView) Finish(_ context.Context, req *datasource.Request) {
	if session, ok := req.Handle.(*method.Session); ok {
		session.Close()
		req.Handle = nil
	}
}

// Pipeline returns the pipeline that runs selects for this view, creating it
// on first use. Later calls ignore opts.
func (v *ObjectView) Pipeline(opts ...datasource.Option) (*datasource.Pipeline, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pipeline != nil {
		return v.pipeline, nil
	}
	if v.Cache != nil {
		opts = append([]datasource.Option{datasource.WithCache(v.Cache)}, opts...)
	}
	p, err := datasource.NewPipeline(v, opts...)
	if err != nil {
		return nil, err
	}
	p.Selecting = v.Selecting
	p.Filtering = v.Filtering
	if v.Cache == nil {
		v.Cache = p.Cache()
	}
	v.pipeline = p
	return p, nil
}

// Select runs args through the view's pipeline.
func (v *ObjectView) Select(ctx context.Context, args *datasource.SelectArguments) (*datasource.Result, error) {
	p, err := v.Pipeline()
	if err != nil {
		return nil, err
	}
	return p.Select(ctx, args)
}

func (v *ObjectView) resolve() *method.Resolver {
	v.mu.Lock()
	defer v.mu.Unlock()
	settings := resolverSettings{
		format: v.OldValuesParameterFormat,
		dbNull: v.ConvertNullToDBNull,
	}
	if v.resolver != nil && v.resolverKey == settings {
		return v.resolver
	}
	v.resolver = method.NewResolver(v.Registry,
		method.WithOldValuesFormat(settings.format),
		method.WithConvertNullToDBNull(settings.dbNull),
		method.WithConverter(v.Converter),
	)
	v.resolverKey = settings
	return v.resolver
}

func (v *ObjectView) converter() method.Converter {
	if v.Converter != nil {
		return v.Converter
	}
	return method.DefaultConverter{}
}

func (v *ObjectView) invoker() *method.Invoker {
	return method.NewInvoker(v.Registry, method.Hooks{
		ObjectCreating:  v.ObjectCreating,
		ObjectCreated:   v.ObjectCreated,
		ObjectDisposing: v.ObjectDisposing,
		Completed:       v.completed,
	})
}

func (v *ObjectView) completed(event *method.StatusEvent) {
	var hook func(*method.StatusEvent)
	switch event.Binding.Kind {
	case method.KindSelect, method.KindSelectCount:
		hook = v.Selected
	case method.KindInsert:
		hook = v.Inserted
	case method.KindUpdate:
		hook = v.Updated
	case method.KindDelete:
		hook = v.Deleted
	}
	if hook != nil {
		hook(event)
	}
}

func (v *ObjectView) raiseChanged() {
	if v.Changed != nil {
		v.Changed()
	}
}
