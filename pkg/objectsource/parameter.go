package objectsource

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	viewstate "github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/method"
)

// ValueSource supplies a parameter value at evaluation time. ok=false falls
// back to the parameter default.
type ValueSource interface {
	Value(ctx context.Context) (value any, ok bool, err error)
}

// SourceFunc adapts a function to ValueSource.
type SourceFunc func(ctx context.Context) (any, bool, error)

func (f SourceFunc) Value(ctx context.Context) (any, bool, error) {
	if f == nil {
		return nil, false, nil
	}
	return f(ctx)
}

// FromContext reads a parameter from ctx.Value(key).
func FromContext(key any) ValueSource {
	return SourceFunc(func(ctx context.Context) (any, bool, error) {
		value := ctx.Value(key)
		return value, value != nil, nil
	})
}

// Parameter declares one named value passed to an operation. Type, when set,
// is the conversion target for evaluated and merged values.
type Parameter struct {
	Name                     string
	Type                     reflect.Type
	DefaultValue             any
	ConvertEmptyStringToNull bool
	Source                   ValueSource
}

// Parameters is an ordered collection whose default values take part in the
// state round trip. Changed is raised whenever a default changes.
type Parameters struct {
	Changed func()

	params    []Parameter
	defaults  *viewstate.Bag
	converter method.Converter
}

// NewParameters returns a collection holding params in order.
func NewParameters(params ...Parameter) *Parameters {
	p := &Parameters{defaults: viewstate.NewBag(viewstate.WithName("parameters"))}
	for _, param := range params {
		p.Add(param)
	}
	return p
}

// Add appends param, replacing an existing parameter of the same name.
func (p *Parameters) Add(param Parameter) {
	if p.defaults == nil {
		p.defaults = viewstate.NewBag(viewstate.WithName("parameters"))
	}
	stored := param
	stored.DefaultValue = nil
	if i := p.index(param.Name); i >= 0 {
		p.params[i] = stored
	} else {
		p.params = append(p.params, stored)
	}
	p.defaults.Set(param.Name, param.DefaultValue)
}

// SetConverter overrides the converter used for typed parameters.
func (p *Parameters) SetConverter(converter method.Converter) {
	p.converter = converter
}

// Len reports the number of parameters.
func (p *Parameters) Len() int {
	if p == nil {
		return 0
	}
	return len(p.params)
}

// Names lists parameter names in order.
func (p *Parameters) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.params))
	for i, param := range p.params {
		names[i] = param.Name
	}
	return names
}

// Lookup finds a parameter by case-insensitive name. The returned copy carries
// the current default value.
func (p *Parameters) Lookup(name string) (Parameter, bool) {
	i := p.index(name)
	if i < 0 {
		return Parameter{}, false
	}
	param := p.params[i]
	param.DefaultValue, _ = p.defaults.Get(param.Name)
	return param, true
}

// Default returns the default value of name.
func (p *Parameters) Default(name string) (any, bool) {
	i := p.index(name)
	if i < 0 {
		return nil, false
	}
	return p.defaults.Get(p.params[i].Name)
}

// SetDefault changes the default value of an existing parameter.
func (p *Parameters) SetDefault(name string, value any) error {
	i := p.index(name)
	if i < 0 {
		return fmt.Errorf("objectsource: unknown parameter %q", name)
	}
	p.defaults.Set(p.params[i].Name, value)
	if p.Changed != nil {
		p.Changed()
	}
	return nil
}

// Values evaluates every parameter: the source value when it supplies one,
// otherwise the default, then converted to the declared type.
func (p *Parameters) Values(ctx context.Context) (*method.Values, error) {
	out := &method.Values{}
	if p == nil {
		return out, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, param := range p.params {
		value, ok := any(nil), false
		if param.Source != nil {
			var err error
			value, ok, err = param.Source.Value(ctx)
			if err != nil {
				return nil, fmt.Errorf("objectsource: evaluate %s: %w", param.Name, err)
			}
		}
		if !ok {
			value, _ = p.defaults.Get(param.Name)
		}
		converted, err := p.coerce(param, value)
		if err != nil {
			return nil, err
		}
		out.Set(param.Name, converted)
	}
	return out, nil
}

// Coerce converts value with the parameter of the same name when one exists.
// Unknown names pass through unchanged.
func (p *Parameters) Coerce(name string, value any) (any, error) {
	i := p.index(name)
	if i < 0 {
		return value, nil
	}
	return p.coerce(p.params[i], value)
}

func (p *Parameters) coerce(param Parameter, value any) (any, error) {
	if s, ok := value.(string); ok && s == "" && param.ConvertEmptyStringToNull {
		return nil, nil
	}
	if value == nil || param.Type == nil {
		return value, nil
	}
	converter := p.converter
	if converter == nil {
		converter = method.DefaultConverter{}
	}
	converted, err := converter.Convert(value, param.Type)
	if err != nil {
		return nil, &method.TypeConversionError{Param: param.Name, From: reflect.TypeOf(value), To: param.Type, Err: err}
	}
	return converted, nil
}

func (p *Parameters) index(name string) int {
	if p == nil {
		return -1
	}
	for i, param := range p.params {
		if strings.EqualFold(param.Name, name) {
			return i
		}
	}
	return -1
}

func (p *Parameters) TrackState() {
	p.defaults.TrackState()
}

func (p *Parameters) IsTrackingState() bool {
	return p.defaults.IsTrackingState()
}

// SaveState saves the defaults changed since tracking began.
func (p *Parameters) SaveState() (*viewstate.Snapshot, error) {
	return p.defaults.SaveState()
}

// LoadState restores defaults. Entries for unknown parameters are rejected.
func (p *Parameters) LoadState(snapshot *viewstate.Snapshot) error {
	if snapshot == nil {
		return nil
	}
	for _, entry := range snapshot.Entries {
		if p.index(entry.Key) < 0 {
			return &viewstate.StateCorruptionError{Op: "load", Store: "parameters", Slot: -1, Key: entry.Key, Reason: "unknown parameter"}
		}
	}
	return p.defaults.LoadState(snapshot)
}

// merge copies src into dst, converting values through reference and
// rewriting names with format when it is not empty.
func merge(reference *Parameters, src, dst *method.Values, format string) error {
	if src == nil {
		return nil
	}
	for _, name := range src.Keys() {
		value, _ := src.Get(name)
		if format != "" {
			name = method.FormatName(format, name)
		}
		converted, err := reference.Coerce(name, value)
		if err != nil {
			return err
		}
		dst.Set(name, converted)
	}
	return nil
}
