package method

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// DefaultOldValuesFormat leaves old-value names unchanged.
const DefaultOldValuesFormat = "{0}"

// Binding is a resolved overload with its converted arguments.
type Binding struct {
	TypeName   string
	Method     Method
	Kind       Kind
	Confidence Confidence
	Args       *Values

	op *operation
}

// Resolver chooses overloads and prepares their arguments.
type Resolver struct {
	registry            *Registry
	converter           Converter
	convertNullToDBNull bool
	oldValuesFormat     string

	cache sync.Map
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithConverter replaces DefaultConverter.
func WithConverter(c Converter) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.converter = c
		}
	}
}

// WithConvertNullToDBNull passes DBNull instead of nil for missing values.
func WithConvertNullToDBNull(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.convertNullToDBNull = enabled
	}
}

// WithOldValuesFormat sets the format identifying the old-values parameter of
// two-object operations.
func WithOldValuesFormat(format string) ResolverOption {
	return func(r *Resolver) {
		if format != "" {
			r.oldValuesFormat = format
		}
	}
}

// NewResolver returns a resolver over registry.
func NewResolver(registry *Registry, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry:        registry,
		converter:       DefaultConverter{},
		oldValuesFormat: DefaultOldValuesFormat,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Registry exposes the underlying registry.
func (r *Resolver) Registry() *Registry { return r.registry }

// OldValuesFormat returns the configured old-values format.
func (r *Resolver) OldValuesFormat() string { return r.oldValuesFormat }

// Converter returns the configured converter.
func (r *Resolver) Converter() Converter { return r.converter }

type resolution struct {
	op         *operation
	confidence Confidence
}

// ResolveNamed picks the overload of typeName.methodName whose parameter
// names are exactly the names in values, preferring overloads whose kind
// agrees with the request. Two candidates at the best confidence are
// ambiguous regardless of registration order.
func (r *Resolver) ResolveNamed(typeName, methodName string, kind Kind, values *Values) (*Binding, error) {
	res, err := r.selectNamed(typeName, methodName, kind, values)
	if err != nil {
		return nil, err
	}
	args, err := r.bindArgs(res.op, values)
	if err != nil {
		return nil, err
	}
	return &Binding{
		TypeName:   typeName,
		Method:     res.op.Method,
		Kind:       kind,
		Confidence: res.confidence,
		Args:       args,
		op:         res.op,
	}, nil
}

func (r *Resolver) selectNamed(typeName, methodName string, kind Kind, values *Values) (resolution, error) {
	// Keyed on the registry generation so later registrations are seen.
	key := strconv.FormatUint(r.registry.generation.Load(), 10) + "|" + strings.ToLower(typeName) + "|" + strings.ToLower(methodName) + "|" + kind.String() + "|" + values.nameSet()
	if cached, ok := r.cache.Load(key); ok {
		return cached.(resolution), nil
	}

	candidates, err := r.registry.candidates(typeName, methodName)
	if err != nil {
		return resolution{}, err
	}

	best := NoMatch
	conflict := false
	var chosen *operation
	for _, op := range candidates {
		if len(op.Params) != values.Len() {
			continue
		}
		if !namesMatch(op.Params, values) {
			continue
		}
		c := confidenceFor(op.Method, kind)
		if c == best {
			conflict = true
		} else if c > best {
			best = c
			conflict = false
			chosen = op
		}
	}

	if conflict {
		return resolution{}, &OverloadResolutionError{
			Reason:   ReasonAmbiguous,
			TypeName: typeName,
			Method:   methodName,
			Kind:     kind,
			Params:   values.Keys(),
		}
	}
	if chosen == nil {
		return resolution{}, &OverloadResolutionError{
			Reason:   ReasonNotFound,
			TypeName: typeName,
			Method:   methodName,
			Kind:     kind,
			Params:   values.Keys(),
		}
	}

	res := resolution{op: chosen, confidence: best}
	r.cache.Store(key, res)
	return res, nil
}

func namesMatch(params []Param, values *Values) bool {
	for _, p := range params {
		if !values.Has(p.Name) {
			return false
		}
	}
	return true
}

func (r *Resolver) bindArgs(op *operation, values *Values) (*Values, error) {
	args := &Values{}
	for _, p := range op.Params {
		raw, _ := values.Get(p.Name)
		value, err := r.convertParam(p, raw)
		if err != nil {
			return nil, err
		}
		args.Set(p.Name, value)
	}
	return args, nil
}

func (r *Resolver) convertParam(p Param, raw any) (any, error) {
	if raw == nil && r.convertNullToDBNull {
		if reflect.TypeOf(DBNull).AssignableTo(p.Type) {
			return DBNull, nil
		}
	}
	if raw == nil && p.Out {
		return nil, nil
	}
	value, err := r.converter.Convert(raw, p.Type)
	if err != nil {
		return nil, &TypeConversionError{Param: p.Name, From: reflect.TypeOf(raw), To: p.Type, Err: err}
	}
	return value, nil
}

// ResolveAggregate picks the first overload of typeName.methodName that takes
// one (or, when both objects are supplied, two) parameters of exactly the
// aggregate type. With two objects, the parameter whose name is the
// old-values format applied to the other parameter's name receives oldObj.
func (r *Resolver) ResolveAggregate(typeName, methodName string, kind Kind, aggregate reflect.Type, newObj, oldObj any) (*Binding, error) {
	candidates, err := r.registry.candidates(typeName, methodName)
	if err != nil {
		return nil, err
	}
	required := 2
	if newObj == nil || oldObj == nil {
		required = 1
	}

	var chosen *operation
	for _, op := range candidates {
		if len(op.Params) != required {
			continue
		}
		match := true
		for _, p := range op.Params {
			if p.Out || p.Type != aggregate {
				match = false
				break
			}
		}
		if match {
			chosen = op
			break
		}
	}
	if chosen == nil {
		return nil, &OverloadResolutionError{
			Reason:    ReasonNotFound,
			TypeName:  typeName,
			Method:    methodName,
			Kind:      kind,
			Aggregate: aggregate.String(),
		}
	}

	args := &Values{}
	switch {
	case required == 1 && newObj != nil:
		args.Set(chosen.Params[0].Name, newObj)
	case required == 1:
		args.Set(chosen.Params[0].Name, oldObj)
	default:
		first, second := chosen.Params[0].Name, chosen.Params[1].Name
		switch {
		case strings.EqualFold(FormatName(r.oldValuesFormat, first), second):
			args.Set(first, newObj)
			args.Set(second, oldObj)
		case strings.EqualFold(FormatName(r.oldValuesFormat, second), first):
			args.Set(first, oldObj)
			args.Set(second, newObj)
		default:
			return nil, ErrNoOldValuesParameter
		}
	}

	return &Binding{
		TypeName:   typeName,
		Method:     chosen.Method,
		Kind:       kind,
		Confidence: confidenceFor(chosen.Method, kind),
		Args:       args,
		op:         chosen,
	}, nil
}
