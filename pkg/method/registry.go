package method

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Registry holds the operation table built at startup. It is safe for
// concurrent use; registration normally finishes before resolution begins.
type Registry struct {
	mu         sync.RWMutex
	types      map[string]*typeEntry
	aggregates map[string]reflect.Type
	generation atomic.Uint64
}

type typeEntry struct {
	spec       TypeSpec
	operations []*operation
}

type operation struct {
	Method
	fn           reflect.Value
	receiver     reflect.Type
	wantsContext bool
	returnsValue bool
	returnsError bool
}

func (op *operation) offset() int {
	n := 0
	if op.receiver != nil {
		n++
	}
	if op.wantsContext {
		n++
	}
	return n
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:      map[string]*typeEntry{},
		aggregates: map[string]reflect.Type{},
	}
}

// RegisterType declares a type that owns operations.
func (r *Registry) RegisterType(spec TypeSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("method: type name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(spec.Name)
	if _, exists := r.types[key]; exists {
		return fmt.Errorf("method: type %q already registered", spec.Name)
	}
	r.types[key] = &typeEntry{spec: spec}
	r.generation.Add(1)
	return nil
}

// RegisterAggregate names a data object type used by aggregate resolution.
func (r *Registry) RegisterAggregate(name string, typ reflect.Type) error {
	if name == "" || typ == nil {
		return fmt.Errorf("method: aggregate name and type are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregates[strings.ToLower(name)] = typ
	r.generation.Add(1)
	return nil
}

// Aggregate looks up a registered data object type.
func (r *Registry) Aggregate(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typ, ok := r.aggregates[strings.ToLower(name)]
	return typ, ok
}

// Type returns the spec registered under name.
func (r *Registry) Type(name string) (TypeSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.types[strings.ToLower(name)]
	if !ok {
		return TypeSpec{}, false
	}
	return entry.spec, true
}

// Register adds an operation overload to typeName after validating that the
// function signature agrees with the declared parameters.
func (r *Registry) Register(typeName string, m Method) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.types[strings.ToLower(typeName)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTypeNotRegistered, typeName)
	}
	op, err := buildOperation(entry.spec, m)
	if err != nil {
		return fmt.Errorf("method: register %s.%s: %w", typeName, m.Name, err)
	}
	entry.operations = append(entry.operations, op)
	r.generation.Add(1)
	return nil
}

// MustRegister is Register for static tables.
func (r *Registry) MustRegister(typeName string, m Method) {
	if err := r.Register(typeName, m); err != nil {
		panic(err)
	}
}

// Methods lists the overloads registered under name for typeName.
func (r *Registry) Methods(typeName, name string) []Method {
	ops, _ := r.candidates(typeName, name)
	out := make([]Method, len(ops))
	for i, op := range ops {
		out[i] = op.Method
	}
	return out
}

func (r *Registry) candidates(typeName, name string) ([]*operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.types[strings.ToLower(typeName)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotRegistered, typeName)
	}
	var out []*operation
	for _, op := range entry.operations {
		if strings.EqualFold(op.Name, name) {
			out = append(out, op)
		}
	}
	return out, nil
}

func buildOperation(spec TypeSpec, m Method) (*operation, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("operation name must not be empty")
	}
	fn := reflect.ValueOf(m.Func)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("Func must be a non-nil function, got %T", m.Func)
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("variadic functions are not supported")
	}

	op := &operation{fn: fn}
	extra := ft.NumIn() - len(m.Params)
	switch extra {
	case 0:
	case 1:
		if ft.In(0) == contextType {
			op.wantsContext = true
		} else {
			op.receiver = ft.In(0)
		}
	case 2:
		if ft.In(1) != contextType {
			return nil, fmt.Errorf("second argument must be context.Context, got %s", ft.In(1))
		}
		op.receiver = ft.In(0)
		op.wantsContext = true
	default:
		return nil, fmt.Errorf("function takes %d arguments but %d parameters are declared", ft.NumIn(), len(m.Params))
	}
	if op.receiver != nil {
		if spec.Factory == nil {
			return nil, fmt.Errorf("instance operation requires a factory on type %q", spec.Name)
		}
		if spec.Type != nil && op.receiver != spec.Type {
			return nil, fmt.Errorf("receiver %s does not match type %s", op.receiver, spec.Type)
		}
	}

	params := make([]Param, len(m.Params))
	seen := map[string]struct{}{}
	offset := op.offset()
	for i, p := range m.Params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter %d has no name", i)
		}
		lower := strings.ToLower(p.Name)
		if _, dup := seen[lower]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[lower] = struct{}{}

		in := ft.In(offset + i)
		if p.Out {
			if in.Kind() != reflect.Pointer {
				return nil, fmt.Errorf("out parameter %q must be a pointer, got %s", p.Name, in)
			}
			if p.Type == nil {
				p.Type = in.Elem()
			} else if in.Elem() != p.Type {
				return nil, fmt.Errorf("out parameter %q declared %s, function takes %s", p.Name, p.Type, in)
			}
		} else {
			if p.Type == nil {
				p.Type = in
			} else if in != p.Type {
				return nil, fmt.Errorf("parameter %q declared %s, function takes %s", p.Name, p.Type, in)
			}
		}
		params[i] = p
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			op.returnsError = true
		} else {
			op.returnsValue = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("second result must be error, got %s", ft.Out(1))
		}
		op.returnsValue = true
		op.returnsError = true
	default:
		return nil, fmt.Errorf("functions may return at most a value and an error")
	}

	m.Params = params
	op.Method = m
	return op, nil
}

// Ambiguity describes overloads that cannot be told apart for some request
// kinds because they accept the same parameter names at the same confidence.
type Ambiguity struct {
	TypeName   string
	Method     string
	Kinds      []Kind
	Confidence Confidence
	Overloads  []string
}

func (a Ambiguity) String() string {
	kinds := make([]string, len(a.Kinds))
	for i, k := range a.Kinds {
		kinds[i] = k.String()
	}
	return fmt.Sprintf("%s.%s ambiguous for %s at %s: %s", a.TypeName, a.Method, strings.Join(kinds, ","), a.Confidence, strings.Join(a.Overloads, " | "))
}

// Check reports every group of overloads that would fail resolution as
// ambiguous. An empty result means every name-set resolves deterministically.
func (r *Registry) Check() []Ambiguity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeKeys := make([]string, 0, len(r.types))
	for key := range r.types {
		typeKeys = append(typeKeys, key)
	}
	sort.Strings(typeKeys)

	requests := []Kind{KindSelect, KindInsert, KindUpdate, KindDelete, KindSelectCount}
	var out []Ambiguity
	for _, key := range typeKeys {
		entry := r.types[key]
		groups := map[string][]*operation{}
		var groupKeys []string
		for _, op := range entry.operations {
			names := make([]string, len(op.Params))
			for i, p := range op.Params {
				names[i] = strings.ToLower(p.Name)
			}
			sort.Strings(names)
			groupKey := strings.ToLower(op.Name) + "(" + strings.Join(names, ",") + ")"
			if _, ok := groups[groupKey]; !ok {
				groupKeys = append(groupKeys, groupKey)
			}
			groups[groupKey] = append(groups[groupKey], op)
		}
		sort.Strings(groupKeys)

		for _, groupKey := range groupKeys {
			ops := groups[groupKey]
			if len(ops) < 2 {
				continue
			}
			byConfidence := map[Confidence]*Ambiguity{}
			var order []Confidence
			for _, kind := range requests {
				best := NoMatch
				tied := 0
				for _, op := range ops {
					c := confidenceFor(op.Method, kind)
					switch {
					case c > best:
						best, tied = c, 1
					case c == best:
						tied++
					}
				}
				if tied < 2 {
					continue
				}
				amb, ok := byConfidence[best]
				if !ok {
					amb = &Ambiguity{TypeName: entry.spec.Name, Method: ops[0].Name, Confidence: best}
					for _, op := range ops {
						if confidenceFor(op.Method, kind) == best {
							amb.Overloads = append(amb.Overloads, op.Method.String())
						}
					}
					byConfidence[best] = amb
					order = append(order, best)
				}
				amb.Kinds = append(amb.Kinds, kind)
			}
			for _, c := range order {
				out = append(out, *byConfidence[c])
			}
		}
	}
	return out
}
