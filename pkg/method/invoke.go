package method

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/sourcegraph/conc/panics"
)

// ObjectEvent is raised around instance creation. An ObjectCreating hook may
// supply Instance to bypass the type's factory.
type ObjectEvent struct {
	TypeName string
	Instance any
}

// DisposingEvent is raised before an instance is released. Setting Cancel
// skips io.Closer.
type DisposingEvent struct {
	TypeName string
	Instance any
	Cancel   bool
}

// StatusEvent is raised after every invocation, successful or not. A hook may
// set AffectedRows and mark Err as handled.
type StatusEvent struct {
	Binding          *Binding
	ReturnValue      any
	Outputs          map[string]any
	AffectedRows     int
	Err              error
	ExceptionHandled bool
}

// Hooks are the lifecycle callbacks of an Invoker. All are optional.
type Hooks struct {
	ObjectCreating  func(*ObjectEvent)
	ObjectCreated   func(*ObjectEvent)
	ObjectDisposing func(*DisposingEvent)
	Completed       func(*StatusEvent)
}

// Result is what an invocation produced.
type Result struct {
	ReturnValue  any
	Outputs      map[string]any
	AffectedRows int
}

// Invoker calls resolved bindings.
type Invoker struct {
	registry *Registry
	hooks    Hooks
}

// NewInvoker returns an invoker over registry.
func NewInvoker(registry *Registry, hooks Hooks) *Invoker {
	return &Invoker{registry: registry, hooks: hooks}
}

// Invoke runs b in a fresh session that is closed afterwards.
func (inv *Invoker) Invoke(ctx context.Context, b *Binding) (*Result, error) {
	s := inv.Session()
	defer s.Close()
	return s.Invoke(ctx, b)
}

// Session keeps one instance alive across several invocations, such as a
// select followed by its count.
func (inv *Invoker) Session() *Session {
	return &Session{inv: inv}
}

// Session is created by Invoker.Session. It is not safe for concurrent use.
type Session struct {
	inv      *Invoker
	instance any
	typeName string
}

// Invoke calls b, creating an instance first for instance operations.
// Output parameters are collected whether or not the call failed.
func (s *Session) Invoke(ctx context.Context, b *Binding) (*Result, error) {
	if b == nil || b.op == nil {
		return nil, fmt.Errorf("method: invoke called with an unresolved binding")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	op := b.op

	var instance any
	if op.receiver != nil {
		var err error
		instance, err = s.acquire(b.TypeName)
		if err != nil {
			return nil, &InvocationError{TypeName: b.TypeName, Method: op.Name, Kind: b.Kind, Err: err}
		}
	} else {
		s.Close()
	}

	args := make([]reflect.Value, 0, op.fn.Type().NumIn())
	if op.receiver != nil {
		recv := reflect.ValueOf(instance)
		if !recv.IsValid() || !recv.Type().AssignableTo(op.receiver) {
			return nil, &InvocationError{
				TypeName: b.TypeName, Method: op.Name, Kind: b.Kind,
				Err: fmt.Errorf("instance %T is not a %s", instance, op.receiver),
			}
		}
		args = append(args, recv)
	}
	if op.wantsContext {
		args = append(args, reflect.ValueOf(ctx))
	}

	outs := make(map[string]reflect.Value)
	for _, p := range op.Params {
		value, _ := b.Args.Get(p.Name)
		if p.Out {
			ptr := reflect.New(p.Type)
			if value != nil {
				rv := reflect.ValueOf(value)
				if rv.Type().AssignableTo(p.Type) {
					ptr.Elem().Set(rv)
				}
			}
			outs[p.Name] = ptr
			args = append(args, ptr)
			continue
		}
		if value == nil {
			args = append(args, reflect.Zero(p.Type))
			continue
		}
		args = append(args, reflect.ValueOf(value))
	}

	var results []reflect.Value
	var pc panics.Catcher
	pc.Try(func() {
		results = op.fn.Call(args)
	})

	var callErr error
	var returnValue any
	if recovered := pc.Recovered(); recovered != nil {
		callErr = recovered.AsError()
	} else {
		if op.returnsValue {
			returnValue = results[0].Interface()
		}
		if op.returnsError {
			if errValue := results[len(results)-1]; !errValue.IsNil() {
				callErr = errValue.Interface().(error)
			}
		}
	}

	var outputs map[string]any
	if len(outs) > 0 {
		outputs = make(map[string]any, len(outs))
		for _, p := range op.Params {
			if ptr, ok := outs[p.Name]; ok {
				outputs[p.Name] = ptr.Elem().Interface()
			}
		}
	}

	status := &StatusEvent{
		Binding:      b,
		ReturnValue:  returnValue,
		Outputs:      outputs,
		AffectedRows: -1,
		Err:          callErr,
	}
	if hook := s.inv.hooks.Completed; hook != nil {
		hook(status)
	}

	result := &Result{ReturnValue: returnValue, Outputs: outputs, AffectedRows: status.AffectedRows}
	if callErr != nil && !status.ExceptionHandled {
		return result, &InvocationError{TypeName: b.TypeName, Method: op.Name, Kind: b.Kind, Err: callErr}
	}
	return result, nil
}

func (s *Session) acquire(typeName string) (any, error) {
	if s.instance != nil && strings.EqualFold(s.typeName, typeName) {
		return s.instance, nil
	}
	s.Close()

	spec, ok := s.inv.registry.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotRegistered, typeName)
	}
	event := &ObjectEvent{TypeName: spec.Name}
	if hook := s.inv.hooks.ObjectCreating; hook != nil {
		hook(event)
	}
	if event.Instance == nil {
		if spec.Factory == nil {
			return nil, fmt.Errorf("type %q has no factory", spec.Name)
		}
		created, err := spec.Factory()
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", spec.Name, err)
		}
		if created == nil {
			return nil, fmt.Errorf("create %s: factory returned nil", spec.Name)
		}
		event.Instance = created
		if hook := s.inv.hooks.ObjectCreated; hook != nil {
			hook(event)
		}
	}
	s.instance = event.Instance
	s.typeName = spec.Name
	return s.instance, nil
}

// Close releases the session instance, raising ObjectDisposing first.
func (s *Session) Close() {
	if s.instance == nil {
		return
	}
	instance := s.instance
	s.instance = nil
	event := &DisposingEvent{TypeName: s.typeName, Instance: instance}
	if hook := s.inv.hooks.ObjectDisposing; hook != nil {
		hook(event)
	}
	if event.Cancel {
		return
	}
	if closer, ok := instance.(io.Closer); ok {
		_ = closer.Close()
	}
}
