package method

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNotFound matches OverloadResolutionError values with ReasonNotFound.
	ErrNotFound = errors.New("method: overload not found")
	// ErrAmbiguous matches OverloadResolutionError values with ReasonAmbiguous.
	ErrAmbiguous = errors.New("method: ambiguous overload")
	// ErrNoOldValuesParameter is returned when neither parameter of a
	// two-object operation matches the old-values format.
	ErrNoOldValuesParameter = errors.New("method: no parameter matches the old values format")
	// ErrTypeNotRegistered is returned for unknown type names.
	ErrTypeNotRegistered = errors.New("method: type not registered")
)

// Reason classifies an OverloadResolutionError.
type Reason int

const (
	ReasonNotFound Reason = iota
	ReasonAmbiguous
)

// OverloadResolutionError reports that no single overload could be chosen.
type OverloadResolutionError struct {
	Reason    Reason
	TypeName  string
	Method    string
	Kind      Kind
	Params    []string
	Aggregate string
}

func (e *OverloadResolutionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	target := e.TypeName + "." + e.Method
	if e.Reason == ReasonAmbiguous {
		return fmt.Sprintf("method: %s: more than one overload matches the parameters at the same confidence", target)
	}
	switch {
	case e.Aggregate != "":
		return fmt.Sprintf("method: %s: no overload takes data object type %s", target, e.Aggregate)
	case len(e.Params) == 0:
		return fmt.Sprintf("method: %s: no overload found with no parameters", target)
	default:
		return fmt.Sprintf("method: %s: no overload found with parameters: %s", target, strings.Join(e.Params, ", "))
	}
}

// Is matches ErrNotFound or ErrAmbiguous depending on Reason.
func (e *OverloadResolutionError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Reason == ReasonNotFound
	case ErrAmbiguous:
		return e.Reason == ReasonAmbiguous
	}
	return false
}

// TypeConversionError reports a parameter value that cannot be converted to
// the declared parameter type.
type TypeConversionError struct {
	Param string
	From  reflect.Type
	To    reflect.Type
	Err   error
}

func (e *TypeConversionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	from := "<nil>"
	if e.From != nil {
		from = e.From.String()
	}
	msg := fmt.Sprintf("method: cannot convert parameter %q from %s to %s", e.Param, from, e.To)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeConversionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InvocationError wraps an error returned (or panicked) by an operation that
// the status hook did not mark as handled.
type InvocationError struct {
	TypeName string
	Method   string
	Kind     Kind
	Err      error
}

func (e *InvocationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("method: invoke %s.%s (%s): %v", e.TypeName, e.Method, e.Kind, e.Err)
}

func (e *InvocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
