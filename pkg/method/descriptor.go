package method

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind tags an operation with the data operation it implements.
type Kind int

const (
	KindNone Kind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	// KindSelectCount is only a resolution request kind. Count resolution
	// ignores operation tags.
	KindSelectCount
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindSelectCount:
		return "selectcount"
	default:
		return "none"
	}
}

// Confidence ranks how well a candidate matches a resolution request.
type Confidence int

const (
	NoMatch        Confidence = -1
	NameOnly       Confidence = 0
	TypedPreferred Confidence = 1
	TypedDefault   Confidence = 2
)

func (c Confidence) String() string {
	switch c {
	case NameOnly:
		return "name-only"
	case TypedPreferred:
		return "typed"
	case TypedDefault:
		return "typed-default"
	default:
		return "no-match"
	}
}

// Param declares one parameter of an operation. Out parameters are received
// by the function as *Type and reported back after the call.
type Param struct {
	Name string
	Type reflect.Type
	Out  bool
}

// In declares an input parameter of type T.
func In[T any](name string) Param {
	return Param{Name: name, Type: TypeOf[T]()}
}

// Out declares an output parameter of type T.
func Out[T any](name string) Param {
	return Param{Name: name, Type: TypeOf[T](), Out: true}
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Method describes one callable operation overload.
type Method struct {
	Name    string
	Kind    Kind
	Default bool
	Params  []Param
	Func    any
}

// ParamNames returns the declared parameter names in order.
func (m Method) ParamNames() []string {
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		names[i] = p.Name
	}
	return names
}

func (m Method) String() string {
	return fmt.Sprintf("%s(%s)", m.Name, strings.Join(m.ParamNames(), ", "))
}

// TypeSpec registers a type that owns operations. Factory is required when
// any of its operations is an instance method. Type, when set, is checked
// against the receiver argument of instance methods.
type TypeSpec struct {
	Name    string
	Type    reflect.Type
	Factory func() (any, error)
}

// confidenceFor scores m against a request kind.
func confidenceFor(m Method, requested Kind) Confidence {
	if requested == KindSelectCount || requested == KindNone {
		return NameOnly
	}
	if m.Kind != requested {
		return NameOnly
	}
	if m.Default {
		return TypedDefault
	}
	return TypedPreferred
}
