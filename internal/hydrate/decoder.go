// Package hydrate builds typed data objects from loose name/value payloads.
package hydrate

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	json "github.com/goccy/go-json"
)

// Context identifies the object being hydrated in errors and hooks.
type Context struct {
	Type      string
	Operation string
}

// PreHook may rewrite the payload before it is decoded.
type PreHook func(ctx Context, payload map[string]any) (map[string]any, error)

// Option customises decoding.
type Option func(*settings)

type settings struct {
	preHooks     []PreHook
	strict       bool
	useNumber    bool
	skipValidate bool
}

// WithPreHook registers hook to run before decoding.
func WithPreHook(hook PreHook) Option {
	return func(s *settings) {
		if hook != nil {
			s.preHooks = append(s.preHooks, hook)
		}
	}
}

// WithStrict rejects payload keys that do not name a field.
func WithStrict() Option {
	return func(s *settings) { s.strict = true }
}

// WithNumber keeps numbers for interface{} fields as json.Number.
func WithNumber() Option {
	return func(s *settings) { s.useNumber = true }
}

// WithoutValidation skips the Validate hook on the decoded value.
func WithoutValidation() Option {
	return func(s *settings) { s.skipValidate = true }
}

// Validator is implemented by data objects that check themselves after
// hydration.
type Validator interface {
	Validate() error
}

// Error reports a failed hydration.
type Error struct {
	Context Context
	Stage   string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	target := e.Context.Type
	if e.Context.Operation != "" {
		target += " (" + e.Context.Operation + ")"
	}
	return fmt.Sprintf("hydrate %s: %s: %v", target, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Decode hydrates a T from payload.
func Decode[T any](ctx Context, payload map[string]any, opts ...Option) (T, error) {
	var out T
	typ := reflect.TypeOf((*T)(nil)).Elem()
	value, err := DecodeType(ctx, payload, typ, opts...)
	if err != nil {
		return out, err
	}
	return value.(T), nil
}

// DecodeType hydrates a new value of typ from payload. typ may be a struct or
// a pointer to a struct; the result has exactly that type.
func DecodeType(ctx Context, payload map[string]any, typ reflect.Type, opts ...Option) (any, error) {
	if typ == nil {
		return nil, &Error{Context: ctx, Stage: "type", Err: errors.New("type is nil")}
	}
	cfg := settings{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if ctx.Type == "" {
		ctx.Type = typ.String()
	}

	working := payload
	for _, hook := range cfg.preHooks {
		next, err := hook(ctx, working)
		if err != nil {
			return nil, &Error{Context: ctx, Stage: "pre-hook", Err: err}
		}
		if next != nil {
			working = next
		}
	}

	structType := typ
	if typ.Kind() == reflect.Pointer {
		structType = typ.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, &Error{Context: ctx, Stage: "type", Err: fmt.Errorf("%s is not a struct", typ)}
	}

	normalized, err := normalizeKeys(structType, working, cfg.strict)
	if err != nil {
		return nil, &Error{Context: ctx, Stage: "fields", Err: err}
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, &Error{Context: ctx, Stage: "encode", Err: err}
	}
	target := reflect.New(structType)
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if cfg.useNumber {
		decoder.UseNumber()
	}
	if err := decoder.Decode(target.Interface()); err != nil {
		return nil, &Error{Context: ctx, Stage: "decode", Err: err}
	}

	if !cfg.skipValidate {
		if v, ok := target.Interface().(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, &Error{Context: ctx, Stage: "validate", Err: err}
			}
		}
	}

	if typ.Kind() == reflect.Pointer {
		return target.Interface(), nil
	}
	return target.Elem().Interface(), nil
}

// FieldType returns the type of the field of typ addressed by name, matched
// case-insensitively against the Go field name and its json tag.
func FieldType(typ reflect.Type, name string) (reflect.Type, bool) {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, false
	}
	field, ok := lookupField(typ, name)
	if !ok {
		return nil, false
	}
	return field.typ, true
}

type fieldInfo struct {
	wire string
	typ  reflect.Type
}

func lookupField(typ reflect.Type, name string) (fieldInfo, bool) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		wire := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				wire = tagName
			}
		}
		if strings.EqualFold(wire, name) || strings.EqualFold(f.Name, name) {
			return fieldInfo{wire: wire, typ: f.Type}, true
		}
	}
	return fieldInfo{}, false
}

func normalizeKeys(typ reflect.Type, payload map[string]any, strict bool) (map[string]any, error) {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		field, ok := lookupField(typ, key)
		if !ok {
			if strict {
				return nil, fmt.Errorf("%s has no field %q", typ, key)
			}
			continue
		}
		out[field.wire] = value
	}
	return out, nil
}
