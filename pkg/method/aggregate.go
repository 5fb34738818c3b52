package method

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-viewstate/internal/hydrate"
)

// BuildAggregate creates a value of typ (a struct or pointer to struct) from
// values. Each name must address a field by Go name or json tag; values are
// converted to the field type before the object is hydrated.
func (r *Resolver) BuildAggregate(typ reflect.Type, operation string, values *Values) (any, error) {
	if typ == nil {
		return nil, fmt.Errorf("method: aggregate type is nil")
	}
	payload := make(map[string]any, values.Len())
	for _, name := range values.Keys() {
		fieldType, ok := hydrate.FieldType(typ, name)
		if !ok {
			return nil, fmt.Errorf("method: data object %s has no property %q", typ, name)
		}
		raw, _ := values.Get(name)
		converted, err := r.converter.Convert(raw, fieldType)
		if err != nil {
			return nil, &TypeConversionError{Param: name, From: reflect.TypeOf(raw), To: fieldType, Err: err}
		}
		payload[name] = converted
	}
	return hydrate.DecodeType(hydrate.Context{Type: typ.String(), Operation: operation}, payload, typ)
}
