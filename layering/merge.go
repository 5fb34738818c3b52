// Package layering resolves typed override records against their defaults.
//
// Values are ordered from strongest to weakest. A nil pointer, map, slice or
// interface in a stronger layer falls through to the next weaker layer, so a
// struct of pointer fields behaves like a record of optional settings.
package layering

import "reflect"

// MergeLayers composes values ordered from strongest to weakest.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	merged := deepCopy(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = overlay(reflect.ValueOf(layers[i]), merged)
	}
	return asType[T](merged)
}

// Merge is MergeLayers for exactly one override and one fallback.
func Merge[T any](override, fallback T) T {
	return MergeLayers(override, fallback)
}

// Clone deep copies value. Unexported struct fields are left at zero.
func Clone[T any](value T) T {
	return asType[T](deepCopy(reflect.ValueOf(value)))
}

func asType[T any](v reflect.Value) T {
	var zero T
	if !v.IsValid() {
		return zero
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	if v.Type() != target {
		result := reflect.New(target).Elem()
		result.Set(v.Convert(target))
		return result.Interface().(T)
	}
	return v.Interface().(T)
}

func overlay(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return deepCopy(weak)
	}

	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Pointer && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		out := reflect.New(strong.Type().Elem())
		out.Elem().Set(overlay(strong.Elem(), weakElem))
		return out
	case reflect.Interface:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		return overlay(strong.Elem(), weakElem).Convert(strong.Type())
	case reflect.Struct:
		if !hasSettableFields(strong.Type()) {
			return deepCopy(strong)
		}
		out := reflect.New(strong.Type()).Elem()
		var weakStruct reflect.Value
		if weak.IsValid() && weak.Type() == strong.Type() {
			weakStruct = weak
		}
		for i := 0; i < strong.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			var weakField reflect.Value
			if weakStruct.IsValid() {
				weakField = weakStruct.Field(i)
			}
			field.Set(overlay(strong.Field(i), weakField))
		}
		return out
	case reflect.Map:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		out := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && weak.Kind() == reflect.Map && !weak.IsNil() {
			iter := weak.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			existing := out.MapIndex(iter.Key())
			if existing.IsValid() {
				out.SetMapIndex(iter.Key(), overlay(iter.Value(), existing))
				continue
			}
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		// Slices replace rather than merge element-wise.
		if strong.IsNil() {
			return deepCopy(weak)
		}
		return deepCopy(strong)
	default:
		return deepCopy(strong)
	}
}

func deepCopy(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := deepCopy(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		if !hasSettableFields(v.Type()) {
			// Opaque values such as time.Time or decimal.Decimal keep their
			// unexported state by plain assignment.
			out := reflect.New(v.Type()).Elem()
			out.Set(v)
			return out
		}
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(deepCopy(v.Field(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}

func hasSettableFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}
