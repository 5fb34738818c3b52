package viewstate

import (
	"fmt"
	"reflect"
	"time"

	"github.com/goliatone/go-viewstate/layering"
)

// Record keeps typed overrides for a struct T whose exported fields are
// pointers, slices or maps. A nil field means "not set here". Only fields
// changed after TrackState are saved, one entry per field keyed by field name.
type Record[T any] struct {
	cfg      config
	values   T
	fields   []recordField
	dirty    map[string]bool
	tracking bool
}

type recordField struct {
	name  string
	index int
	typ   reflect.Type
}

// NewRecord constructs an empty record. It panics when T is not a struct.
func NewRecord[T any](opts ...Option) *Record[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		panic(fmt.Sprintf("viewstate: record type %s is not a struct", typ))
	}
	fields := make([]recordField, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		switch field.Type.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map:
			fields = append(fields, recordField{name: field.Name, index: i, typ: field.Type})
		}
	}
	cfg := applyOptions(opts)
	if cfg.name == "" {
		cfg.name = typ.Name()
	}
	return &Record[T]{
		cfg:    cfg,
		fields: fields,
		dirty:  map[string]bool{},
	}
}

// Get returns a copy of the current overrides.
func (r *Record[T]) Get() T {
	return layering.Clone(r.values)
}

// Update applies fn to the overrides. Fields whose value changed become dirty
// while tracking.
func (r *Record[T]) Update(fn func(*T)) {
	if fn == nil {
		return
	}
	before := layering.Clone(r.values)
	fn(&r.values)
	if !r.tracking {
		return
	}
	prev := reflect.ValueOf(before)
	next := reflect.ValueOf(r.values)
	for _, field := range r.fields {
		if !reflect.DeepEqual(prev.Field(field.index).Interface(), next.Field(field.index).Interface()) {
			r.dirty[field.name] = true
		}
	}
}

// Reset clears every override.
func (r *Record[T]) Reset() {
	r.Update(func(v *T) {
		var zero T
		*v = zero
	})
}

// IsSet reports whether field holds an override.
func (r *Record[T]) IsSet(name string) bool {
	v := reflect.ValueOf(r.values)
	for _, field := range r.fields {
		if field.name == name {
			return !v.Field(field.index).IsNil()
		}
	}
	return false
}

// Effective resolves the overrides over defaults.
func (r *Record[T]) Effective(defaults T) T {
	return layering.Merge(r.values, defaults)
}

// IsEmpty reports whether no field is set.
func (r *Record[T]) IsEmpty() bool {
	v := reflect.ValueOf(r.values)
	for _, field := range r.fields {
		if !v.Field(field.index).IsNil() {
			return false
		}
	}
	return true
}

// IsDirty reports whether field will be saved.
func (r *Record[T]) IsDirty(name string) bool {
	return r.dirty[name]
}

// SetDirty marks every set field dirty, or clears all dirty flags.
func (r *Record[T]) SetDirty(dirty bool) {
	if !dirty {
		r.dirty = map[string]bool{}
		return
	}
	v := reflect.ValueOf(r.values)
	for _, field := range r.fields {
		if !v.Field(field.index).IsNil() {
			r.dirty[field.name] = true
		}
	}
}

// TrackState starts dirty tracking.
func (r *Record[T]) TrackState() {
	r.tracking = true
}

// IsTrackingState reports whether updates are tracked.
func (r *Record[T]) IsTrackingState() bool {
	return r.tracking
}

// SaveState emits one entry per dirty field. Pointer fields are saved by
// value and an unset field is saved as nil.
func (r *Record[T]) SaveState() (*Snapshot, error) {
	start := time.Now()
	v := reflect.ValueOf(r.values)
	var entries []Entry
	for _, field := range r.fields {
		if !r.dirty[field.name] {
			continue
		}
		fv := v.Field(field.index)
		var value any
		if !fv.IsNil() {
			if field.typ.Kind() == reflect.Pointer {
				value = fv.Elem().Interface()
			} else {
				value = layering.Clone(fv.Interface())
			}
		}
		entries = append(entries, Entry{Key: field.name, Value: value})
	}
	r.logger().LogState(LogEvent{Op: "save", Store: r.cfg.name, Entries: len(entries), Duration: time.Since(start)})
	if len(entries) == 0 {
		return nil, nil
	}
	return &Snapshot{Entries: entries}, nil
}

// LoadState applies saved fields. Unknown fields and values that cannot be
// assigned to the field type are corruption errors.
func (r *Record[T]) LoadState(snapshot *Snapshot) error {
	if snapshot == nil {
		return nil
	}
	if len(snapshot.Slots) > 0 {
		return corruptf("load", r.cfg.name, "record snapshot carries %d child slots", len(snapshot.Slots))
	}
	next := reflect.New(reflect.TypeOf(r.values)).Elem()
	next.Set(reflect.ValueOf(layering.Clone(r.values)))
	for _, entry := range snapshot.Entries {
		field, ok := r.field(entry.Key)
		if !ok {
			return &StateCorruptionError{Op: "load", Store: r.cfg.name, Slot: -1, Key: entry.Key, Reason: "unknown field"}
		}
		value, err := assignable(entry.Value, field.typ)
		if err != nil {
			return &StateCorruptionError{Op: "load", Store: r.cfg.name, Slot: -1, Key: entry.Key, Err: err}
		}
		next.Field(field.index).Set(value)
		if r.tracking {
			r.dirty[field.name] = true
		}
	}
	r.values = next.Interface().(T)
	r.logger().LogState(LogEvent{Op: "load", Store: r.cfg.name, Entries: len(snapshot.Entries)})
	return nil
}

func (r *Record[T]) field(name string) (recordField, bool) {
	for _, field := range r.fields {
		if field.name == name {
			return field, true
		}
	}
	return recordField{}, false
}

func (r *Record[T]) logger() Logger {
	return loggerOrNoop(r.cfg.logger)
}

// assignable converts a saved value into a value of type target. Pointer
// targets receive a fresh pointer to the value; []any and map[string]any are
// converted element by element.
func assignable(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}
	raw := reflect.ValueOf(value)
	switch target.Kind() {
	case reflect.Pointer:
		elem, err := assignable(value, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(target.Elem())
		out.Elem().Set(elem)
		return out, nil
	case reflect.Slice:
		if raw.Type().AssignableTo(target) {
			return raw, nil
		}
		if raw.Kind() != reflect.Slice {
			return reflect.Value{}, fmt.Errorf("cannot assign %T to %s", value, target)
		}
		out := reflect.MakeSlice(target, raw.Len(), raw.Len())
		for i := 0; i < raw.Len(); i++ {
			elem, err := assignable(raw.Index(i).Interface(), target.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case reflect.Map:
		if raw.Type().AssignableTo(target) {
			return raw, nil
		}
		if raw.Kind() != reflect.Map || target.Key().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("cannot assign %T to %s", value, target)
		}
		out := reflect.MakeMapWithSize(target, raw.Len())
		iter := raw.MapRange()
		for iter.Next() {
			elem, err := assignable(iter.Value().Interface(), target.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(iter.Key().String()).Convert(target.Key()), elem)
		}
		return out, nil
	}
	if raw.Type().AssignableTo(target) {
		return raw, nil
	}
	if raw.Type().ConvertibleTo(target) && raw.Kind() == target.Kind() {
		return raw.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %T to %s", value, target)
}
