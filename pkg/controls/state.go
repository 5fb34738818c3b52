package controls

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-viewstate"
)

// controlState is the bag plus fixed style slots behind every control.
type controlState struct {
	bag    *viewstate.Bag
	root   *viewstate.Composite
	styles []*Style
}

func newControlState(name string, opts []viewstate.Option, styleNames ...string) controlState {
	opts = append([]viewstate.Option{viewstate.WithName(name)}, opts...)
	bag := viewstate.NewBag(opts...)
	root := viewstate.NewComposite(bag, opts...)
	styles := make([]*Style, len(styleNames))
	for i, styleName := range styleNames {
		styles[i] = NewStyle(styleName)
		root.MustRegister(styleName, styles[i])
	}
	return controlState{bag: bag, root: root, styles: styles}
}

// Bag exposes the control's own store.
func (s *controlState) Bag() *viewstate.Bag { return s.bag }

// Style returns the style slot called name, or nil.
func (s *controlState) Style(name string) *Style {
	for _, style := range s.styles {
		if style.name == name {
			return style
		}
	}
	return nil
}

func (s *controlState) TrackState()                              { s.root.TrackState() }
func (s *controlState) IsTrackingState() bool                    { return s.root.IsTrackingState() }
func (s *controlState) SaveState() (*viewstate.Snapshot, error)  { return s.root.SaveState() }
func (s *controlState) LoadState(snap *viewstate.Snapshot) error { return s.root.LoadState(snap) }

func (s *controlState) intValue(key string, fallback int) int {
	return viewstate.Value(s.bag, key, fallback)
}

func (s *controlState) boolValue(key string, fallback bool) bool {
	return viewstate.Value(s.bag, key, fallback)
}

func (s *controlState) stringValue(key string) string {
	return viewstate.Value(s.bag, key, "")
}

// setIndex stores an index property, rejecting values below -1.
func (s *controlState) setIndex(key string, value int) error {
	if value < -1 {
		return fmt.Errorf("controls: %s must be >= -1, got %d", key, value)
	}
	s.bag.Set(key, value)
	return nil
}

func (s *controlState) setNonNegative(key string, value int) error {
	if value < 0 {
		return fmt.Errorf("controls: %s must be >= 0, got %d", key, value)
	}
	s.bag.Set(key, value)
	return nil
}

// FieldValue reads name from a data item: a datasource.Row or other
// map[string]any by key, a struct or struct pointer by exported field.
func FieldValue(item any, name string) (any, error) {
	switch v := item.(type) {
	case nil:
		return nil, fmt.Errorf("controls: cannot read %q from a nil item", name)
	case map[string]any:
		value, ok := v[name]
		if !ok {
			return nil, fmt.Errorf("controls: item has no field %q", name)
		}
		return value, nil
	}
	rv := reflect.ValueOf(item)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		value := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, fmt.Errorf("controls: item has no field %q", name)
		}
		return value.Interface(), nil
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("controls: cannot read %q from a nil %s", name, rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("controls: cannot read %q from %T", name, item)
	}
	field := rv.FieldByName(name)
	if !field.IsValid() || !field.CanInterface() {
		return nil, fmt.Errorf("controls: %T has no exported field %q", item, name)
	}
	return field.Interface(), nil
}

// dataKeys collects field from every item, or nil when field is empty.
func dataKeys(items []any, field string) ([]any, error) {
	if field == "" {
		return nil, nil
	}
	keys := make([]any, len(items))
	for i, item := range items {
		key, err := FieldValue(item, field)
		if err != nil {
			return nil, fmt.Errorf("controls: data key of item %d: %w", i, err)
		}
		keys[i] = key
	}
	return keys, nil
}
