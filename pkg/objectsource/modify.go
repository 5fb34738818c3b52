package objectsource

import (
	"context"
	"fmt"
	"reflect"

	"github.com/goliatone/go-viewstate/pkg/activity"
	"github.com/goliatone/go-viewstate/pkg/datasource"
	"github.com/goliatone/go-viewstate/pkg/method"
)

// Insert calls InsertMethod with values merged over the insert parameters.
func (v *ObjectView) Insert(ctx context.Context, values *method.Values) (int, error) {
	if !v.CanInsert() {
		return 0, v.unsupported("insert", "InsertMethod is not set")
	}
	typ, err := v.dataObjectType()
	if err != nil {
		return 0, err
	}

	var binding *method.Binding
	if typ != nil {
		if values.Len() == 0 {
			return 0, v.unsupported("insert", "insert requires values")
		}
		merged := &method.Values{}
		if err := merge(v.InsertParameters, values, merged, ""); err != nil {
			return 0, err
		}
		obj, err := v.resolve().BuildAggregate(typ, "insert", merged)
		if err != nil {
			return 0, err
		}
		binding, err = v.resolve().ResolveAggregate(v.TypeName, v.InsertMethod, method.KindInsert, typ, obj, nil)
		if err != nil {
			return 0, err
		}
		if v.cancelled(v.Inserting, binding.Args) {
			return 0, nil
		}
	} else {
		defaults, err := v.InsertParameters.Values(ctx)
		if err != nil {
			return 0, err
		}
		merged := &method.Values{}
		if err := mergeAll(v.InsertParameters, merged, "", defaults, values); err != nil {
			return 0, err
		}
		event := &MethodEvent{Params: merged}
		if v.Inserting != nil {
			v.Inserting(event)
		}
		if event.Cancel {
			return 0, nil
		}
		binding, err = v.resolve().ResolveNamed(v.TypeName, v.InsertMethod, method.KindInsert, event.Params)
		if err != nil {
			return 0, err
		}
	}

	return v.modify(ctx, binding, activity.BuildInsertedEvent, nil, values, nil)
}

// Update calls UpdateMethod. In named mode keys (and, with CompareAllValues,
// old values) are renamed with OldValuesParameterFormat.
func (v *ObjectView) Update(ctx context.Context, keys, values, oldValues *method.Values) (int, error) {
	if !v.CanUpdate() {
		return 0, v.unsupported("update", "UpdateMethod is not set")
	}
	if v.ConflictDetection == CompareAllValues && oldValues == nil {
		return 0, v.unsupported("update", "CompareAllValues requires old values")
	}
	typ, err := v.dataObjectType()
	if err != nil {
		return 0, err
	}

	var binding *method.Binding
	if typ != nil {
		// Old values seed fields that have no new value, such as read-only
		// columns.
		newValues := &method.Values{}
		if err := mergeAll(v.UpdateParameters, newValues, "", oldValues, keys, values); err != nil {
			return 0, err
		}
		newObj, err := v.resolve().BuildAggregate(typ, "update", newValues)
		if err != nil {
			return 0, err
		}
		var oldObj any
		if v.ConflictDetection == CompareAllValues {
			previous := &method.Values{}
			if err := mergeAll(v.UpdateParameters, previous, "", oldValues, keys); err != nil {
				return 0, err
			}
			if oldObj, err = v.resolve().BuildAggregate(typ, "update", previous); err != nil {
				return 0, err
			}
		}
		binding, err = v.resolve().ResolveAggregate(v.TypeName, v.UpdateMethod, method.KindUpdate, typ, newObj, oldObj)
		if err != nil {
			return 0, err
		}
		if v.cancelled(v.Updating, binding.Args) {
			return 0, nil
		}
	} else {
		defaults, err := v.UpdateParameters.Values(ctx)
		if err != nil {
			return 0, err
		}
		for _, name := range keys.Keys() {
			defaults.Delete(name)
		}
		format := v.OldValuesParameterFormat
		merged := &method.Values{}
		if err := mergeAll(v.UpdateParameters, merged, "", defaults, values); err != nil {
			return 0, err
		}
		if v.ConflictDetection == CompareAllValues {
			if err := merge(v.UpdateParameters, oldValues, merged, format); err != nil {
				return 0, err
			}
		}
		if err := merge(v.UpdateParameters, keys, merged, format); err != nil {
			return 0, err
		}
		event := &MethodEvent{Params: merged}
		if v.Updating != nil {
			v.Updating(event)
		}
		if event.Cancel {
			return 0, nil
		}
		binding, err = v.resolve().ResolveNamed(v.TypeName, v.UpdateMethod, method.KindUpdate, event.Params)
		if err != nil {
			return 0, err
		}
	}

	return v.modify(ctx, binding, activity.BuildUpdatedEvent, keys, values, oldValues)
}

// Delete calls DeleteMethod with keys and, with CompareAllValues, old values.
func (v *ObjectView) Delete(ctx context.Context, keys, oldValues *method.Values) (int, error) {
	if !v.CanDelete() {
		return 0, v.unsupported("delete", "DeleteMethod is not set")
	}
	if v.ConflictDetection == CompareAllValues && oldValues == nil {
		return 0, v.unsupported("delete", "CompareAllValues requires old values")
	}
	typ, err := v.dataObjectType()
	if err != nil {
		return 0, err
	}

	var binding *method.Binding
	if typ != nil {
		previous := &method.Values{}
		if err := merge(v.DeleteParameters, keys, previous, ""); err != nil {
			return 0, err
		}
		if v.ConflictDetection == CompareAllValues {
			if err := merge(v.DeleteParameters, oldValues, previous, ""); err != nil {
				return 0, err
			}
		}
		oldObj, err := v.resolve().BuildAggregate(typ, "delete", previous)
		if err != nil {
			return 0, err
		}
		binding, err = v.resolve().ResolveAggregate(v.TypeName, v.DeleteMethod, method.KindDelete, typ, nil, oldObj)
		if err != nil {
			return 0, err
		}
		if v.cancelled(v.Deleting, binding.Args) {
			return 0, nil
		}
	} else {
		defaults, err := v.DeleteParameters.Values(ctx)
		if err != nil {
			return 0, err
		}
		format := v.OldValuesParameterFormat
		merged := &method.Values{}
		if err := merge(v.DeleteParameters, defaults, merged, ""); err != nil {
			return 0, err
		}
		if err := merge(v.DeleteParameters, keys, merged, format); err != nil {
			return 0, err
		}
		if v.ConflictDetection == CompareAllValues {
			if err := merge(v.DeleteParameters, oldValues, merged, format); err != nil {
				return 0, err
			}
		}
		event := &MethodEvent{Params: merged}
		if v.Deleting != nil {
			v.Deleting(event)
		}
		if event.Cancel {
			return 0, nil
		}
		binding, err = v.resolve().ResolveNamed(v.TypeName, v.DeleteMethod, method.KindDelete, event.Params)
		if err != nil {
			return 0, err
		}
	}

	return v.modify(ctx, binding, activity.BuildDeletedEvent, keys, nil, oldValues)
}

// modify invokes binding, then invalidates the cache, raises Changed and
// emits the activity event.
func (v *ObjectView) modify(ctx context.Context, binding *method.Binding, build func(activity.DataEventInput) activity.Event, keys, values, oldValues *method.Values) (int, error) {
	result, err := v.invoker().Invoke(ctx, binding)
	if err != nil {
		return 0, err
	}
	if v.Cache != nil && v.Cache.Enabled() {
		v.Cache.Invalidate(v.CacheKey())
	}
	v.raiseChanged()

	if v.Activity.Enabled() {
		event := build(activity.DataEventInput{
			View:         v.Name(),
			TypeName:     v.TypeName,
			Method:       binding.Method.Name,
			AffectedRows: result.AffectedRows,
			Keys:         mapOrNil(keys),
			Values:       mapOrNil(values),
			OldValues:    mapOrNil(oldValues),
		})
		if err := v.Activity.Emit(ctx, event); err != nil {
			return result.AffectedRows, fmt.Errorf("objectsource: activity: %w", err)
		}
	}
	return result.AffectedRows, nil
}

func (v *ObjectView) cancelled(hook func(*MethodEvent), params *method.Values) bool {
	if hook == nil {
		return false
	}
	event := &MethodEvent{Params: params}
	hook(event)
	return event.Cancel
}

func (v *ObjectView) dataObjectType() (reflect.Type, error) {
	if v.DataObjectTypeName == "" {
		return nil, nil
	}
	typ, ok := v.Registry.Aggregate(v.DataObjectTypeName)
	if !ok {
		return nil, &datasource.ConfigurationError{
			View:   v.Name(),
			Op:     "modify",
			Reason: fmt.Sprintf("data object type %q is not registered", v.DataObjectTypeName),
		}
	}
	return typ, nil
}

func (v *ObjectView) unsupported(op, reason string) error {
	return &datasource.ConfigurationError{View: v.Name(), Op: op, Reason: reason}
}

func mergeAll(reference *Parameters, dst *method.Values, format string, sources ...*method.Values) error {
	for _, src := range sources {
		if err := merge(reference, src, dst, format); err != nil {
			return err
		}
	}
	return nil
}

func mapOrNil(values *method.Values) map[string]any {
	if values.Len() == 0 {
		return nil
	}
	return values.Map()
}
