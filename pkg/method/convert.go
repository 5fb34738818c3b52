package method

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// DBNullValue is the type of DBNull.
type DBNullValue struct{}

func (DBNullValue) String() string { return "DBNull" }

// DBNull stands in for a database NULL when ConvertNullToDBNull is enabled.
var DBNull = DBNullValue{}

// Converter turns a supplied parameter value into the declared type.
type Converter interface {
	Convert(value any, to reflect.Type) (any, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(value any, to reflect.Type) (any, error)

// Convert implements Converter.
func (f ConverterFunc) Convert(value any, to reflect.Type) (any, error) {
	return f(value, to)
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	decimalType  = reflect.TypeOf(decimal.Decimal{})
	uuidType     = reflect.TypeOf(uuid.UUID{})
)

// DefaultConverter converts strings and scalars with spf13/cast, and knows
// time.Time, time.Duration, decimal.Decimal and uuid.UUID. Pointer targets are
// nullable: nil and the empty string convert to a nil pointer.
type DefaultConverter struct {
	Location *time.Location
}

// Convert implements Converter.
func (c DefaultConverter) Convert(value any, to reflect.Type) (any, error) {
	if to == nil {
		return value, nil
	}
	if value == nil {
		return reflect.Zero(to).Interface(), nil
	}
	from := reflect.TypeOf(value)
	if from.AssignableTo(to) {
		return value, nil
	}

	if to.Kind() == reflect.Pointer {
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return reflect.Zero(to).Interface(), nil
		}
		if from.Kind() == reflect.Pointer {
			rv := reflect.ValueOf(value)
			if rv.IsNil() {
				return reflect.Zero(to).Interface(), nil
			}
			value = rv.Elem().Interface()
		}
		inner, err := c.Convert(value, to.Elem())
		if err != nil {
			return nil, err
		}
		out := reflect.New(to.Elem())
		out.Elem().Set(reflect.ValueOf(inner))
		return out.Interface(), nil
	}

	converted, err := c.convertScalar(value, to)
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(converted)
	if rv.Type() == to {
		return converted, nil
	}
	if rv.Type().ConvertibleTo(to) {
		return rv.Convert(to).Interface(), nil
	}
	return nil, fmt.Errorf("unsupported conversion from %s to %s", from, to)
}

func (c DefaultConverter) convertScalar(value any, to reflect.Type) (any, error) {
	switch to {
	case timeType:
		loc := c.Location
		if loc == nil {
			loc = time.UTC
		}
		return cast.ToTimeInDefaultLocationE(value, loc)
	case durationType:
		return cast.ToDurationE(value)
	case decimalType:
		return toDecimal(value)
	case uuidType:
		switch v := value.(type) {
		case string:
			return uuid.Parse(strings.TrimSpace(v))
		case []byte:
			return uuid.FromBytes(v)
		}
		return nil, fmt.Errorf("cannot convert %T to uuid", value)
	}

	switch to.Kind() {
	case reflect.String:
		return cast.ToStringE(value)
	case reflect.Bool:
		return cast.ToBoolE(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		if reflect.New(to).Elem().OverflowInt(n) {
			return nil, fmt.Errorf("value %d overflows %s", n, to)
		}
		return reflect.ValueOf(n).Convert(to).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(value)
		if err != nil {
			return nil, err
		}
		if reflect.New(to).Elem().OverflowUint(n) {
			return nil, fmt.Errorf("value %d overflows %s", n, to)
		}
		return reflect.ValueOf(n).Convert(to).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(f).Convert(to).Interface(), nil
	case reflect.Slice:
		if to.Elem().Kind() == reflect.String {
			items, err := cast.ToStringSliceE(value)
			if err != nil {
				return nil, err
			}
			return reflect.ValueOf(items).Convert(to).Interface(), nil
		}
	case reflect.Interface:
		if reflect.TypeOf(value).Implements(to) {
			return value, nil
		}
	}
	return nil, fmt.Errorf("unsupported conversion from %T to %s", value, to)
}

func toInt64(value any) (int64, error) {
	if s, ok := value.(string); ok {
		trimmed := strings.TrimSpace(s)
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n, nil
		}
		return cast.ToInt64E(trimmed)
	}
	return cast.ToInt64E(value)
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	}
	n, err := cast.ToInt64E(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot convert %T to decimal", value)
	}
	return decimal.NewFromInt(n), nil
}
