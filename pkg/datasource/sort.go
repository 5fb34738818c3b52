package datasource

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// SortKey is one term of a sort expression.
type SortKey struct {
	Column     string
	Descending bool
}

func (k SortKey) String() string {
	if k.Descending {
		return k.Column + " DESC"
	}
	return k.Column
}

// ParseSortExpression parses "Name DESC, [Last Login] ASC, Age". Columns may
// be bracketed to include spaces; the direction defaults to ascending.
func ParseSortExpression(expression string) ([]SortKey, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, nil
	}
	terms := strings.Split(expression, ",")
	keys := make([]SortKey, 0, len(terms))
	for i, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, &SortExpressionError{Expression: expression, Position: i, Reason: "empty term"}
		}

		var column, rest string
		if strings.HasPrefix(term, "[") {
			end := strings.Index(term, "]")
			if end < 0 {
				return nil, &SortExpressionError{Expression: expression, Position: i, Reason: "unterminated bracket"}
			}
			column = term[1:end]
			rest = strings.TrimSpace(term[end+1:])
		} else {
			fields := strings.Fields(term)
			column = fields[0]
			rest = strings.Join(fields[1:], " ")
		}
		if strings.TrimSpace(column) == "" {
			return nil, &SortExpressionError{Expression: expression, Position: i, Reason: "empty column name"}
		}

		key := SortKey{Column: column}
		switch strings.ToUpper(rest) {
		case "", "ASC":
		case "DESC":
			key.Descending = true
		default:
			return nil, &SortExpressionError{Expression: expression, Position: i, Reason: fmt.Sprintf("unknown direction %q", rest)}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// FormatSortExpression renders keys back into an expression.
func FormatSortExpression(keys []SortKey) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		column := key.Column
		if strings.ContainsAny(column, " ,") {
			column = "[" + column + "]"
		}
		if key.Descending {
			column += " DESC"
		}
		parts[i] = column
	}
	return strings.Join(parts, ", ")
}

func lessRows(a, b Row, keys []SortKey) bool {
	for _, key := range keys {
		c := CompareValues(a[key.Column], b[key.Column])
		if c == 0 {
			continue
		}
		if key.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

// CompareValues orders two column values. nil sorts first; numbers compare
// numerically across Go types; decimals, times, bools and strings compare
// naturally; anything else compares by its formatted text.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if ad, ok := a.(decimal.Decimal); ok {
		if bd, ok := toDecimal(b); ok {
			return ad.Cmp(bd)
		}
	}
	if bd, ok := b.(decimal.Decimal); ok {
		if ad, ok := toDecimal(a); ok {
			return ad.Cmp(bd)
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	if isNumber(a) && isNumber(b) {
		af, bf := toFloat(a), toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func isNumber(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case string:
		d, err := decimal.NewFromString(x)
		return d, err == nil
	}
	if isNumber(v) {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			f = toFloat(v)
		}
		return decimal.NewFromFloat(f), true
	}
	return decimal.Decimal{}, false
}

func toFloat(v any) float64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return 0
}
