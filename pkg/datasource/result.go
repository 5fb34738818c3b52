package datasource

import (
	"reflect"
)

// ResultKind tells which shape a provider returned.
type ResultKind int

const (
	ResultView ResultKind = iota + 1
	ResultTable
	ResultStream
	ResultEnumerable
	ResultScalar
)

func (k ResultKind) String() string {
	switch k {
	case ResultView:
		return "view"
	case ResultTable:
		return "table"
	case ResultStream:
		return "stream"
	case ResultEnumerable:
		return "enumerable"
	case ResultScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// Stream is a forward-only sequence of values. It cannot be cached, sorted or
// filtered.
type Stream interface {
	Next() bool
	Value() any
	Err() error
	Close() error
}

// SliceStream adapts a slice to Stream.
type SliceStream struct {
	items []any
	pos   int
}

// NewSliceStream returns a stream over items.
func NewSliceStream(items []any) *SliceStream {
	return &SliceStream{items: items, pos: -1}
}

func (s *SliceStream) Next() bool {
	if s.pos+1 >= len(s.items) {
		s.pos = len(s.items)
		return false
	}
	s.pos++
	return true
}

func (s *SliceStream) Value() any {
	if s.pos < 0 || s.pos >= len(s.items) {
		return nil
	}
	return s.items[s.pos]
}

func (s *SliceStream) Err() error   { return nil }
func (s *SliceStream) Close() error { return nil }

// Result is the normalized outcome of a select. View is set for view and
// table results, Items for enumerable and scalar results, Stream for streams.
type Result struct {
	Kind          ResultKind
	View          *TableView
	Items         []any
	Stream        Stream
	TotalRowCount int
}

// All materializes the result. View rows are returned as Row values; a
// stream is drained and closed.
func (r *Result) All() ([]any, error) {
	if r == nil {
		return nil, nil
	}
	switch r.Kind {
	case ResultView, ResultTable:
		rows, err := r.View.Rows()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for i, row := range rows {
			out[i] = row
		}
		return out, nil
	case ResultStream:
		defer r.Stream.Close()
		var out []any
		for r.Stream.Next() {
			out = append(out, r.Stream.Value())
		}
		return out, r.Stream.Err()
	default:
		return r.Items, nil
	}
}

// Shape classifies raw using the precedence view, table, stream,
// enumerable, scalar.
func Shape(raw any) ResultKind {
	switch raw.(type) {
	case *TableView:
		return ResultView
	case *Table:
		return ResultTable
	case Stream:
		return ResultStream
	}
	if _, ok := enumerate(raw); ok {
		return ResultEnumerable
	}
	return ResultScalar
}

func enumerate(raw any) ([]any, bool) {
	if items, ok := raw.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}
