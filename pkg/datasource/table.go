package datasource

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-viewstate/pkg/filter"
)

// Row is one tabular record keyed by column name.
type Row map[string]any

// Table is an in-memory tabular result.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewTable returns an empty table with the given columns.
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: append([]string(nil), columns...)}
}

// AddRow appends a row from positional values matching Columns.
func (t *Table) AddRow(values ...any) Row {
	row := make(Row, len(t.Columns))
	for i, col := range t.Columns {
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = nil
		}
	}
	t.Rows = append(t.Rows, row)
	return row
}

// Len reports the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// TableView is a sorted, filtered window over a Table. Rows are materialized
// lazily on first access and again after SetSort.
type TableView struct {
	Table     *Table
	Sort      string
	Filter    string
	Params    map[string]any
	Evaluator filter.Evaluator

	rows         []Row
	materialized bool
}

// NewTableView returns an unsorted, unfiltered view of table.
func NewTableView(table *Table) *TableView {
	return &TableView{Table: table}
}

// SetSort changes the sort expression and discards materialized rows.
func (v *TableView) SetSort(expression string) {
	v.Sort = expression
	v.materialized = false
	v.rows = nil
}

// Rows returns the filtered and sorted rows.
func (v *TableView) Rows() ([]Row, error) {
	if v.materialized {
		return v.rows, nil
	}
	if v.Table == nil {
		v.materialized = true
		return nil, nil
	}

	rows := v.Table.Rows
	if v.Filter != "" {
		filtered, err := v.filterRows(rows)
		if err != nil {
			return nil, err
		}
		rows = filtered
	} else {
		rows = append([]Row(nil), rows...)
	}

	if v.Sort != "" {
		keys, err := ParseSortExpression(v.Sort)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if !v.hasColumn(key.Column) {
				return nil, &SortExpressionError{Expression: v.Sort, Reason: fmt.Sprintf("unknown column %q", key.Column)}
			}
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return lessRows(rows[i], rows[j], keys)
		})
	}

	v.rows = rows
	v.materialized = true
	return rows, nil
}

// Count reports the number of rows after filtering.
func (v *TableView) Count() (int, error) {
	rows, err := v.Rows()
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (v *TableView) hasColumn(name string) bool {
	for _, col := range v.Table.Columns {
		if col == name {
			return true
		}
	}
	return false
}

func (v *TableView) filterRows(rows []Row) ([]Row, error) {
	evaluator := v.Evaluator
	if evaluator == nil {
		var err error
		evaluator, err = filter.New(filter.EngineExpr, filter.WithFunctionRegistry(filter.DefaultFunctions()))
		if err != nil {
			return nil, err
		}
	}
	program, err := evaluator.Compile(v.Filter)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		ok, err := filter.Match(program, filter.RowContext{Row: row, Params: v.Params, View: v.Table.Name})
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}
