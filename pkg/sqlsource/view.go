package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-viewstate/pkg/datasource"
)

// Mode selects the result shape of a SQLView.
type Mode int

const (
	ModeTable Mode = iota
	ModeReader
)

func (m Mode) String() string {
	if m == ModeReader {
		return "reader"
	}
	return "table"
}

// Dialect controls placeholder syntax.
type Dialect int

const (
	// DialectQuestion uses "?" placeholders (SQLite, MySQL).
	DialectQuestion Dialect = iota
	// DialectDollar uses "$n" placeholders (Postgres).
	DialectDollar
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLView runs SelectCommand against DB.
type SQLView struct {
	ViewName      string
	DB            *sql.DB
	Dialect       Dialect
	SelectCommand string
	SelectArgs    []any
	// CountCommand, when set, returns the total row count and receives
	// SelectArgs.
	CountCommand string
	Mode         Mode

	EnableSorting    bool
	EnablePaging     bool
	FilterExpression string
	FilterParameters map[string]any
	// Columns, when set, restricts sortable columns.
	Columns []string
}

// Name implements datasource.Provider.
func (v *SQLView) Name() string {
	if v.ViewName != "" {
		return v.ViewName
	}
	return "sql"
}

// Capabilities implements datasource.Provider.
func (v *SQLView) Capabilities() datasource.CapabilitySet {
	var set datasource.CapabilitySet
	if v.EnableSorting && v.Mode == ModeTable {
		set = set.With(datasource.CapabilitySort)
	}
	if v.EnablePaging {
		set = set.With(datasource.CapabilityPage)
	}
	if v.CanCount() || !v.EnablePaging {
		set = set.With(datasource.CapabilityRetrieveTotalRowCount)
	}
	return set
}

// CanCount reports whether a count query runs. Readers count with a derived
// query because their rows cannot be counted after the fact.
func (v *SQLView) CanCount() bool {
	return v.CountCommand != "" || v.Mode == ModeReader
}

// Filter implements datasource.Filterer.
func (v *SQLView) Filter() string { return v.FilterExpression }

// FilterValues implements datasource.Filterer.
func (v *SQLView) FilterValues(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(v.FilterParameters))
	for k, val := range v.FilterParameters {
		out[k] = val
	}
	return out, nil
}

// Fetch implements datasource.Provider.
func (v *SQLView) Fetch(ctx context.Context, req *datasource.Request) (any, error) {
	if v.DB == nil {
		return nil, &datasource.ConfigurationError{View: v.Name(), Op: "select", Reason: "DB is nil"}
	}
	if strings.TrimSpace(v.SelectCommand) == "" {
		return nil, &datasource.ConfigurationError{View: v.Name(), Op: "select", Reason: "SelectCommand is not set"}
	}
	query, args, err := v.buildSelect(req.Args)
	if err != nil {
		return nil, err
	}
	rows, err := v.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlsource: %s: select: %w", v.Name(), err)
	}
	columns, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlsource: %s: columns: %w", v.Name(), err)
	}

	stream := &rowStream{rows: rows, columns: columns}
	if v.Mode == ModeReader {
		return stream, nil
	}
	defer stream.Close()
	table := datasource.NewTable(v.Name(), columnNames(columns)...)
	for stream.Next() {
		table.Rows = append(table.Rows, stream.row)
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("sqlsource: %s: scan: %w", v.Name(), err)
	}
	return table, nil
}

// Count implements datasource.Counter.
func (v *SQLView) Count(ctx context.Context, _ *datasource.Request) (int, error) {
	query := v.CountCommand
	if query == "" {
		query = "SELECT COUNT(*) FROM (" + trimStatement(v.SelectCommand) + ") AS counted"
	}
	var n int64
	if err := v.DB.QueryRowContext(ctx, query, v.SelectArgs...).Scan(&n); err != nil {
		return -1, fmt.Errorf("sqlsource: %s: count: %w", v.Name(), err)
	}
	return int(n), nil
}

// buildSelect appends ORDER BY and LIMIT/OFFSET clauses, consuming the sort
// expression so the pipeline does not sort again.
func (v *SQLView) buildSelect(args *datasource.SelectArguments) (string, []any, error) {
	var b strings.Builder
	b.WriteString(trimStatement(v.SelectCommand))
	params := append([]any(nil), v.SelectArgs...)

	if args.SortExpression != "" && v.EnableSorting && v.Mode == ModeTable {
		keys, err := datasource.ParseSortExpression(args.SortExpression)
		if err != nil {
			return "", nil, err
		}
		terms := make([]string, 0, len(keys))
		for _, key := range keys {
			if err := v.checkColumn(args.SortExpression, key.Column); err != nil {
				return "", nil, err
			}
			terms = append(terms, key.String())
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
		args.SortExpression = ""
	}

	if v.EnablePaging && args.MaximumRows > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(v.placeholder(len(params) + 1))
		b.WriteString(" OFFSET ")
		b.WriteString(v.placeholder(len(params) + 2))
		params = append(params, args.MaximumRows, args.StartRowIndex)
	}
	return b.String(), params, nil
}

func (v *SQLView) checkColumn(expression, column string) error {
	if !identifierPattern.MatchString(column) {
		return &datasource.SortExpressionError{Expression: expression, Position: strings.Index(expression, column), Reason: fmt.Sprintf("%q is not a valid identifier", column)}
	}
	if len(v.Columns) == 0 {
		return nil
	}
	for _, allowed := range v.Columns {
		if strings.EqualFold(allowed, column) {
			return nil
		}
	}
	return &datasource.SortExpressionError{Expression: expression, Position: strings.Index(expression, column), Reason: fmt.Sprintf("column %q is not sortable", column)}
}

func (v *SQLView) placeholder(n int) string {
	if v.Dialect == DialectDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func trimStatement(query string) string {
	return strings.TrimRight(strings.TrimSpace(query), "; \n\t")
}

func columnNames(columns []*sql.ColumnType) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name()
	}
	return names
}

// rowStream is a datasource.Stream over *sql.Rows yielding datasource.Row.
type rowStream struct {
	rows    *sql.Rows
	columns []*sql.ColumnType
	row     datasource.Row
	err     error
	closed  bool
}

func (s *rowStream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	if !s.rows.Next() {
		s.err = s.rows.Err()
		s.Close()
		return false
	}
	values := make([]any, len(s.columns))
	ptrs := make([]any, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		s.err = err
		s.Close()
		return false
	}
	row := make(datasource.Row, len(values))
	for i, c := range s.columns {
		row[c.Name()] = normalize(c, values[i])
	}
	s.row = row
	return true
}

func (s *rowStream) Value() any {
	if s.row == nil {
		return nil
	}
	return s.row
}

func (s *rowStream) Err() error { return s.err }

func (s *rowStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rows.Close()
}

// normalize turns driver text into strings and exact numerics into decimals.
func normalize(column *sql.ColumnType, value any) any {
	typeName := strings.ToUpper(column.DatabaseTypeName())
	if strings.HasPrefix(typeName, "NUMERIC") || strings.HasPrefix(typeName, "DECIMAL") {
		switch typed := value.(type) {
		case string:
			if d, err := decimal.NewFromString(typed); err == nil {
				return d
			}
		case []byte:
			if d, err := decimal.NewFromString(string(typed)); err == nil {
				return d
			}
		case float64:
			return decimal.NewFromFloat(typed)
		case int64:
			return decimal.NewFromInt(typed)
		}
	}
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
