package main

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-viewstate/pkg/datasource"
	"github.com/goliatone/go-viewstate/pkg/sqlsource"
)

type queryOptions struct {
	db      dbFlags
	sel     string
	count   string
	sort    string
	start   int
	max     int
	filter  string
	params  []string
	reader  bool
	columns []string
}

type queryOutput struct {
	View  string `json:"view"`
	Kind  string `json:"kind"`
	Total int    `json:"total"`
	Rows  []any  `json:"rows"`
}

func newQueryCmd(a *app) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one select through the data-source pipeline",
		Long: `Query runs a SQL select through the pipeline with the configured cache and
filter engine, applying sort, paging and the filter expression exactly as a
bound control would.

Example:
  viewstate query --dsn shop.db --select "SELECT id, name FROM products" \
    --count "SELECT COUNT(*) FROM products" --sort "name DESC" --start 10 --max 10
  viewstate query --dsn shop.db --select "SELECT * FROM products" \
    --filter "price > params.min" --param min=10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.db.driver, "driver", "sqlite", "database driver: sqlite or postgres")
	f.StringVar(&opts.db.dsn, "dsn", "", "database path or connection string")
	f.StringVar(&opts.sel, "select", "", "select statement")
	f.StringVar(&opts.count, "count", "", "count statement returning the total row count")
	f.StringVar(&opts.sort, "sort", "", `sort expression, e.g. "name DESC, id"`)
	f.IntVar(&opts.start, "start", 0, "start row index")
	f.IntVar(&opts.max, "max", 0, "maximum rows (0 for all)")
	f.StringVar(&opts.filter, "filter", "", "filter expression applied to the fetched table")
	f.StringArrayVar(&opts.params, "param", nil, "filter parameter key=value (repeatable)")
	f.BoolVar(&opts.reader, "reader", false, "stream rows instead of materializing a table")
	f.StringSliceVar(&opts.columns, "columns", nil, "sortable columns")
	_ = cmd.MarkFlagRequired("dsn")
	_ = cmd.MarkFlagRequired("select")
	return cmd
}

func (a *app) runQuery(cmd *cobra.Command, opts *queryOptions) error {
	ctx := cmd.Context()
	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}
	db, dialect, err := opts.db.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	view := &sqlsource.SQLView{
		ViewName:         "query",
		DB:               db,
		Dialect:          dialect,
		SelectCommand:    opts.sel,
		CountCommand:     opts.count,
		EnableSorting:    true,
		EnablePaging:     opts.start > 0 || opts.max > 0,
		FilterExpression: opts.filter,
		FilterParameters: params,
		Columns:          opts.columns,
	}
	if opts.reader {
		view.Mode = sqlsource.ModeReader
	}
	p, err := a.pipeline(view, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	args := datasource.NewSelectArguments(opts.sort, opts.start, opts.max)
	args.RetrieveTotalRowCount = view.Capabilities().Has(datasource.CapabilityRetrieveTotalRowCount)
	result, err := p.Select(ctx, args)
	if err != nil {
		return err
	}
	out := queryOutput{View: view.Name(), Total: args.TotalRowCount, Rows: []any{}}
	if result != nil {
		rows, err := result.All()
		if err != nil {
			return err
		}
		out.Kind = result.Kind.String()
		out.Total = result.TotalRowCount
		if rows != nil {
			out.Rows = rows
		}
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

// parseParams reads key=value pairs; values that parse as JSON keep their
// JSON type.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected key=value)", pair)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		params[key] = parsed
	}
	return params, nil
}
