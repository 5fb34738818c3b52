package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-viewstate/pkg/datasource"
)

func openPeople(t *testing.T, n int) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "people.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT NOT NULL, city TEXT NOT NULL)`)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		city := "Oslo"
		if i%2 == 1 {
			city = "Bergen"
		}
		_, err = db.Exec(`INSERT INTO people (id, name, city) VALUES (?, ?, ?)`, i, fmt.Sprintf("person-%02d", i), city)
		require.NoError(t, err)
	}
	return db
}

func rowNames(t *testing.T, rows []datasource.Row) []string {
	t.Helper()
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row["name"].(string)
	}
	return out
}

func TestTableModePagesAndCounts(t *testing.T) {
	view := &SQLView{
		ViewName:      "people",
		DB:            openPeople(t, 25),
		SelectCommand: "SELECT id, name, city FROM people;",
		CountCommand:  "SELECT COUNT(*) FROM people",
		EnableSorting: true,
		EnablePaging:  true,
	}
	pipeline, err := datasource.NewPipeline(view)
	require.NoError(t, err)

	args := datasource.NewSelectArguments("id DESC", 5, 3)
	args.RetrieveTotalRowCount = true
	result, err := pipeline.Select(context.Background(), args)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, datasource.ResultTable, result.Kind)
	assert.Equal(t, 25, result.TotalRowCount)

	rows, err := result.View.Rows()
	require.NoError(t, err)
	assert.Equal(t, []string{"person-19", "person-18", "person-17"}, rowNames(t, rows))
	assert.Empty(t, args.SortExpression, "native sort consumes the expression")
}

func TestTableModeFilterAppliesAfterFetch(t *testing.T) {
	view := &SQLView{
		ViewName:         "people",
		DB:               openPeople(t, 6),
		SelectCommand:    "SELECT id, name, city FROM people ORDER BY id",
		FilterExpression: `city == params.city`,
		FilterParameters: map[string]any{"city": "Bergen"},
	}
	pipeline, err := datasource.NewPipeline(view)
	require.NoError(t, err)

	args := datasource.NewSelectArguments("", 0, 0)
	args.RetrieveTotalRowCount = true
	result, err := pipeline.Select(context.Background(), args)
	require.NoError(t, err)
	rows, err := result.View.Rows()
	require.NoError(t, err)
	assert.Equal(t, []string{"person-01", "person-03", "person-05"}, rowNames(t, rows))
	assert.Equal(t, 6, result.TotalRowCount, "the count covers the unfiltered table")
}

func TestReaderModeStreamsRows(t *testing.T) {
	view := &SQLView{
		DB:            openPeople(t, 4),
		SelectCommand: "SELECT id, name FROM people ORDER BY id",
		Mode:          ModeReader,
	}
	assert.False(t, view.Capabilities().Has(datasource.CapabilitySort))

	pipeline, err := datasource.NewPipeline(view)
	require.NoError(t, err)
	args := datasource.NewSelectArguments("", 0, 0)
	args.RetrieveTotalRowCount = true
	result, err := pipeline.Select(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, datasource.ResultStream, result.Kind)
	assert.Equal(t, 4, result.TotalRowCount, "derived count query")

	var names []string
	for result.Stream.Next() {
		names = append(names, result.Stream.Value().(datasource.Row)["name"].(string))
	}
	require.NoError(t, result.Stream.Err())
	require.NoError(t, result.Stream.Close())
	assert.Equal(t, []string{"person-00", "person-01", "person-02", "person-03"}, names)
}

func TestReaderModeRejectsCache(t *testing.T) {
	view := &SQLView{
		DB:            openPeople(t, 2),
		SelectCommand: "SELECT id FROM people",
		Mode:          ModeReader,
	}
	pipeline, err := datasource.NewPipeline(view, datasource.WithCache(datasource.NewMemoryCache(0, datasource.ExpireAbsolute)))
	require.NoError(t, err)

	_, err = pipeline.Select(context.Background(), nil)
	var shapeErr *datasource.UnsupportedShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, datasource.ResultStream, shapeErr.Shape)
}

func TestSortColumnValidation(t *testing.T) {
	view := &SQLView{
		DB:            openPeople(t, 2),
		SelectCommand: "SELECT id, name FROM people",
		EnableSorting: true,
		Columns:       []string{"id", "name"},
	}
	pipeline, err := datasource.NewPipeline(view)
	require.NoError(t, err)

	_, err = pipeline.Select(context.Background(), datasource.NewSelectArguments("city", 0, 0))
	var sortErr *datasource.SortExpressionError
	require.ErrorAs(t, err, &sortErr)
	assert.Contains(t, sortErr.Reason, "city")
}

func TestBuildSelectPlaceholders(t *testing.T) {
	view := &SQLView{
		SelectCommand: "SELECT * FROM orders WHERE tenant = $1",
		SelectArgs:    []any{"acme"},
		Dialect:       DialectDollar,
		EnablePaging:  true,
		EnableSorting: true,
	}
	args := datasource.NewSelectArguments("created_at DESC, id", 20, 10)
	query, params, err := view.buildSelect(args)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders WHERE tenant = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3", query)
	assert.Equal(t, []any{"acme", 10, 20}, params)

	view.Dialect = DialectQuestion
	view.EnableSorting = false
	query, _, err = view.buildSelect(datasource.NewSelectArguments("", 0, 5))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders WHERE tenant = $1 LIMIT ? OFFSET ?", query)
}

func TestFetchRequiresConfiguration(t *testing.T) {
	pipeline, err := datasource.NewPipeline(&SQLView{})
	require.NoError(t, err)
	_, err = pipeline.Select(context.Background(), nil)
	var cfgErr *datasource.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestOpenSQLiteMemory(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (v NUMERIC)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t (v) VALUES (1)`)
	require.NoError(t, err)

	view := &SQLView{DB: db, SelectCommand: "SELECT v FROM t"}
	count, err := view.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
