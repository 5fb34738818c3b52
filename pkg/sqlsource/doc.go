// Package sqlsource is a data source over a database/sql connection.
//
// Table mode materializes the result into a datasource.Table so the pipeline
// can filter, cache and page it; reader mode hands out a forward-only stream
// over *sql.Rows. Sorting and paging are pushed into the statement as
// ORDER BY and LIMIT/OFFSET clauses.
package sqlsource
