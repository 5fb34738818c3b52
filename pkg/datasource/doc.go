// Package datasource turns an abstract provider into rows for a bound control.
//
// A Pipeline negotiates capabilities (Sort, Page, RetrieveTotalRowCount) with
// its Provider, validates the request before the provider is touched, consults
// an optional Cache, raises cancelable Selecting notifications, executes the
// fetch, queries the total row count and normalizes whatever the provider
// returned (a TableView, a Table, a Stream, a slice or a single value) into a
// Result.
//
//	pipeline, err := datasource.NewPipeline(view, datasource.WithCache(cache))
//	if err != nil {
//		return err
//	}
//	args := datasource.NewSelectArguments("Name DESC", 0, 10)
//	args.RetrieveTotalRowCount = true
//	result, err := pipeline.Select(ctx, args)
package datasource
