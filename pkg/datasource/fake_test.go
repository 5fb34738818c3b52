package datasource

import (
	"context"
	"fmt"
)

type fakeProvider struct {
	name   string
	caps   CapabilitySet
	filter string
	params map[string]any
	fetch  func(ctx context.Context, req *Request) (any, error)
	count  func(ctx context.Context, req *Request) (int, error)

	fetches  int
	counts   int
	finishes int
}

func (f *fakeProvider) Name() string                { return f.name }
func (f *fakeProvider) Capabilities() CapabilitySet { return f.caps }

func (f *fakeProvider) Fetch(ctx context.Context, req *Request) (any, error) {
	f.fetches++
	if f.fetch == nil {
		return nil, nil
	}
	return f.fetch(ctx, req)
}

func (f *fakeProvider) CanCount() bool { return f.count != nil }

func (f *fakeProvider) Count(ctx context.Context, req *Request) (int, error) {
	f.counts++
	return f.count(ctx, req)
}

func (f *fakeProvider) Filter() string { return f.filter }

func (f *fakeProvider) FilterValues(context.Context) (map[string]any, error) {
	return f.params, nil
}

func (f *fakeProvider) Finish(context.Context, *Request) { f.finishes++ }

func numberedRows(n int) []any {
	rows := make([]any, n)
	for i := range rows {
		rows[i] = fmt.Sprintf("row-%02d", i)
	}
	return rows
}

func window(rows []any, args *SelectArguments) []any {
	start := args.StartRowIndex
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if args.MaximumRows > 0 && start+args.MaximumRows < end {
		end = start + args.MaximumRows
	}
	return rows[start:end]
}

func peopleTable() *Table {
	table := NewTable("people", "name", "age", "city")
	table.AddRow("carol", 41, "Oslo")
	table.AddRow("alice", 30, "Lima")
	table.AddRow("bob", 30, "Oslo")
	table.AddRow("dave", nil, "Rome")
	return table
}
