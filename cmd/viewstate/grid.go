package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/controls"
	"github.com/goliatone/go-viewstate/pkg/sqlsource"
	"github.com/goliatone/go-viewstate/pkg/state"
)

type gridOptions struct {
	ref      refFlags
	db       dbFlags
	sel      string
	count    string
	key      string
	pageSize int
	commands []string
}

type gridOutput struct {
	Page         string `json:"page"`
	Bound        bool   `json:"bound"`
	PageIndex    int    `json:"page_index"`
	PageCount    int    `json:"page_count"`
	TotalRows    int    `json:"total_rows"`
	Sort         string `json:"sort,omitempty"`
	SelectedKey  any    `json:"selected_key,omitempty"`
	Keys         []any  `json:"keys,omitempty"`
	Rows         []any  `json:"rows,omitempty"`
	ETag         string `json:"etag"`
	PreviousETag string `json:"previous_etag,omitempty"`
}

func newGridCmd(a *app) *cobra.Command {
	opts := &gridOptions{}
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Drive a persisted paging grid over a SQL select",
		Long: `Grid restores a data grid from stored page state, applies the given
commands, rebinds when a command requires it and stores the new state.
Each run behaves like one request of the page named by --page.

Example:
  viewstate grid --page products --state-db state.db --dsn shop.db \
    --select "SELECT id, name FROM products" --count "SELECT COUNT(*) FROM products" \
    --key id --command Page:Next --command Sort:name`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGrid(cmd, opts)
		},
	}
	opts.ref.bind(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.db.driver, "driver", "sqlite", "database driver: sqlite or postgres")
	f.StringVar(&opts.db.dsn, "dsn", "", "database path or connection string")
	f.StringVar(&opts.sel, "select", "", "select statement")
	f.StringVar(&opts.count, "count", "", "count statement; enables server paging")
	f.StringVar(&opts.key, "key", "", "data key field")
	f.IntVar(&opts.pageSize, "page-size", 0, "rows per page (default: paging.page_size)")
	f.StringArrayVar(&opts.commands, "command", nil, "grid command Name:Argument (repeatable)")
	_ = cmd.MarkFlagRequired("dsn")
	_ = cmd.MarkFlagRequired("select")
	return cmd
}

func (a *app) runGrid(cmd *cobra.Command, opts *gridOptions) error {
	ctx := cmd.Context()
	store, closeStore, err := a.openStore(&opts.ref)
	if err != nil {
		return err
	}
	defer closeStore()

	db, dialect, err := opts.db.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := a.stdLogger(cmd.ErrOrStderr())
	grid := controls.NewDataGrid(viewstate.WithName(opts.ref.page), viewstate.WithLogger(stateLogger(logger)))
	pageSize := opts.pageSize
	if pageSize == 0 {
		pageSize = a.cfg.Paging.PageSize
	}
	grid.SetAllowPaging(true)
	grid.SetAllowSorting(true)
	grid.SetDataKeyField(opts.key)
	if err := grid.SetPageSize(pageSize); err != nil {
		return err
	}
	grid.TrackState()

	persister := state.NewPersister(store, a.codec(cmd.ErrOrStderr()))
	ref := opts.ref.ref()
	restored, meta, err := persister.Load(ctx, ref, grid)
	if err != nil {
		return err
	}
	if restored {
		grid.RecreateItems()
	}
	for _, raw := range opts.commands {
		name, arg, _ := strings.Cut(raw, ":")
		if err := grid.HandleCommand(name, arg); err != nil {
			return err
		}
	}

	out := gridOutput{Page: ref.Page, PreviousETag: meta.ETag}
	if !restored || grid.RequiresDataBinding() {
		view := &sqlsource.SQLView{
			ViewName:      ref.Page,
			DB:            db,
			Dialect:       dialect,
			SelectCommand: opts.sel,
			CountCommand:  opts.count,
			EnableSorting: true,
			EnablePaging:  true,
		}
		p, err := a.pipeline(view, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := grid.DataBind(ctx, p); err != nil {
			return err
		}
		out.Bound = true
		for _, item := range grid.Items() {
			out.Rows = append(out.Rows, item.DataItem)
		}
	}

	saved, err := persister.Save(ctx, ref, grid, meta)
	if err != nil {
		return fmt.Errorf("save grid state: %w", err)
	}
	out.PageIndex = grid.CurrentPageIndex()
	out.PageCount = grid.PageCount()
	out.TotalRows = grid.DataSourceItemCount()
	out.Sort = grid.SortExpression()
	out.SelectedKey = grid.SelectedDataKey()
	out.Keys = grid.DataKeys()
	out.ETag = saved.ETag
	return writeJSON(cmd.OutOrStdout(), out)
}
