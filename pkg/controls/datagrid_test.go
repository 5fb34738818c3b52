package controls

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-viewstate/pkg/datasource"
)

func TestDataGridPagesInMemory(t *testing.T) {
	provider := &rowsProvider{rows: products(25)}
	grid := NewDataGrid()
	grid.SetAllowPaging(true)
	grid.SetDataKeyField("ID")
	require.NoError(t, grid.SetCurrentPageIndex(1))

	require.NoError(t, grid.DataBind(context.Background(), pipeline(t, provider)))

	assert.Equal(t, 0, provider.lastArgs.MaximumRows, "the provider cannot page, so every row is fetched")
	items := grid.Items()
	require.Len(t, items, 10)
	assert.Equal(t, 11, items[0].DataItem.(product).ID)
	assert.Equal(t, 10, items[0].DataSetIndex)
	assert.Equal(t, ItemTypeAlternatingItem, items[1].Type)
	assert.Equal(t, 3, grid.PageCount())
	assert.Equal(t, 25, grid.DataSourceItemCount())
	assert.Equal(t, []any{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, grid.DataKeys())
}

func TestDataGridNegotiatesServerPaging(t *testing.T) {
	provider := &rowsProvider{
		rows:  products(25),
		caps:  datasource.Capabilities(datasource.CapabilityPage, datasource.CapabilityRetrieveTotalRowCount),
		count: true,
	}
	grid := NewDataGrid()
	grid.SetAllowPaging(true)
	require.NoError(t, grid.SetCurrentPageIndex(2))

	require.NoError(t, grid.DataBind(context.Background(), pipeline(t, provider)))

	assert.Equal(t, 20, provider.lastArgs.StartRowIndex)
	assert.Equal(t, 10, provider.lastArgs.MaximumRows)
	assert.True(t, provider.lastArgs.RetrieveTotalRowCount)
	require.Len(t, grid.Items(), 5)
	assert.Equal(t, 21, grid.Items()[0].DataItem.(product).ID)
	assert.Equal(t, 3, grid.PageCount())
	assert.Equal(t, 25, grid.DataSourceItemCount())
}

func TestDataGridCustomPagingUsesVirtualCount(t *testing.T) {
	provider := &rowsProvider{rows: products(10)}
	grid := NewDataGrid()
	grid.SetAllowPaging(true)
	grid.SetAllowCustomPaging(true)
	require.NoError(t, grid.SetVirtualItemCount(42))
	require.NoError(t, grid.SetCurrentPageIndex(4))

	require.NoError(t, grid.DataBind(context.Background(), pipeline(t, provider)))
	assert.Equal(t, 5, grid.PageCount())
	assert.Len(t, grid.Items(), 10)
	assert.Equal(t, 40, grid.Items()[0].DataSetIndex)
}

func TestDataGridRejectsPageIndexPastTheEnd(t *testing.T) {
	grid := NewDataGrid()
	grid.SetAllowPaging(true)
	require.NoError(t, grid.SetCurrentPageIndex(3))

	err := grid.DataBind(context.Background(), pipeline(t, &rowsProvider{rows: products(25)}))
	var pageErr *PageIndexError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 3, pageErr.PageCount)
}

func TestDataGridSortNeedsProviderCapability(t *testing.T) {
	grid := NewDataGrid()
	grid.SetAllowSorting(true)
	require.NoError(t, grid.HandleCommand(CommandSort, "Name"))
	assert.True(t, grid.RequiresDataBinding())

	provider := &rowsProvider{rows: products(3)}
	err := grid.DataBind(context.Background(), pipeline(t, provider))
	var capErr *datasource.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, datasource.CapabilitySort, capErr.Capability)
	assert.Zero(t, provider.fetches)
}

func TestDataGridPageCommand(t *testing.T) {
	grid := NewDataGrid()
	grid.SetAllowPaging(true)
	require.NoError(t, grid.DataBind(context.Background(), pipeline(t, &rowsProvider{rows: products(25)})))

	var seen []int
	grid.PageIndexChanged = func(e *PageChangedEvent) { seen = append(seen, e.NewPageIndex) }

	require.NoError(t, grid.HandleCommand(CommandPage, PageNext))
	assert.Equal(t, 1, grid.CurrentPageIndex())
	require.NoError(t, grid.HandleCommand(CommandPage, "3"))
	assert.Equal(t, 2, grid.CurrentPageIndex())
	require.NoError(t, grid.HandleCommand(CommandPage, PageNext))
	assert.Equal(t, 2, grid.CurrentPageIndex(), "Next stays on the last page")
	require.NoError(t, grid.HandleCommand(CommandPage, PagePrev))
	assert.Equal(t, 1, grid.CurrentPageIndex())
	assert.Equal(t, []int{1, 2, 2, 1}, seen)

	grid.PageIndexChanged = func(e *PageChangedEvent) { e.Cancel = true }
	require.NoError(t, grid.HandleCommand(CommandPage, "1"))
	assert.Equal(t, 1, grid.CurrentPageIndex())

	var cmdErr *CommandError
	require.ErrorAs(t, grid.HandleCommand(CommandPage, "9"), &cmdErr)
	require.ErrorAs(t, grid.HandleCommand("Explode", ""), &cmdErr)
}

func TestDataGridItemCommands(t *testing.T) {
	grid := NewDataGrid()
	grid.SetDataKeyField("ID")
	require.NoError(t, grid.DataBind(context.Background(), pipeline(t, &rowsProvider{rows: products(4)})))

	var selected *ItemCommandEvent
	grid.SelectedIndexChanged = func(e *ItemCommandEvent) { selected = e }
	require.NoError(t, grid.HandleCommand(CommandSelect, "2"))
	require.NotNil(t, selected)
	assert.Equal(t, 2, grid.SelectedIndex())
	assert.Equal(t, 3, grid.SelectedDataKey())
	assert.Equal(t, ItemTypeSelectedItem, grid.Items()[2].Type)

	require.NoError(t, grid.HandleCommand(CommandEdit, "1"))
	assert.Equal(t, 1, grid.EditItemIndex())
	assert.Equal(t, ItemTypeEditItem, grid.Items()[1].Type)

	require.NoError(t, grid.HandleCommand(CommandCancel, "1"))
	assert.Equal(t, -1, grid.EditItemIndex())

	var cmdErr *CommandError
	require.ErrorAs(t, grid.HandleCommand(CommandSelect, "4"), &cmdErr)
}

func TestDataGridRejectsIndexRewrittenByCallback(t *testing.T) {
	grid := NewDataGrid()
	require.NoError(t, grid.DataBind(context.Background(), pipeline(t, &rowsProvider{rows: products(4)})))
	require.NoError(t, grid.HandleCommand(CommandSelect, "1"))

	grid.SelectedIndexChanged = func(e *ItemCommandEvent) { e.ItemIndex = 99 }
	var cmdErr *CommandError
	require.ErrorAs(t, grid.HandleCommand(CommandSelect, "2"), &cmdErr)
	assert.Equal(t, CommandSelect, cmdErr.Command)
	assert.Equal(t, 1, grid.SelectedIndex())

	grid.EditCommand = func(e *ItemCommandEvent) { e.ItemIndex = -5 }
	require.ErrorAs(t, grid.HandleCommand(CommandEdit, "0"), &cmdErr)
	assert.Equal(t, -1, grid.EditItemIndex())
	assert.Equal(t, ItemTypeSelectedItem, grid.Items()[1].Type)
}

func TestDataGridRecreatesItemsFromState(t *testing.T) {
	grid := NewDataGrid()
	grid.TrackState()
	grid.SetAllowPaging(true)
	require.NoError(t, grid.SetPageSize(4))
	grid.SetDataKeyField("ID")
	require.NoError(t, grid.SetCurrentPageIndex(1))
	grid.PagerStyle().Update(func(s *StyleSettings) { s.CssClass = Str("pager") })
	require.NoError(t, grid.DataBind(context.Background(), pipeline(t, &rowsProvider{rows: products(6)})))

	restored := NewDataGrid()
	snap := roundTrip(t, grid, restored)
	require.Len(t, snap.Slots, 7)
	assert.Nil(t, snap.Slots[0])
	assert.NotNil(t, snap.Slots[6])

	items := restored.RecreateItems()
	require.Len(t, items, 2)
	assert.Equal(t, 4, items[0].DataSetIndex)
	assert.Nil(t, items[0].DataItem)
	assert.Equal(t, []any{5, 6}, restored.DataKeys())
	assert.Equal(t, 2, restored.PageCount())
	assert.Equal(t, "pager", *restored.PagerStyle().Settings().CssClass)
}

func TestDataGridNilPipeline(t *testing.T) {
	require.ErrorIs(t, NewDataGrid().DataBind(context.Background(), nil), ErrNoPipeline)
}
