package controls

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/datasource"
)

// Command names understood by DataGrid.HandleCommand and
// DataList.HandleCommand.
const (
	CommandPage   = "Page"
	CommandSort   = "Sort"
	CommandSelect = "Select"
	CommandEdit   = "Edit"
	CommandCancel = "Cancel"
)

// Page command arguments besides a 1-based page number.
const (
	PageNext = "Next"
	PagePrev = "Prev"
)

// Item style slots shared by DataGrid and DataList, in slot order.
const (
	StyleItem            = "ItemStyle"
	StyleAlternatingItem = "AlternatingItemStyle"
	StyleSelectedItem    = "SelectedItemStyle"
	StyleEditItem        = "EditItemStyle"
	StyleHeader          = "HeaderStyle"
	StyleFooter          = "FooterStyle"
	StylePager           = "PagerStyle"
	StyleSeparator       = "SeparatorStyle"
)

var dataGridStyles = []string{
	StyleItem, StyleAlternatingItem, StyleSelectedItem, StyleEditItem,
	StyleHeader, StyleFooter, StylePager,
}

// PageChangedEvent is raised by the Page command. Cancel keeps the current
// page.
type PageChangedEvent struct {
	NewPageIndex int
	Cancel       bool
}

// SortCommandEvent is raised by the Sort command. Cancel keeps the current
// sort expression.
type SortCommandEvent struct {
	SortExpression string
	Cancel         bool
}

// ItemCommandEvent is raised by the Select, Edit and Cancel commands.
type ItemCommandEvent struct {
	CommandName string
	ItemIndex   int
	Cancel      bool
}

// DataGrid is a paged, sortable and selectable list of rows. Persisted
// state covers the settings, the data keys and the item counts needed to
// rebuild items on postback without rebinding.
type DataGrid struct {
	controlState

	items        []Item
	needsBinding bool

	ItemDataBound        func(*Item)
	PageIndexChanged     func(*PageChangedEvent)
	SortCommand          func(*SortCommandEvent)
	SelectedIndexChanged func(*ItemCommandEvent)
	EditCommand          func(*ItemCommandEvent)
	CancelCommand        func(*ItemCommandEvent)
}

// NewDataGrid returns a grid with PageSize 10 and nothing selected.
func NewDataGrid(opts ...viewstate.Option) *DataGrid {
	return &DataGrid{controlState: newControlState("datagrid", opts, dataGridStyles...)}
}

func (g *DataGrid) AllowPaging() bool           { return g.boolValue("AllowPaging", false) }
func (g *DataGrid) SetAllowPaging(v bool)       { g.bag.Set("AllowPaging", v) }
func (g *DataGrid) AllowCustomPaging() bool     { return g.boolValue("AllowCustomPaging", false) }
func (g *DataGrid) SetAllowCustomPaging(v bool) { g.bag.Set("AllowCustomPaging", v) }
func (g *DataGrid) AllowSorting() bool          { return g.boolValue("AllowSorting", false) }
func (g *DataGrid) SetAllowSorting(v bool)      { g.bag.Set("AllowSorting", v) }

func (g *DataGrid) PageSize() int { return g.intValue("PageSize", DefaultPageSize) }

func (g *DataGrid) SetPageSize(v int) error {
	if v < 1 {
		return fmt.Errorf("controls: PageSize must be >= 1, got %d", v)
	}
	g.bag.Set("PageSize", v)
	return nil
}

func (g *DataGrid) CurrentPageIndex() int { return g.intValue("CurrentPageIndex", 0) }

func (g *DataGrid) SetCurrentPageIndex(v int) error {
	return g.setNonNegative("CurrentPageIndex", v)
}

func (g *DataGrid) VirtualItemCount() int { return g.intValue("VirtualItemCount", 0) }

func (g *DataGrid) SetVirtualItemCount(v int) error {
	return g.setNonNegative("VirtualItemCount", v)
}

func (g *DataGrid) DataKeyField() string     { return g.stringValue("DataKeyField") }
func (g *DataGrid) SetDataKeyField(v string) { g.bag.Set("DataKeyField", v) }

func (g *DataGrid) SortExpression() string     { return g.stringValue("SortExpression") }
func (g *DataGrid) SetSortExpression(v string) { g.bag.Set("SortExpression", v) }

func (g *DataGrid) SelectedIndex() int           { return g.intValue("SelectedIndex", -1) }
func (g *DataGrid) SetSelectedIndex(v int) error { return g.setIndex("SelectedIndex", v) }
func (g *DataGrid) EditItemIndex() int           { return g.intValue("EditItemIndex", -1) }
func (g *DataGrid) SetEditItemIndex(v int) error { return g.setIndex("EditItemIndex", v) }

// DataKeys are the DataKeyField values of the bound page, kept across
// postbacks.
func (g *DataGrid) DataKeys() []any {
	return slices.Clone(viewstate.Value[[]any](g.bag, "DataKeys", nil))
}

// SelectedDataKey is the data key of the selected item, or nil.
func (g *DataGrid) SelectedDataKey() any {
	keys := viewstate.Value[[]any](g.bag, "DataKeys", nil)
	if i := g.SelectedIndex(); i >= 0 && i < len(keys) {
		return keys[i]
	}
	return nil
}

// ItemCount is the number of items on the bound page.
func (g *DataGrid) ItemCount() int { return g.intValue("ItemCount", 0) }

// PageCount is the page count of the last bind.
func (g *DataGrid) PageCount() int { return g.intValue("PageCount", 0) }

// DataSourceItemCount is the total item count of the last bind.
func (g *DataGrid) DataSourceItemCount() int { return g.intValue("DataSourceItemCount", 0) }

// Items returns the items of the last bind or RecreateItems.
func (g *DataGrid) Items() []Item { return slices.Clone(g.items) }

// RequiresDataBinding reports whether a command changed the page or sort
// since the last bind.
func (g *DataGrid) RequiresDataBinding() bool { return g.needsBinding }

func (g *DataGrid) ItemStyle() *Style            { return g.Style(StyleItem) }
func (g *DataGrid) AlternatingItemStyle() *Style { return g.Style(StyleAlternatingItem) }
func (g *DataGrid) SelectedItemStyle() *Style    { return g.Style(StyleSelectedItem) }
func (g *DataGrid) EditItemStyle() *Style        { return g.Style(StyleEditItem) }
func (g *DataGrid) HeaderStyle() *Style          { return g.Style(StyleHeader) }
func (g *DataGrid) FooterStyle() *Style          { return g.Style(StyleFooter) }
func (g *DataGrid) PagerStyle() *Style           { return g.Style(StylePager) }

// serverPaging reports whether the provider can deliver one page and the
// total row count itself.
func (g *DataGrid) serverPaging(p *datasource.Pipeline) bool {
	if !g.AllowPaging() || g.AllowCustomPaging() {
		return false
	}
	caps := datasource.DeclareSupported(p.Provider())
	return caps.Has(datasource.CapabilityPage) && caps.Has(datasource.CapabilityRetrieveTotalRowCount)
}

// DataBind selects through p and builds the items of the current page. A
// provider that declares paging and a row count is asked for the page only;
// otherwise every row is fetched and paged in memory.
func (g *DataGrid) DataBind(ctx context.Context, p *datasource.Pipeline) error {
	if p == nil {
		return ErrNoPipeline
	}
	server := g.serverPaging(p)
	args := datasource.NewSelectArguments(g.SortExpression(), 0, 0)
	if server {
		args.StartRowIndex = g.CurrentPageIndex() * g.PageSize()
		args.MaximumRows = g.PageSize()
		args.RetrieveTotalRowCount = true
	}
	rows, result, err := selectItems(ctx, p, args)
	if err != nil {
		return err
	}

	paged := &PagedDataSource{
		DataSource:        rows,
		AllowPaging:       g.AllowPaging(),
		AllowCustomPaging: g.AllowCustomPaging(),
		AllowServerPaging: server,
		PageSize:          g.PageSize(),
		CurrentPageIndex:  g.CurrentPageIndex(),
		VirtualCount:      g.VirtualItemCount(),
	}
	if server && result != nil && result.TotalRowCount >= 0 {
		paged.VirtualCount = result.TotalRowCount
	}
	pageCount := paged.PageCount()
	if paged.IsPagingEnabled() && paged.CurrentPageIndex > 0 && paged.CurrentPageIndex >= pageCount {
		return &PageIndexError{Index: paged.CurrentPageIndex, PageCount: pageCount}
	}

	page := paged.Items()
	keys, err := dataKeys(page, g.DataKeyField())
	if err != nil {
		return err
	}
	g.items = make([]Item, len(page))
	for i, row := range page {
		g.items[i] = Item{
			Index:        i,
			DataSetIndex: paged.DataSetIndex(i),
			Type:         itemType(i, g.SelectedIndex(), g.EditItemIndex()),
			DataItem:     row,
		}
		if g.ItemDataBound != nil {
			g.ItemDataBound(&g.items[i])
		}
	}
	if keys != nil {
		g.bag.Set("DataKeys", keys)
	} else {
		g.bag.Remove("DataKeys")
	}
	g.bag.Set("ItemCount", len(page))
	g.bag.Set("PageCount", pageCount)
	g.bag.Set("DataSourceItemCount", paged.DataSourceCount())
	g.needsBinding = false
	return nil
}

// RecreateItems rebuilds the items from the saved ItemCount after LoadState,
// without touching the data source. Recreated items carry no DataItem.
func (g *DataGrid) RecreateItems() []Item {
	g.items = recreate(g.ItemCount(), g.CurrentPageIndex()*g.PageSize(), g.AllowPaging(), g.SelectedIndex(), g.EditItemIndex())
	return g.Items()
}

func recreate(count, offset int, paged bool, selected, edit int) []Item {
	items := make([]Item, count)
	for i := range items {
		dataSetIndex := i
		if paged {
			dataSetIndex += offset
		}
		items[i] = Item{Index: i, DataSetIndex: dataSetIndex, Type: itemType(i, selected, edit)}
	}
	return items
}

// HandleCommand runs a bubbled item or pager command. The callback for the
// command sees the event first; the default action is skipped when it sets
// Cancel.
func (g *DataGrid) HandleCommand(name, arg string) error {
	switch name {
	case CommandPage:
		if !g.AllowPaging() {
			return &CommandError{Command: name, Argument: arg, Reason: "paging is disabled"}
		}
		next, err := nextPageIndex(arg, g.CurrentPageIndex(), g.PageCount())
		if err != nil {
			return &CommandError{Command: name, Argument: arg, Err: err}
		}
		event := &PageChangedEvent{NewPageIndex: next}
		if g.PageIndexChanged != nil {
			g.PageIndexChanged(event)
		}
		if event.Cancel {
			return nil
		}
		if err := g.SetCurrentPageIndex(event.NewPageIndex); err != nil {
			return err
		}
		g.needsBinding = true
		return nil

	case CommandSort:
		if !g.AllowSorting() {
			return &CommandError{Command: name, Argument: arg, Reason: "sorting is disabled"}
		}
		event := &SortCommandEvent{SortExpression: arg}
		if g.SortCommand != nil {
			g.SortCommand(event)
		}
		if event.Cancel {
			return nil
		}
		g.SetSortExpression(event.SortExpression)
		g.needsBinding = true
		return nil

	case CommandSelect, CommandEdit, CommandCancel:
		index, err := parseItemIndex(name, arg, g.ItemCount())
		if err != nil {
			return err
		}
		event := &ItemCommandEvent{CommandName: name, ItemIndex: index}
		var callback func(*ItemCommandEvent)
		switch name {
		case CommandSelect:
			callback = g.SelectedIndexChanged
		case CommandEdit:
			callback = g.EditCommand
		default:
			callback = g.CancelCommand
		}
		if callback != nil {
			callback(event)
		}
		if event.Cancel {
			return nil
		}
		if err := g.applyItemCommand(name, arg, event.ItemIndex, g.ItemCount()); err != nil {
			return err
		}
		g.applyItemTypes()
		return nil
	}
	return &CommandError{Command: name, Argument: arg, Reason: "unknown command"}
}

func (g *DataGrid) applyItemTypes() {
	for i := range g.items {
		g.items[i].Type = itemType(i, g.SelectedIndex(), g.EditItemIndex())
	}
}

// nextPageIndex decodes Next, Prev or a 1-based page number.
func nextPageIndex(arg string, current, pageCount int) (int, error) {
	switch arg {
	case PageNext:
		if current+1 >= pageCount {
			return current, nil
		}
		return current + 1, nil
	case PagePrev:
		if current == 0 {
			return 0, nil
		}
		return current - 1, nil
	}
	page, err := strconv.Atoi(arg)
	if err != nil {
		return 0, err
	}
	if page < 1 || (pageCount > 0 && page > pageCount) {
		return 0, fmt.Errorf("page %d outside 1..%d", page, pageCount)
	}
	return page - 1, nil
}
