package controls

import (
	"context"
	"fmt"
	"slices"

	"github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/datasource"
)

// RepeatDirection is the fill order of DataList.Layout.
type RepeatDirection int

const (
	RepeatVertical RepeatDirection = iota
	RepeatHorizontal
)

var dataListStyles = []string{
	StyleItem, StyleAlternatingItem, StyleSelectedItem, StyleEditItem,
	StyleHeader, StyleFooter, StyleSeparator,
}

// DataList repeats items in a grid of RepeatColumns columns.
type DataList struct {
	controlState

	items []Item

	ItemDataBound        func(*Item)
	SelectedIndexChanged func(*ItemCommandEvent)
	EditCommand          func(*ItemCommandEvent)
	CancelCommand        func(*ItemCommandEvent)
}

// NewDataList returns a single-column vertical list.
func NewDataList(opts ...viewstate.Option) *DataList {
	return &DataList{controlState: newControlState("datalist", opts, dataListStyles...)}
}

func (l *DataList) RepeatColumns() int { return l.intValue("RepeatColumns", 0) }

func (l *DataList) SetRepeatColumns(v int) error {
	return l.setNonNegative("RepeatColumns", v)
}

func (l *DataList) RepeatDirection() RepeatDirection {
	return RepeatDirection(l.intValue("RepeatDirection", int(RepeatVertical)))
}

func (l *DataList) SetRepeatDirection(v RepeatDirection) error {
	if v != RepeatVertical && v != RepeatHorizontal {
		return fmt.Errorf("controls: invalid repeat direction %d", v)
	}
	l.bag.Set("RepeatDirection", int(v))
	return nil
}

func (l *DataList) SelectedIndex() int           { return l.intValue("SelectedIndex", -1) }
func (l *DataList) SetSelectedIndex(v int) error { return l.setIndex("SelectedIndex", v) }
func (l *DataList) EditItemIndex() int           { return l.intValue("EditItemIndex", -1) }
func (l *DataList) SetEditItemIndex(v int) error { return l.setIndex("EditItemIndex", v) }
func (l *DataList) DataKeyField() string         { return l.stringValue("DataKeyField") }
func (l *DataList) SetDataKeyField(v string)     { l.bag.Set("DataKeyField", v) }

func (l *DataList) DataKeys() []any {
	return slices.Clone(viewstate.Value[[]any](l.bag, "DataKeys", nil))
}

func (l *DataList) ItemCount() int { return l.intValue("ItemCount", 0) }
func (l *DataList) Items() []Item  { return slices.Clone(l.items) }

func (l *DataList) ItemStyle() *Style            { return l.Style(StyleItem) }
func (l *DataList) AlternatingItemStyle() *Style { return l.Style(StyleAlternatingItem) }
func (l *DataList) SelectedItemStyle() *Style    { return l.Style(StyleSelectedItem) }
func (l *DataList) EditItemStyle() *Style        { return l.Style(StyleEditItem) }
func (l *DataList) HeaderStyle() *Style          { return l.Style(StyleHeader) }
func (l *DataList) FooterStyle() *Style          { return l.Style(StyleFooter) }
func (l *DataList) SeparatorStyle() *Style       { return l.Style(StyleSeparator) }

// DataBind selects every row through p.
func (l *DataList) DataBind(ctx context.Context, p *datasource.Pipeline) error {
	rows, _, err := selectItems(ctx, p, datasource.EmptyArguments())
	if err != nil {
		return err
	}
	keys, err := dataKeys(rows, l.DataKeyField())
	if err != nil {
		return err
	}
	l.items = make([]Item, len(rows))
	for i, row := range rows {
		l.items[i] = Item{Index: i, DataSetIndex: i, Type: itemType(i, l.SelectedIndex(), l.EditItemIndex()), DataItem: row}
		if l.ItemDataBound != nil {
			l.ItemDataBound(&l.items[i])
		}
	}
	if keys != nil {
		l.bag.Set("DataKeys", keys)
	}
	l.bag.Set("ItemCount", len(rows))
	return nil
}

// RecreateItems rebuilds items from the saved ItemCount.
func (l *DataList) RecreateItems() []Item {
	l.items = recreate(l.ItemCount(), 0, false, l.SelectedIndex(), l.EditItemIndex())
	return l.Items()
}

// HandleCommand runs Select, Edit or Cancel for the item index in arg.
func (l *DataList) HandleCommand(name, arg string) error {
	var callback func(*ItemCommandEvent)
	switch name {
	case CommandSelect:
		callback = l.SelectedIndexChanged
	case CommandEdit:
		callback = l.EditCommand
	case CommandCancel:
		callback = l.CancelCommand
	default:
		return &CommandError{Command: name, Argument: arg, Reason: "unknown command"}
	}
	index, err := parseItemIndex(name, arg, l.ItemCount())
	if err != nil {
		return err
	}
	event := &ItemCommandEvent{CommandName: name, ItemIndex: index}
	if callback != nil {
		callback(event)
	}
	if event.Cancel {
		return nil
	}
	if err := l.applyItemCommand(name, arg, event.ItemIndex, l.ItemCount()); err != nil {
		return err
	}
	for i := range l.items {
		l.items[i].Type = itemType(i, l.SelectedIndex(), l.EditItemIndex())
	}
	return nil
}

// Layout places item indexes in rows; unused cells hold -1. Zero
// RepeatColumns gives one column when vertical and one row when horizontal.
// Vertical layouts fill column by column, the leading columns taking the
// extra items.
func (l *DataList) Layout() [][]int {
	return repeatLayout(l.ItemCount(), l.RepeatColumns(), l.RepeatDirection())
}

func repeatLayout(count, columns int, direction RepeatDirection) [][]int {
	if count == 0 {
		return nil
	}
	if columns <= 0 {
		if direction == RepeatHorizontal {
			columns = count
		} else {
			columns = 1
		}
	}
	columns = min(columns, count)
	rows := (count + columns - 1) / columns
	grid := make([][]int, rows)
	for r := range grid {
		grid[r] = slices.Repeat([]int{-1}, columns)
	}
	if direction == RepeatHorizontal {
		for i := 0; i < count; i++ {
			grid[i/columns][i%columns] = i
		}
		return grid
	}
	full := count % columns
	index := 0
	for col := 0; col < columns; col++ {
		height := rows
		if full != 0 && col >= full {
			height = rows - 1
		}
		for r := 0; r < height; r++ {
			grid[r][col] = index
			index++
		}
	}
	return grid
}
