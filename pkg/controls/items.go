package controls

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/goliatone/go-viewstate/pkg/datasource"
)

// ErrNoPipeline is returned by DataBind when no pipeline is given.
var ErrNoPipeline = errors.New("controls: data bind requires a pipeline")

// ItemType tells templated controls which template and style an item uses.
type ItemType int

const (
	ItemTypeItem ItemType = iota
	ItemTypeAlternatingItem
	ItemTypeSelectedItem
	ItemTypeEditItem
)

func (t ItemType) String() string {
	switch t {
	case ItemTypeAlternatingItem:
		return "AlternatingItem"
	case ItemTypeSelectedItem:
		return "SelectedItem"
	case ItemTypeEditItem:
		return "EditItem"
	default:
		return "Item"
	}
}

// Item is one bound row of a DataGrid, DataList or Repeater. DataItem is nil
// for items recreated from saved state.
type Item struct {
	Index        int
	DataSetIndex int
	Type         ItemType
	DataItem     any
}

// itemType picks the type of the item at index; edit wins over selected.
func itemType(index, selectedIndex, editIndex int) ItemType {
	switch {
	case index == editIndex:
		return ItemTypeEditItem
	case index == selectedIndex:
		return ItemTypeSelectedItem
	case index%2 == 1:
		return ItemTypeAlternatingItem
	default:
		return ItemTypeItem
	}
}

// selectItems runs one select and materializes the rows. A canceled select
// yields no items and a nil result.
func selectItems(ctx context.Context, p *datasource.Pipeline, args *datasource.SelectArguments) ([]any, *datasource.Result, error) {
	if p == nil {
		return nil, nil, ErrNoPipeline
	}
	result, err := p.Select(ctx, args)
	if err != nil || result == nil {
		return nil, result, err
	}
	items, err := result.All()
	if err != nil {
		return nil, nil, err
	}
	return items, result, nil
}

// parseItemIndex decodes a command argument naming an item index.
func parseItemIndex(command, arg string, count int) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return 0, &CommandError{Command: command, Argument: arg, Err: err}
	}
	if index < 0 || index >= count {
		return 0, &CommandError{Command: command, Argument: arg, Reason: "item index out of range"}
	}
	return index, nil
}

// applyItemCommand stores the index an item command settled on. Callbacks may
// rewrite the index, so it is checked again here.
func (s *controlState) applyItemCommand(command, arg string, index, count int) error {
	key := "EditItemIndex"
	switch command {
	case CommandSelect:
		key = "SelectedIndex"
	case CommandCancel:
		index = -1
	}
	if index >= count {
		return &CommandError{Command: command, Argument: arg, Reason: fmt.Sprintf("item index %d out of range, %d items", index, count)}
	}
	if err := s.setIndex(key, index); err != nil {
		return &CommandError{Command: command, Argument: arg, Err: err}
	}
	return nil
}
