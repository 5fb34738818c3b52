package controls

import (
	"context"
	"slices"

	"github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/datasource"
)

// Repeater binds items without layout or styles. Only the item count is
// persisted, so a postback rebuilds the same number of items through
// RecreateItems.
type Repeater struct {
	controlState

	items []Item

	ItemCreated   func(*Item)
	ItemDataBound func(*Item)
}

func NewRepeater(opts ...viewstate.Option) *Repeater {
	return &Repeater{controlState: newControlState("repeater", opts)}
}

func (r *Repeater) ItemCount() int { return r.intValue("ItemCount", 0) }
func (r *Repeater) Items() []Item  { return slices.Clone(r.items) }

// DataBind selects every row through p and creates one item per row.
func (r *Repeater) DataBind(ctx context.Context, p *datasource.Pipeline) error {
	rows, _, err := selectItems(ctx, p, datasource.EmptyArguments())
	if err != nil {
		return err
	}
	r.items = make([]Item, len(rows))
	for i, row := range rows {
		r.items[i] = Item{Index: i, DataSetIndex: i, Type: itemType(i, -1, -1), DataItem: row}
		if r.ItemCreated != nil {
			r.ItemCreated(&r.items[i])
		}
		if r.ItemDataBound != nil {
			r.ItemDataBound(&r.items[i])
		}
	}
	r.bag.Set("ItemCount", len(rows))
	return nil
}

// RecreateItems rebuilds items from the saved count. ItemDataBound is not
// raised.
func (r *Repeater) RecreateItems() []Item {
	r.items = recreate(r.ItemCount(), 0, false, -1, -1)
	if r.ItemCreated != nil {
		for i := range r.items {
			r.ItemCreated(&r.items[i])
		}
	}
	return r.Items()
}
