package controls

import (
	"fmt"

	"github.com/goliatone/go-viewstate"
)

// GridLines selects which cell borders a Table draws.
type GridLines int

const (
	GridLinesNone GridLines = iota
	GridLinesHorizontal
	GridLinesVertical
	GridLinesBoth
)

// HorizontalAlign is the table's horizontal alignment.
type HorizontalAlign int

const (
	AlignNotSet HorizontalAlign = iota
	AlignLeft
	AlignCenter
	AlignRight
	AlignJustify
)

// CaptionAlign positions the table caption.
type CaptionAlign int

const (
	CaptionNotSet CaptionAlign = iota
	CaptionTop
	CaptionBottom
	CaptionLeft
	CaptionRight
)

// StyleControl is the slot of a control's own style.
const StyleControl = "ControlStyle"

// TableCell is one cell of a Table row.
type TableCell struct {
	Text       string
	ColumnSpan int
	RowSpan    int
	Header     bool
}

// TableRow is one Table row.
type TableRow struct {
	Cells []TableCell
}

// Table is a static table. Rows are rebuilt by the page on every request and
// never saved.
type Table struct {
	controlState

	Rows []TableRow
}

func NewTable(opts ...viewstate.Option) *Table {
	return &Table{controlState: newControlState("table", opts, StyleControl)}
}

// AddRow appends a row of text cells.
func (t *Table) AddRow(texts ...string) *TableRow {
	row := TableRow{Cells: make([]TableCell, len(texts))}
	for i, text := range texts {
		row.Cells[i] = TableCell{Text: text}
	}
	t.Rows = append(t.Rows, row)
	return &t.Rows[len(t.Rows)-1]
}

func (t *Table) ControlStyle() *Style { return t.Style(StyleControl) }

func (t *Table) Caption() string     { return t.stringValue("Caption") }
func (t *Table) SetCaption(v string) { t.bag.Set("Caption", v) }

func (t *Table) CaptionAlign() CaptionAlign {
	return CaptionAlign(t.intValue("CaptionAlign", int(CaptionNotSet)))
}

func (t *Table) SetCaptionAlign(v CaptionAlign) error {
	if v < CaptionNotSet || v > CaptionRight {
		return fmt.Errorf("controls: invalid caption align %d", v)
	}
	t.bag.Set("CaptionAlign", int(v))
	return nil
}

// CellPadding and CellSpacing are -1 when unset.
func (t *Table) CellPadding() int           { return t.intValue("CellPadding", -1) }
func (t *Table) SetCellPadding(v int) error { return t.setIndex("CellPadding", v) }
func (t *Table) CellSpacing() int           { return t.intValue("CellSpacing", -1) }
func (t *Table) SetCellSpacing(v int) error { return t.setIndex("CellSpacing", v) }

func (t *Table) GridLines() GridLines { return GridLines(t.intValue("GridLines", int(GridLinesNone))) }

func (t *Table) SetGridLines(v GridLines) error {
	if v < GridLinesNone || v > GridLinesBoth {
		return fmt.Errorf("controls: invalid grid lines %d", v)
	}
	t.bag.Set("GridLines", int(v))
	return nil
}

func (t *Table) HorizontalAlign() HorizontalAlign {
	return HorizontalAlign(t.intValue("HorizontalAlign", int(AlignNotSet)))
}

func (t *Table) SetHorizontalAlign(v HorizontalAlign) error {
	if v < AlignNotSet || v > AlignJustify {
		return fmt.Errorf("controls: invalid horizontal align %d", v)
	}
	t.bag.Set("HorizontalAlign", int(v))
	return nil
}
