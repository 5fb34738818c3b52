package controls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleMergeWithKeepsOwnFields(t *testing.T) {
	item := NewStyle(StyleItem)
	item.Update(func(s *StyleSettings) {
		s.ForeColor = Str("navy")
	})
	base := NewStyle("base")
	base.Update(func(s *StyleSettings) {
		s.ForeColor = Str("black")
		s.FontBold = Bool(true)
	})

	item.MergeWith(base)

	got := item.Settings()
	require.NotNil(t, got.ForeColor)
	assert.Equal(t, "navy", *got.ForeColor)
	require.NotNil(t, got.FontBold)
	assert.True(t, *got.FontBold)
	assert.Nil(t, got.CssClass)
}

func TestStyleSavesOnlyChangedFields(t *testing.T) {
	style := NewStyle(StyleHeader)
	style.Update(func(s *StyleSettings) { s.CssClass = Str("hdr") })
	style.TrackState()
	style.Update(func(s *StyleSettings) { s.Width = Str("100px") })

	restored := NewStyle(StyleHeader)
	snap := roundTrip(t, style, restored)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "Width", snap.Entries[0].Key)

	got := restored.Settings()
	require.NotNil(t, got.Width)
	assert.Equal(t, "100px", *got.Width)
	assert.Nil(t, got.CssClass)
}

func TestMergedLayersStrongestFirst(t *testing.T) {
	selected := NewStyle(StyleSelectedItem)
	selected.Update(func(s *StyleSettings) { s.BackColor = Str("yellow") })
	item := NewStyle(StyleItem)
	item.Update(func(s *StyleSettings) {
		s.BackColor = Str("white")
		s.FontItalic = Bool(true)
	})

	got := Merged(selected, nil, item)
	assert.Equal(t, "yellow", *got.BackColor)
	assert.True(t, *got.FontItalic)
}
