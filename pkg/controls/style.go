package controls

import (
	"github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/layering"
)

// StyleSettings are the style overrides. A nil field is unset.
type StyleSettings struct {
	CssClass    *string
	ForeColor   *string
	BackColor   *string
	BorderColor *string
	Width       *string
	Height      *string
	FontBold    *bool
	FontItalic  *bool
}

// Style is a named, state-tracked StyleSettings record.
type Style struct {
	name   string
	record *viewstate.Record[StyleSettings]
}

// NewStyle returns an empty style.
func NewStyle(name string, opts ...viewstate.Option) *Style {
	opts = append([]viewstate.Option{viewstate.WithName(name)}, opts...)
	return &Style{name: name, record: viewstate.NewRecord[StyleSettings](opts...)}
}

// Name returns the slot name of the style.
func (s *Style) Name() string { return s.name }

// Settings returns a copy of the current overrides.
func (s *Style) Settings() StyleSettings { return s.record.Get() }

// Update edits the overrides; changed fields become dirty while tracking.
func (s *Style) Update(fn func(*StyleSettings)) { s.record.Update(fn) }

// IsEmpty reports whether no field is set.
func (s *Style) IsEmpty() bool { return s.record.IsEmpty() }

// Reset clears every field.
func (s *Style) Reset() { s.record.Reset() }

// CopyFrom replaces the settings with other's.
func (s *Style) CopyFrom(other *Style) {
	if other == nil || other == s {
		return
	}
	settings := other.Settings()
	s.record.Update(func(v *StyleSettings) { *v = settings })
}

// MergeWith fills the fields unset here from other. Fields already set win.
func (s *Style) MergeWith(other *Style) {
	if other == nil || other == s || other.IsEmpty() {
		return
	}
	fallback := other.Settings()
	s.record.Update(func(v *StyleSettings) {
		*v = layering.Merge(*v, fallback)
	})
}

// Merged layers styles from strongest to weakest.
func Merged(styles ...*Style) StyleSettings {
	layers := make([]StyleSettings, 0, len(styles))
	for _, style := range styles {
		if style != nil {
			layers = append(layers, style.Settings())
		}
	}
	return layering.MergeLayers(layers...)
}

func (s *Style) TrackState()                              { s.record.TrackState() }
func (s *Style) IsTrackingState() bool                    { return s.record.IsTrackingState() }
func (s *Style) SaveState() (*viewstate.Snapshot, error)  { return s.record.SaveState() }
func (s *Style) LoadState(snap *viewstate.Snapshot) error { return s.record.LoadState(snap) }

// Str and Bool build pointer values for StyleSettings literals.
func Str(v string) *string { return &v }

func Bool(v bool) *bool { return &v }
