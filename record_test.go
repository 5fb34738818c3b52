package viewstate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fontSettings struct {
	Name   *string
	Size   *int
	Bold   *bool
	Family []string
	hidden int
	Static int
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestRecordSavesOnlyChangedFields(t *testing.T) {
	rec := NewRecord[fontSettings]()
	rec.Update(func(f *fontSettings) { f.Name = strPtr("Verdana") })
	rec.TrackState()
	rec.Update(func(f *fontSettings) {
		f.Size = intPtr(12)
		f.Name = strPtr("Verdana")
	})

	snap, err := rec.SaveState()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	want := &Snapshot{Entries: []Entry{{Key: "Size", Value: 12}}}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordRoundTripThroughCodec(t *testing.T) {
	rec := NewRecord[fontSettings]()
	rec.TrackState()
	rec.Update(func(f *fontSettings) {
		f.Bold = boolPtr(false)
		f.Family = []string{"Verdana", "sans-serif"}
	})
	snap, err := rec.SaveState()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	codec := NewCodec()
	blob, err := codec.Encode(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := codec.Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	restored := NewRecord[fontSettings]()
	if err := restored.LoadState(decoded); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := restored.Get()
	if got.Bold == nil || *got.Bold {
		t.Fatalf("explicit false must survive, got %v", got.Bold)
	}
	if diff := cmp.Diff([]string{"Verdana", "sans-serif"}, got.Family); diff != "" {
		t.Fatalf("family mismatch (-want +got):\n%s", diff)
	}
	if restored.IsSet("Name") {
		t.Fatalf("Name was never set")
	}
}

func TestRecordResetSavesTombstones(t *testing.T) {
	rec := NewRecord[fontSettings]()
	rec.Update(func(f *fontSettings) { f.Size = intPtr(9) })
	rec.TrackState()
	rec.Reset()

	snap, err := rec.SaveState()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	want := &Snapshot{Entries: []Entry{{Key: "Size", Value: nil}}}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	other := NewRecord[fontSettings]()
	other.Update(func(f *fontSettings) { f.Size = intPtr(9) })
	if err := other.LoadState(snap); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !other.IsEmpty() {
		t.Fatalf("expected tombstone to clear Size")
	}
}

func TestRecordEffectiveFallsBackToDefaults(t *testing.T) {
	rec := NewRecord[fontSettings]()
	rec.Update(func(f *fontSettings) { f.Size = intPtr(14) })
	got := rec.Effective(fontSettings{Name: strPtr("Arial"), Size: intPtr(10)})
	if *got.Name != "Arial" || *got.Size != 14 {
		t.Fatalf("unexpected effective record %+v", got)
	}
}

func TestRecordLoadRejectsBadEntries(t *testing.T) {
	cases := map[string]*Snapshot{
		"unknown field": {Entries: []Entry{{Key: "Color", Value: "red"}}},
		"wrong type":    {Entries: []Entry{{Key: "Size", Value: "large"}}},
		"non-nilable":   {Entries: []Entry{{Key: "Static", Value: 1}}},
		"slots":         {Slots: []*Snapshot{nil}},
	}
	for name, snap := range cases {
		t.Run(name, func(t *testing.T) {
			err := NewRecord[fontSettings]().LoadState(snap)
			if !isCorrupt(err) {
				t.Fatalf("expected corruption error, got %v", err)
			}
		})
	}
}
