package layering

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type styleSettings struct {
	CssClass  *string
	ForeColor *string
	Width     *int
	Bold      *bool
	Tags      []string
	Attrs     map[string]string
}

func ptr[T any](v T) *T { return &v }

func TestMergeLayers(t *testing.T) {
	cases := []struct {
		name   string
		layers []styleSettings
		expect styleSettings
	}{
		{
			name: "override wins over default",
			layers: []styleSettings{
				{CssClass: ptr("selected")},
				{CssClass: ptr("item"), ForeColor: ptr("black")},
			},
			expect: styleSettings{CssClass: ptr("selected"), ForeColor: ptr("black")},
		},
		{
			name: "nil falls through three layers",
			layers: []styleSettings{
				{Bold: ptr(true)},
				{Width: ptr(10)},
				{CssClass: ptr("base"), Width: ptr(4)},
			},
			expect: styleSettings{CssClass: ptr("base"), Width: ptr(10), Bold: ptr(true)},
		},
		{
			name: "slices replace and maps merge",
			layers: []styleSettings{
				{Tags: []string{"a"}, Attrs: map[string]string{"title": "x"}},
				{Tags: []string{"b", "c"}, Attrs: map[string]string{"role": "grid"}},
			},
			expect: styleSettings{Tags: []string{"a"}, Attrs: map[string]string{"title": "x", "role": "grid"}},
		},
		{
			name: "explicit false is kept",
			layers: []styleSettings{
				{Bold: ptr(false)},
				{Bold: ptr(true)},
			},
			expect: styleSettings{Bold: ptr(false)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MergeLayers(tc.layers...)
			if !reflect.DeepEqual(tc.expect, got) {
				t.Fatalf("merged mismatch:\nwant: %#v\n got: %#v", tc.expect, got)
			}
		})
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	type sample struct {
		Value int
	}
	if got := MergeLayers[sample](); got != (sample{}) {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	override := styleSettings{CssClass: ptr("a")}
	got := Merge(override, styleSettings{})
	*got.CssClass = "changed"
	if *override.CssClass != "a" {
		t.Fatalf("merge result aliases input")
	}
}

func TestCloneKeepsOpaqueValues(t *testing.T) {
	type record struct {
		When   *time.Time
		Amount *decimal.Decimal
	}
	when := time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("12.50")
	in := record{When: &when, Amount: &amount}

	out := Clone(in)
	if out.When == in.When || out.Amount == in.Amount {
		t.Fatalf("expected new pointers")
	}
	if !out.When.Equal(when) {
		t.Fatalf("time lost: %v", out.When)
	}
	if !out.Amount.Equal(amount) {
		t.Fatalf("decimal lost: %v", out.Amount)
	}
}
