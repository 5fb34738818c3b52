package method

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type status int

func TestDefaultConverter(t *testing.T) {
	conv := DefaultConverter{}
	id := uuid.MustParse("0190f6a4-8b1e-7c4d-9f00-112233445566")
	seven := 7

	cases := []struct {
		name  string
		value any
		to    reflect.Type
		want  any
	}{
		{"string to int", " 08 ", TypeOf[int](), 8},
		{"float to int32", 3.0, TypeOf[int32](), int32(3)},
		{"string to bool", "true", TypeOf[bool](), true},
		{"int to string", 12, TypeOf[string](), "12"},
		{"string to float", "2.5", TypeOf[float64](), 2.5},
		{"named int", "2", TypeOf[status](), status(2)},
		{"decimal", "19.99", TypeOf[decimal.Decimal](), decimal.RequireFromString("19.99")},
		{"uuid", id.String(), TypeOf[uuid.UUID](), id},
		{"time", "2024-02-29T10:00:00Z", TypeOf[time.Time](), time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)},
		{"duration", "1m30s", TypeOf[time.Duration](), 90 * time.Second},
		{"nullable empty", "", TypeOf[*int](), (*int)(nil)},
		{"nullable value", "7", TypeOf[*int](), &seven},
		{"nil to zero", nil, TypeOf[int](), 0},
		{"string slice", []any{"a", "b"}, TypeOf[[]string](), []string{"a", "b"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := conv.Convert(tc.value, tc.to)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("conversion mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultConverterErrors(t *testing.T) {
	conv := DefaultConverter{}
	cases := []struct {
		name  string
		value any
		to    reflect.Type
	}{
		{"overflow", 300, TypeOf[int8]()},
		{"bad uuid", "nope", TypeOf[uuid.UUID]()},
		{"struct target", "x", TypeOf[struct{ A int }]()},
		{"bad decimal", "1.2.3", TypeOf[decimal.Decimal]()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := conv.Convert(tc.value, tc.to); err == nil {
				t.Fatalf("expected error converting %v to %s", tc.value, tc.to)
			}
		})
	}
}
