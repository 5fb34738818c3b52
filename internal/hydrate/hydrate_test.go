package hydrate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

type product struct {
	ID        int       `json:"id"`
	Name      string    `json:"product_name"`
	Price     float64   `json:"price"`
	Tags      []string  `json:"tags"`
	Added     time.Time `json:"added"`
	Discarded bool      `json:"-"`
}

type checkedProduct struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (p checkedProduct) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestDecodeType(t *testing.T) {
	added := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		name      string
		typ       reflect.Type
		payload   map[string]any
		opts      []Option
		expect    any
		expectErr string
	}{
		{
			name: "json tag and field name matched case-insensitively",
			typ:  reflect.TypeOf(product{}),
			payload: map[string]any{
				"ID":           7,
				"Product_Name": "lamp",
				"price":        12.5,
				"tags":         []string{"home"},
				"added":        added,
			},
			expect: product{ID: 7, Name: "lamp", Price: 12.5, Tags: []string{"home"}, Added: added},
		},
		{
			name:    "pointer target returns pointer",
			typ:     reflect.TypeOf(&product{}),
			payload: map[string]any{"name": "desk"},
			expect:  &product{Name: "desk"},
		},
		{
			name:    "unknown keys ignored by default",
			typ:     reflect.TypeOf(product{}),
			payload: map[string]any{"id": 1, "colour": "red"},
			expect:  product{ID: 1},
		},
		{
			name:      "strict rejects unknown keys",
			typ:       reflect.TypeOf(product{}),
			payload:   map[string]any{"id": 1, "colour": "red"},
			opts:      []Option{WithStrict()},
			expectErr: `has no field "colour"`,
		},
		{
			name:      "ignored field is unknown",
			typ:       reflect.TypeOf(product{}),
			payload:   map[string]any{"Discarded": true},
			opts:      []Option{WithStrict()},
			expectErr: `has no field "Discarded"`,
		},
		{
			name:      "validator runs after decode",
			typ:       reflect.TypeOf(checkedProduct{}),
			payload:   map[string]any{"id": 3},
			expectErr: "validate: name is required",
		},
		{
			name:    "validation can be skipped",
			typ:     reflect.TypeOf(checkedProduct{}),
			payload: map[string]any{"id": 3},
			opts:    []Option{WithoutValidation()},
			expect:  checkedProduct{ID: 3},
		},
		{
			name:      "non struct target",
			typ:       reflect.TypeOf(0),
			payload:   map[string]any{},
			expectErr: "int is not a struct",
		},
		{
			name:      "type mismatch surfaces decode stage",
			typ:       reflect.TypeOf(product{}),
			payload:   map[string]any{"id": "seven"},
			expectErr: "decode",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeType(Context{Operation: "insert"}, tc.payload, tc.typ, tc.opts...)
			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				var hydrateErr *Error
				if !errors.As(err, &hydrateErr) {
					t.Fatalf("expected *Error, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, got) {
				t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", tc.expect, got)
			}
		})
	}
}

func TestDecodePreHooks(t *testing.T) {
	split := func(_ Context, payload map[string]any) (map[string]any, error) {
		raw, ok := payload["tags"].(string)
		if !ok {
			return payload, nil
		}
		payload["tags"] = strings.Split(raw, ",")
		return payload, nil
	}
	failing := func(ctx Context, _ map[string]any) (map[string]any, error) {
		return nil, fmt.Errorf("refused %s", ctx.Operation)
	}

	got, err := Decode[product](Context{Type: "Product"}, map[string]any{"tags": "a,b"}, WithPreHook(split))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got.Tags, []string{"a", "b"}) {
		t.Fatalf("expected split tags, got %v", got.Tags)
	}

	_, err = Decode[product](Context{Type: "Product", Operation: "update"}, map[string]any{}, WithPreHook(failing))
	if err == nil || !strings.Contains(err.Error(), "hydrate Product (update): pre-hook: refused update") {
		t.Fatalf("unexpected pre-hook error: %v", err)
	}
}

func TestFieldType(t *testing.T) {
	typ, ok := FieldType(reflect.TypeOf(&product{}), "PRODUCT_NAME")
	if !ok || typ.Kind() != reflect.String {
		t.Fatalf("expected string field, got %v %v", typ, ok)
	}
	if _, ok := FieldType(reflect.TypeOf(product{}), "missing"); ok {
		t.Fatal("expected missing field lookup to fail")
	}
}
