package prepurchase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		shape    Shape
		encoded  string
		items    int
		prebuilt bool
	}{
		{
			name:   "flat record is direct",
			record: Record{"productId": 1, "amount": 2},
			shape:  ShapeDirect,
		},
		{
			name:    "encoded line items are composite",
			record:  Record{"id": "B-1", "line_items": `[{"product_id": 1}]`},
			shape:   ShapeComposite,
			encoded: `[{"product_id": 1}]`,
		},
		{
			name:   "decoded line items are composite",
			record: Record{"line_items": []any{map[string]any{"product_id": 1}, map[string]any{"product_id": 2}}},
			shape:  ShapeComposite,
			items:  2,
		},
		{
			name:   "camel case alias",
			record: Record{"lineItems": []any{map[string]any{"qty": 1}}},
			shape:  ShapeComposite,
			items:  1,
		},
		{
			name:   "empty line items stay direct",
			record: Record{"line_items": []any{}, "productId": 1, "amount": 1},
			shape:  ShapeDirect,
		},
		{
			name:   "empty encoded line items stay direct",
			record: Record{"line_items": "", "productId": 1, "amount": 1},
			shape:  ShapeDirect,
		},
		{
			name:   "scalar line items wrapped",
			record: Record{"line_items": map[string]any{"product_id": 7, "qty": 1}},
			shape:  ShapeComposite,
			items:  1,
		},
		{
			name:     "prebuilt items pass through",
			record:   Record{"items": []any{map[string]any{"productId": 1}}},
			shape:    ShapeDirect,
			prebuilt: true,
		},
		{
			name:    "singer envelope unwrapped",
			record:  Record{"record": map[string]any{"line_items": "[]", "id": 3}},
			shape:   ShapeComposite,
			encoded: "[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.record)
			assert.Equal(t, tt.shape, c.Shape)
			assert.Equal(t, tt.encoded, c.LineItems.Encoded)
			assert.Len(t, c.LineItems.Items, tt.items)
			assert.Equal(t, tt.prebuilt, c.HasPrebuilt)
		})
	}
}

func TestShape_String(t *testing.T) {
	assert.Equal(t, "direct", ShapeDirect.String())
	assert.Equal(t, "composite", ShapeComposite.String())
	assert.Equal(t, "unknown", Shape(0).String())
}

func TestAliasTable_Resolve(t *testing.T) {
	t.Run("first non-empty wins", func(t *testing.T) {
		v, key, ok := ItemAliases.Resolve(Record{"productId": 0, "product_id": "", "product_remoteId": 9}, FieldProductID)
		assert.True(t, ok)
		assert.Equal(t, "product_remoteId", key)
		assert.Equal(t, 9, v)
	})

	t.Run("precedence order", func(t *testing.T) {
		_, key, ok := ItemAliases.Resolve(Record{"qty": 1, "quantity": 2, "amount": 3}, FieldAmount)
		assert.True(t, ok)
		assert.Equal(t, "amount", key)
	})

	t.Run("unresolved", func(t *testing.T) {
		_, _, ok := ItemAliases.Resolve(Record{"amount": nil}, FieldAmount)
		assert.False(t, ok)
	})
}
