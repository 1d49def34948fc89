package prepurchase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBuilder() ItemBuilder {
	return ItemBuilder{Aliases: ItemAliases, Datetime: fixedNormalizer()}
}

func TestItemBuilder_Build_Mandatory(t *testing.T) {
	tests := []struct {
		name   string
		source Record
		code   SkipCode
		field  Field
	}{
		{"missing product", Record{"amount": 1}, SkipMissingProductID, FieldProductID},
		{"missing amount", Record{"productId": 1}, SkipMissingAmount, FieldAmount},
		{"zero amount", Record{"productId": 1, "amount": 0}, SkipMissingAmount, FieldAmount},
		{"zero float amount", Record{"productId": 1, "amount": 0.0}, SkipMissingAmount, FieldAmount},
		{"zero string amount", Record{"productId": 1, "amount": "0"}, SkipMissingAmount, FieldAmount},
		{"zero product", Record{"productId": 0, "amount": 1}, SkipMissingProductID, FieldProductID},
		{"non numeric product", Record{"productId": "abc", "amount": 1}, SkipInvalidProductID, FieldProductID},
		{"fractional amount", Record{"productId": 1, "amount": 2.5}, SkipInvalidAmount, FieldAmount},
		{"boolean amount", Record{"productId": 1, "amount": true}, SkipInvalidAmount, FieldAmount},
	}

	b := fixedBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.Build(tt.source, nil, Defaults{}, NoLine)
			require.True(t, res.Dropped())
			require.NotNil(t, res.Skip)
			assert.Equal(t, tt.code, res.Skip.Code)
			assert.Equal(t, tt.field, res.Skip.Field)
			assert.NotEmpty(t, res.Skip.Message)
		})
	}
}

func TestItemBuilder_Build_Coercion(t *testing.T) {
	b := fixedBuilder()

	res := b.Build(Record{
		"product_id":       json.Number("42"),
		"quantity":         "3",
		"optiplyId":        float64(1001),
		"targetSupplierId": "17",
		"officeId":         json.Number("5"),
		"creationDatetime": "2025-08-18T13:35:51Z",
	}, nil, Defaults{}, NoLine)

	require.False(t, res.Dropped())
	item := res.Item
	assert.Equal(t, int64(42), item.ProductID)
	assert.Equal(t, int64(3), item.Amount)
	assert.Equal(t, "1001", item.OptiplyID)
	require.NotNil(t, item.TargetSupplierID)
	assert.Equal(t, int64(17), *item.TargetSupplierID)
	require.NotNil(t, item.OfficeID)
	assert.Equal(t, int64(5), *item.OfficeID)
	assert.Equal(t, "2025-08-18T13:35:51.000Z", item.CreationDatetime)
	assert.Empty(t, res.Notices)
}

func TestItemBuilder_Build_DatetimeDefaults(t *testing.T) {
	b := fixedBuilder()

	t.Run("absent datetime is silent", func(t *testing.T) {
		res := b.Build(Record{"productId": 1, "amount": 1}, nil, Defaults{}, NoLine)
		require.False(t, res.Dropped())
		assert.Equal(t, "2025-01-02T03:04:05.678Z", res.Item.CreationDatetime)
		assert.Empty(t, res.Notices)
	})

	t.Run("unparseable datetime is flagged", func(t *testing.T) {
		res := b.Build(Record{"productId": 1, "amount": 1, "transaction_date": "soon"}, nil, Defaults{}, 4)
		require.False(t, res.Dropped())
		assert.Equal(t, "2025-01-02T03:04:05.678Z", res.Item.CreationDatetime)
		require.Len(t, res.Notices, 1)
		assert.Equal(t, NoticeDatetimeUnparseable, res.Notices[0].Code)
		assert.Equal(t, 4, res.Notices[0].Line)
		assert.True(t, res.Notices[0].IsNotice())
	})
}

func TestItemBuilder_Build_SharedAndDefaults(t *testing.T) {
	b := fixedBuilder()
	supplier := int64(88)
	shared := &Shared{
		CreationDatetime: "2025-08-18T11:35:51.885Z",
		OptiplyID:        "ORD-1",
		TargetSupplierID: &supplier,
	}

	t.Run("shared fields win", func(t *testing.T) {
		res := b.Build(Record{
			"product_remoteId": 1,
			"qty":              2,
			"optiplyId":        "LINE-9",
			"targetSupplierId": 3,
			"creationDatetime": "2020-01-01",
		}, shared, Defaults{OfficeID: 12}, 0)
		require.False(t, res.Dropped())
		assert.Equal(t, "ORD-1", res.Item.OptiplyID)
		assert.Equal(t, int64(88), *res.Item.TargetSupplierID)
		assert.Equal(t, "2025-08-18T11:35:51.885Z", res.Item.CreationDatetime)
		assert.Equal(t, int64(12), *res.Item.OfficeID)
	})

	t.Run("line office beats default", func(t *testing.T) {
		res := b.Build(Record{"product_remoteId": 1, "qty": 2, "officeId": 4}, shared, Defaults{OfficeID: 12}, 0)
		require.False(t, res.Dropped())
		assert.Equal(t, int64(4), *res.Item.OfficeID)
	})

	t.Run("shared supplier copied per item", func(t *testing.T) {
		*shared.TargetSupplierID = 88
		res := b.Build(Record{"product_remoteId": 1, "qty": 2}, shared, Defaults{}, 0)
		require.False(t, res.Dropped())
		*res.Item.TargetSupplierID = 1
		assert.Equal(t, int64(88), *shared.TargetSupplierID)
	})
}

func TestItemBuilder_Build_PassThrough(t *testing.T) {
	b := fixedBuilder()
	res := b.Build(Record{
		"productId":          1,
		"amount":             2,
		"purchasePriceEx":    12.5,
		"isManual":           true,
		"productDescription": "Bolt M8",
		"serialNumber":       nil,
		"unknownField":       "dropped",
		"targetSupplierId":   "not-a-number",
	}, nil, Defaults{OfficeID: 99}, NoLine)

	require.False(t, res.Dropped())
	assert.Equal(t, map[string]any{
		"purchasePriceEx":    12.5,
		"isManual":           true,
		"productDescription": "Bolt M8",
	}, res.Item.Extra)
	assert.Nil(t, res.Item.TargetSupplierID)
	assert.Equal(t, int64(99), *res.Item.OfficeID)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, NoticeInvalidOptional, res.Notices[0].Code)
	assert.Equal(t, FieldTargetSupplierID, res.Notices[0].Field)
}

func TestItem_MarshalJSON(t *testing.T) {
	office := int64(3)
	item := Item{
		ProductID:        42,
		Amount:           3,
		CreationDatetime: "2025-08-18T11:35:51.885Z",
		OfficeID:         &office,
		Extra:            map[string]any{"orderReference": "PO-7"},
	}

	b, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"productId": 42,
		"amount": 3,
		"creationDatetime": "2025-08-18T11:35:51.885Z",
		"officeId": 3,
		"orderReference": "PO-7"
	}`, string(b))
}

func TestPrebuiltItem(t *testing.T) {
	raw := map[string]any{"productId": 1, "amount": 2, "optiplyId": 77, "custom": "x"}
	item := PrebuiltItem(raw)

	v, ok := item.Prebuilt()
	assert.True(t, ok)
	assert.Equal(t, raw, v)
	assert.Equal(t, "77", item.CorrelationID())

	b, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{"productId": 1, "amount": 2, "optiplyId": 77, "custom": "x"}`, string(b))

	assert.Empty(t, PrebuiltItem("scalar").CorrelationID())
}
