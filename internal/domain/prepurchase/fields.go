package prepurchase

// Record is an inbound record: field name to value of mixed type.
type Record map[string]any

// Field is a logical field of a normalized item or of an order.
type Field string

// Logical fields
const (
	FieldProductID        Field = "productId"
	FieldAmount           Field = "amount"
	FieldCreationDatetime Field = "creationDatetime"
	FieldOptiplyID        Field = "optiplyId"
	FieldTargetSupplierID Field = "targetSupplierId"
	FieldOfficeID         Field = "officeId"
	FieldLineItems        Field = "line_items"
	FieldItems            Field = "items"
)

// AliasTable maps a logical field to the source keys read for it, in precedence order.
type AliasTable map[Field][]string

// ItemAliases resolves item-level fields of direct records and line items.
var ItemAliases = AliasTable{
	FieldProductID:        {"productId", "product_id", "product_remoteId"},
	FieldAmount:           {"amount", "quantity", "qty"},
	FieldCreationDatetime: {"creationDatetime", "transaction_date"},
	FieldOptiplyID:        {"optiplyId"},
	FieldTargetSupplierID: {"targetSupplierId"},
	FieldOfficeID:         {"officeId"},
}

// OrderAliases resolves order-level fields of composite buy orders.
var OrderAliases = AliasTable{
	FieldCreationDatetime: {"creationDatetime", "transaction_date"},
	FieldOptiplyID:        {"optiplyId", "buyOrderId", "id"},
	FieldTargetSupplierID: {"targetSupplierId", "supplierId", "supplier_remoteId"},
	FieldLineItems:        {"line_items", "lineItems"},
}

// PassThroughFields are copied unchanged from the source into the item when present.
var PassThroughFields = []string{
	"productPreorderId", "isManual", "employeeId",
	"productSizeColorId", "supplierProductNumber", "productNumber",
	"productType", "productDescription", "productSubdescription",
	"productExtraInfo", "targetOfficeId",
	"purchasePriceEx", "onetimePurchasePrice", "orderReference",
	"minOrderQuantity", "expectedDeliveryWeek", "expectedDeliveryDate",
	"extraPriceInfo", "bebat", "brutoPurchasePriceEx", "useFormula",
	"promotionProductId", "orderAutomatically", "lineId",
	"serialNumber", "frameNumber", "imeiNumber", "certificateNumber",
}

// Resolve returns the first non-empty value among the aliases of f, along with
// the source key it was read from.
func (t AliasTable) Resolve(r Record, f Field) (any, string, bool) {
	for _, key := range t[f] {
		v, ok := r[key]
		if !ok || isEmpty(v) {
			continue
		}
		return v, key, true
	}
	return nil, "", false
}

// Unwrap returns the record body of a Singer-style {"record": {...}} envelope,
// or the record itself when it is not wrapped.
func Unwrap(r Record) Record {
	if inner, ok := r["record"].(map[string]any); ok {
		return Record(inner)
	}
	if inner, ok := r["record"].(Record); ok {
		return inner
	}
	return r
}
