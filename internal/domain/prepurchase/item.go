package prepurchase

import (
	"encoding/json"
)

// Item is the canonical API payload unit of the pre-purchase-order import.
type Item struct {
	ProductID        int64
	Amount           int64
	CreationDatetime string
	OptiplyID        string // empty when absent
	TargetSupplierID *int64
	OfficeID         *int64
	Extra            map[string]any

	raw      any
	prebuilt bool
}

// PrebuiltItem wraps an item object that is submitted exactly as received.
func PrebuiltItem(v any) Item {
	return Item{raw: v, prebuilt: true}
}

// Prebuilt returns the wrapped object of a pre-built item
func (i Item) Prebuilt() (any, bool) {
	return i.raw, i.prebuilt
}

// CorrelationID returns the item's optiplyId, if any
func (i Item) CorrelationID() string {
	if !i.prebuilt {
		return i.OptiplyID
	}
	m, ok := i.raw.(map[string]any)
	if !ok || isEmpty(m[string(FieldOptiplyID)]) {
		return ""
	}
	id, err := toIDString(m[string(FieldOptiplyID)])
	if err != nil {
		return ""
	}
	return id
}

// MarshalJSON renders the flat wire object; optional fields are omitted when absent.
func (i Item) MarshalJSON() ([]byte, error) {
	if i.prebuilt {
		return json.Marshal(i.raw)
	}
	m := make(map[string]any, len(i.Extra)+6)
	for k, v := range i.Extra {
		m[k] = v
	}
	m[string(FieldProductID)] = i.ProductID
	m[string(FieldAmount)] = i.Amount
	m[string(FieldCreationDatetime)] = i.CreationDatetime
	if i.OptiplyID != "" {
		m[string(FieldOptiplyID)] = i.OptiplyID
	}
	if i.TargetSupplierID != nil {
		m[string(FieldTargetSupplierID)] = *i.TargetSupplierID
	}
	if i.OfficeID != nil {
		m[string(FieldOfficeID)] = *i.OfficeID
	}
	return json.Marshal(m)
}

// Defaults are values the invoking context injects when the source has none.
type Defaults struct {
	// OfficeID applies to split line items; zero means no default
	OfficeID int64
}

// Shared carries the order-level fields propagated to every line of a composite record.
type Shared struct {
	CreationDatetime string
	OptiplyID        string
	TargetSupplierID *int64
}

// BuildResult is either an item or the reason it was dropped. Notices flag
// fields that were defaulted or omitted on a submitted item.
type BuildResult struct {
	Item    *Item
	Skip    *Skip
	Notices []Skip
}

// Dropped reports whether the item was dropped
func (r BuildResult) Dropped() bool {
	return r.Item == nil
}

// ItemBuilder maps source fields into an Item.
type ItemBuilder struct {
	Aliases  AliasTable
	Datetime DatetimeNormalizer
}

// NewItemBuilder returns a builder over ItemAliases using the wall clock
func NewItemBuilder() ItemBuilder {
	return ItemBuilder{Aliases: ItemAliases, Datetime: NewDatetimeNormalizer()}
}

// Build maps source into an item. Shared order fields, when given, take
// precedence over the source's own values for those fields. line is the
// line-item index used in skip reports, or NoLine.
func (b ItemBuilder) Build(source Record, shared *Shared, defaults Defaults, line int) BuildResult {
	var res BuildResult

	productID, skip := b.mandatory(source, FieldProductID, SkipMissingProductID, SkipInvalidProductID, line)
	if skip != nil {
		res.Skip = skip
		return res
	}
	amount, skip := b.mandatory(source, FieldAmount, SkipMissingAmount, SkipInvalidAmount, line)
	if skip != nil {
		res.Skip = skip
		return res
	}

	item := &Item{ProductID: productID, Amount: amount}

	if shared != nil && shared.CreationDatetime != "" {
		item.CreationDatetime = shared.CreationDatetime
	} else {
		v, _, _ := b.Aliases.Resolve(source, FieldCreationDatetime)
		s, outcome := b.Datetime.Normalize(v)
		if outcome == DatetimeUnparseable {
			res.Notices = append(res.Notices, newSkip(line, FieldCreationDatetime, NoticeDatetimeUnparseable, v,
				"unparseable datetime, using current time"))
		}
		item.CreationDatetime = s
	}

	if shared != nil && shared.OptiplyID != "" {
		item.OptiplyID = shared.OptiplyID
	} else if v, _, ok := b.Aliases.Resolve(source, FieldOptiplyID); ok {
		id, err := toIDString(v)
		if err != nil {
			res.Notices = append(res.Notices, newSkip(line, FieldOptiplyID, NoticeInvalidOptional, v, "%v", err))
		} else {
			item.OptiplyID = id
		}
	}

	if shared != nil && shared.TargetSupplierID != nil {
		id := *shared.TargetSupplierID
		item.TargetSupplierID = &id
	} else if n, ok, notice := b.optionalInt(source, FieldTargetSupplierID, line); ok {
		item.TargetSupplierID = &n
	} else if notice != nil {
		res.Notices = append(res.Notices, *notice)
	}

	if n, ok, notice := b.optionalInt(source, FieldOfficeID, line); ok {
		item.OfficeID = &n
	} else {
		if notice != nil {
			res.Notices = append(res.Notices, *notice)
		}
		if defaults.OfficeID != 0 {
			office := defaults.OfficeID
			item.OfficeID = &office
		}
	}

	for _, key := range PassThroughFields {
		v, ok := source[key]
		if !ok || v == nil {
			continue
		}
		if item.Extra == nil {
			item.Extra = make(map[string]any)
		}
		item.Extra[key] = v
	}

	res.Item = item
	return res
}

func (b ItemBuilder) mandatory(source Record, f Field, missing, invalid SkipCode, line int) (int64, *Skip) {
	v, key, ok := b.Aliases.Resolve(source, f)
	if !ok {
		s := newSkip(line, f, missing, nil, "no non-empty value among %v", b.Aliases[f])
		return 0, &s
	}
	n, err := toInt64(v)
	if err != nil {
		s := newSkip(line, f, invalid, v, "field '%s': %v", key, err)
		return 0, &s
	}
	if n == 0 {
		s := newSkip(line, f, missing, v, "field '%s' is zero", key)
		return 0, &s
	}
	return n, nil
}

func (b ItemBuilder) optionalInt(source Record, f Field, line int) (int64, bool, *Skip) {
	v, key, ok := b.Aliases.Resolve(source, f)
	if !ok {
		return 0, false, nil
	}
	n, err := toInt64(v)
	if err != nil {
		s := newSkip(line, f, NoticeInvalidOptional, v, "field '%s' omitted: %v", key, err)
		return 0, false, &s
	}
	return n, true, nil
}
