package prepurchase

import (
	"bytes"
	"encoding/json"
	"strings"
)

// OrderSplitter expands a composite buy order into independent single-item payloads.
type OrderSplitter struct {
	Builder      ItemBuilder
	OrderAliases AliasTable
	Defaults     Defaults
}

// NewOrderSplitter returns a splitter over the default alias tables
func NewOrderSplitter(defaults Defaults) OrderSplitter {
	return OrderSplitter{
		Builder:      NewItemBuilder(),
		OrderAliases: OrderAliases,
		Defaults:     defaults,
	}
}

// SplitResult holds the payloads of one composite record along with what was skipped.
type SplitResult struct {
	Payloads []Payload
	Skips    []Skip
	Notices  []Skip
}

// Split builds one payload per valid line item, in line order. A record whose
// line items cannot be parsed or are empty yields no payloads.
func (s OrderSplitter) Split(c Classification) SplitResult {
	var res SplitResult

	lines, skip := decodeLineItems(c.LineItems)
	if skip != nil {
		res.Skips = append(res.Skips, *skip)
		return res
	}

	shared, notices := s.shared(c.Record)
	res.Notices = append(res.Notices, notices...)

	for i, line := range lines {
		fields, ok := asRecord(line)
		if !ok {
			res.Skips = append(res.Skips, newSkip(i, FieldLineItems, SkipLineItemNotObject, line,
				"line item is not an object"))
			continue
		}
		built := s.Builder.Build(fields, &shared, s.Defaults, i)
		res.Notices = append(res.Notices, built.Notices...)
		if built.Dropped() {
			res.Skips = append(res.Skips, *built.Skip)
			continue
		}
		res.Payloads = append(res.Payloads, Payload{Items: []Item{*built.Item}})
	}
	return res
}

func (s OrderSplitter) shared(order Record) (Shared, []Skip) {
	var (
		shared  Shared
		notices []Skip
	)

	v, _, _ := s.OrderAliases.Resolve(order, FieldCreationDatetime)
	dt, outcome := s.Builder.Datetime.Normalize(v)
	if outcome == DatetimeUnparseable {
		notices = append(notices, newSkip(NoLine, FieldCreationDatetime, NoticeDatetimeUnparseable, v,
			"unparseable order datetime, using current time"))
	}
	shared.CreationDatetime = dt

	if v, _, ok := s.OrderAliases.Resolve(order, FieldOptiplyID); ok {
		if id, err := toIDString(v); err == nil {
			shared.OptiplyID = id
		} else {
			notices = append(notices, newSkip(NoLine, FieldOptiplyID, NoticeInvalidOptional, v, "%v", err))
		}
	}

	if v, key, ok := s.OrderAliases.Resolve(order, FieldTargetSupplierID); ok {
		if n, err := toInt64(v); err == nil {
			shared.TargetSupplierID = &n
		} else {
			notices = append(notices, newSkip(NoLine, FieldTargetSupplierID, NoticeInvalidOptional, v,
				"field '%s' omitted: %v", key, err))
		}
	}
	return shared, notices
}

// decodeLineItems resolves the line-items value into a sequence. A decoded
// value that is not a sequence is wrapped as a single element.
func decodeLineItems(src LineItemsSource) ([]any, *Skip) {
	if src.Items != nil {
		if len(src.Items) == 0 {
			s := newSkip(NoLine, FieldLineItems, SkipLineItemsEmpty, nil, "order has no line items")
			return nil, &s
		}
		return src.Items, nil
	}

	encoded := strings.TrimSpace(src.Encoded)
	dec := json.NewDecoder(bytes.NewReader([]byte(encoded)))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil || dec.More() {
		s := newSkip(NoLine, FieldLineItems, SkipLineItemsUnparseable, src.Encoded,
			"line items are not valid JSON")
		return nil, &s
	}

	var lines []any
	switch x := decoded.(type) {
	case []any:
		lines = x
	case nil:
	default:
		lines = []any{x}
	}
	if len(lines) == 0 {
		s := newSkip(NoLine, FieldLineItems, SkipLineItemsEmpty, src.Encoded, "order has no line items")
		return nil, &s
	}
	return lines, nil
}

func asRecord(v any) (Record, bool) {
	switch x := v.(type) {
	case map[string]any:
		return Record(x), true
	case Record:
		return x, true
	}
	return nil, false
}
