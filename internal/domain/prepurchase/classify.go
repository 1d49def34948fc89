package prepurchase

// Shape is the structural kind of an inbound record
type Shape int

const (
	// ShapeDirect is a flat order-line record, possibly carrying pre-built items
	ShapeDirect Shape = iota + 1
	// ShapeComposite is a buy order with nested line items
	ShapeComposite
)

// String returns the shape name
func (s Shape) String() string {
	switch s {
	case ShapeDirect:
		return "direct"
	case ShapeComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// LineItemsSource is the raw line-items value of a composite record.
// Exactly one of Encoded or Items is set.
type LineItemsSource struct {
	// Encoded is a JSON-encoded line-items collection still to be parsed
	Encoded string
	// Items is an already-decoded sequence
	Items []any
	// Key is the source key the value was read from
	Key string
}

// Classification is the tagged result of inspecting a record once.
type Classification struct {
	Shape  Shape
	Record Record

	// LineItems is set for composite records
	LineItems LineItemsSource

	// Prebuilt holds a direct record's ready-made items collection, if any
	Prebuilt    []any
	HasPrebuilt bool
}

// Classify determines the shape of a record. A record is composite iff it has
// a non-empty line-items field; a line-items value that is neither a string
// nor a sequence is treated as a one-element sequence.
func Classify(r Record) Classification {
	body := Unwrap(r)

	if v, key, ok := OrderAliases.Resolve(body, FieldLineItems); ok {
		c := Classification{Shape: ShapeComposite, Record: body}
		c.LineItems.Key = key
		switch x := v.(type) {
		case string:
			c.LineItems.Encoded = x
		case []any:
			c.LineItems.Items = x
		case []map[string]any:
			c.LineItems.Items = make([]any, len(x))
			for i, m := range x {
				c.LineItems.Items[i] = m
			}
		default:
			c.LineItems.Items = []any{x}
		}
		return c
	}

	c := Classification{Shape: ShapeDirect, Record: body}
	if raw, ok := body[string(FieldItems)]; ok {
		switch x := raw.(type) {
		case []any:
			c.Prebuilt, c.HasPrebuilt = x, true
		case []map[string]any:
			c.Prebuilt = make([]any, len(x))
			for i, m := range x {
				c.Prebuilt[i] = m
			}
			c.HasPrebuilt = true
		}
	}
	return c
}
