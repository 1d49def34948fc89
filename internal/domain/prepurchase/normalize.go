package prepurchase

// Normalized is the transformation of one inbound record.
type Normalized struct {
	Shape Shape
	// Payloads holds at most one payload for direct records, and one
	// single-item payload per surviving line for composite records
	Payloads []Payload
	Skips    []Skip
	Notices  []Skip
}

// Items returns the total number of items across payloads
func (n Normalized) Items() int {
	total := 0
	for _, p := range n.Payloads {
		total += p.Len()
	}
	return total
}

// Normalizer turns inbound records into submission payloads.
type Normalizer struct {
	Builder  ItemBuilder
	Splitter OrderSplitter
}

// NewNormalizer returns a normalizer using the default alias tables
func NewNormalizer(defaults Defaults) *Normalizer {
	return &Normalizer{
		Builder:  NewItemBuilder(),
		Splitter: NewOrderSplitter(defaults),
	}
}

// Normalize classifies r and builds its payloads.
func (n *Normalizer) Normalize(r Record) Normalized {
	c := Classify(r)
	if c.Shape == ShapeComposite {
		split := n.Splitter.Split(c)
		return Normalized{
			Shape:    ShapeComposite,
			Payloads: split.Payloads,
			Skips:    split.Skips,
			Notices:  split.Notices,
		}
	}

	out := Normalized{Shape: ShapeDirect}
	if c.HasPrebuilt {
		if len(c.Prebuilt) > 0 {
			p := Payload{Items: make([]Item, len(c.Prebuilt))}
			for i, v := range c.Prebuilt {
				p.Items[i] = PrebuiltItem(v)
			}
			out.Payloads = []Payload{p}
		}
		return out
	}

	// Defaults are applied to split lines only
	built := n.Builder.Build(c.Record, nil, Defaults{}, NoLine)
	out.Notices = built.Notices
	if built.Dropped() {
		out.Skips = []Skip{*built.Skip}
		return out
	}
	out.Payloads = []Payload{{Items: []Item{*built.Item}}}
	return out
}
