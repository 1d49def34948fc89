package prepurchase

import "encoding/json"

// Payload is one submission unit: the items sent in a single import request.
type Payload struct {
	Items []Item
}

// Len returns the number of items
func (p Payload) Len() int {
	return len(p.Items)
}

// IsEmpty reports whether the payload carries no items
func (p Payload) IsEmpty() bool {
	return len(p.Items) == 0
}

// CorrelationID returns the optiplyId of the first item, used when the API
// does not assign an id.
func (p Payload) CorrelationID() string {
	if len(p.Items) == 0 {
		return ""
	}
	return p.Items[0].CorrelationID()
}

// MarshalJSON renders the wire request body {"items": [...]}
func (p Payload) MarshalJSON() ([]byte, error) {
	items := p.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(struct {
		Items []Item `json:"items"`
	}{Items: items})
}

// Merge concatenates the items of payloads in order.
func Merge(payloads ...Payload) Payload {
	n := 0
	for _, p := range payloads {
		n += len(p.Items)
	}
	out := Payload{Items: make([]Item, 0, n)}
	for _, p := range payloads {
		out.Items = append(out.Items, p.Items...)
	}
	return out
}
