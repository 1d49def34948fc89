package prepurchase

import (
	"fmt"
	"sort"
	"strings"
)

// SkipCode identifies why a unit was dropped or flagged
type SkipCode string

// Drop codes: the affected item or order is not submitted
const (
	SkipMissingProductID     SkipCode = "missing_product_id"
	SkipMissingAmount        SkipCode = "missing_amount"
	SkipInvalidProductID     SkipCode = "invalid_product_id"
	SkipInvalidAmount        SkipCode = "invalid_amount"
	SkipLineItemNotObject    SkipCode = "line_item_not_object"
	SkipLineItemsUnparseable SkipCode = "line_items_unparseable"
	SkipLineItemsEmpty       SkipCode = "line_items_empty"
)

// Notice codes: the item is submitted, but a field was defaulted or omitted
const (
	NoticeDatetimeUnparseable SkipCode = "datetime_unparseable"
	NoticeInvalidOptional     SkipCode = "invalid_optional_field"
)

// NoLine marks a skip that is not tied to a line item
const NoLine = -1

// Skip is a structured reason for dropping or flagging a unit of a record.
type Skip struct {
	Line    int      `json:"line"`
	Field   Field    `json:"field,omitempty"`
	Code    SkipCode `json:"code"`
	Message string   `json:"message"`
	Value   any      `json:"value,omitempty"`
}

// String renders the skip for logs
func (s Skip) String() string {
	var b strings.Builder
	if s.Line != NoLine {
		fmt.Fprintf(&b, "line %d", s.Line)
	} else {
		b.WriteString("record")
	}
	if s.Field != "" {
		fmt.Fprintf(&b, ", field '%s'", s.Field)
	}
	fmt.Fprintf(&b, ": %s", s.Message)
	return b.String()
}

// IsNotice reports whether the skip only flags a field instead of dropping the unit
func (s Skip) IsNotice() bool {
	return s.Code == NoticeDatetimeUnparseable || s.Code == NoticeInvalidOptional
}

func newSkip(line int, field Field, code SkipCode, value any, format string, args ...any) Skip {
	return Skip{
		Line:    line,
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Value:   value,
	}
}

// SkipCollection aggregates skips across records, keeping at most max of them
// while counting every one.
type SkipCollection struct {
	skips      []Skip
	max        int
	totalCount int
	byCode     map[SkipCode]int
}

// NewSkipCollection creates a collection holding up to max skips
func NewSkipCollection(max int) *SkipCollection {
	if max <= 0 {
		max = 100
	}
	return &SkipCollection{
		skips:  make([]Skip, 0, max),
		max:    max,
		byCode: make(map[SkipCode]int),
	}
}

// Add records skips
func (c *SkipCollection) Add(skips ...Skip) {
	for _, s := range skips {
		c.totalCount++
		c.byCode[s.Code]++
		if len(c.skips) < c.max {
			c.skips = append(c.skips, s)
		}
	}
}

// Skips returns the retained skips
func (c *SkipCollection) Skips() []Skip {
	return c.skips
}

// Count returns the number of retained skips
func (c *SkipCollection) Count() int {
	return len(c.skips)
}

// TotalCount returns the number of skips seen, including those not retained
func (c *SkipCollection) TotalCount() int {
	return c.totalCount
}

// HasSkips reports whether any skip was added
func (c *SkipCollection) HasSkips() bool {
	return c.totalCount > 0
}

// IsTruncated reports whether skips were dropped from retention
func (c *SkipCollection) IsTruncated() bool {
	return c.totalCount > len(c.skips)
}

// Summary returns the number of skips per code
func (c *SkipCollection) Summary() map[SkipCode]int {
	out := make(map[SkipCode]int, len(c.byCode))
	for k, v := range c.byCode {
		out[k] = v
	}
	return out
}

// String renders per-code counts in a stable order
func (c *SkipCollection) String() string {
	if c.totalCount == 0 {
		return "no skips"
	}
	codes := make([]string, 0, len(c.byCode))
	for code := range c.byCode {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s=%d", code, c.byCode[SkipCode(code)]))
	}
	return fmt.Sprintf("%d skips (%s)", c.totalCount, strings.Join(parts, ", "))
}
