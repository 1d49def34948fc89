package prepurchase

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// CanonicalLayout is the wire format of creationDatetime: UTC, millisecond precision.
const CanonicalLayout = "2006-01-02T15:04:05.000Z"

// DatetimeOutcome describes how a value was normalized.
type DatetimeOutcome int

const (
	// DatetimeParsed means the value parsed directly
	DatetimeParsed DatetimeOutcome = iota
	// DatetimeRepaired means the value parsed only after the tolerant fallback
	DatetimeRepaired
	// DatetimeDefaulted means the value was absent and the current time was used
	DatetimeDefaulted
	// DatetimeUnparseable means the value could not be parsed and the current time was used
	DatetimeUnparseable
)

// String returns the outcome name
func (o DatetimeOutcome) String() string {
	switch o {
	case DatetimeParsed:
		return "parsed"
	case DatetimeRepaired:
		return "repaired"
	case DatetimeDefaulted:
		return "defaulted"
	case DatetimeUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// zonedLayouts accept a trailing Z or a numeric offset. Fractional seconds are
// accepted after the seconds field without being spelled out in the layout.
var zonedLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	// basic format
	"20060102T150405Z07:00",
	"20060102T150405Z0700",
	"20060102T1504Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102T150405",
	"20060102T1504",
	"20060102",
}

var offsetSuffix = regexp.MustCompile(`[+-]\d{2}:\d{2}$`)

// DatetimeNormalizer canonicalizes datetime representations into CanonicalLayout.
type DatetimeNormalizer struct {
	// Now supplies the time used when a value is absent or unparseable
	Now func() time.Time
}

// NewDatetimeNormalizer returns a normalizer using the wall clock
func NewDatetimeNormalizer() DatetimeNormalizer {
	return DatetimeNormalizer{Now: time.Now}
}

// NormalizeDatetime normalizes v with the wall clock.
func NormalizeDatetime(v any) string {
	s, _ := NewDatetimeNormalizer().Normalize(v)
	return s
}

// Normalize formats v in CanonicalLayout. It never fails: absent or
// unparseable input falls back to the current time, and the outcome tells
// the caller which path was taken.
func (n DatetimeNormalizer) Normalize(v any) (string, DatetimeOutcome) {
	switch x := v.(type) {
	case nil:
		return n.now(), DatetimeDefaulted
	case time.Time:
		if x.IsZero() {
			return n.now(), DatetimeDefaulted
		}
		return format(x), DatetimeParsed
	case *time.Time:
		if x == nil || x.IsZero() {
			return n.now(), DatetimeDefaulted
		}
		return format(*x), DatetimeParsed
	case string:
		return n.normalizeString(x)
	default:
		return n.normalizeString(fmt.Sprint(x))
	}
}

func (n DatetimeNormalizer) normalizeString(s string) (string, DatetimeOutcome) {
	s = strings.TrimSpace(s)
	if s == "" {
		return n.now(), DatetimeDefaulted
	}
	if t, ok := parseISO(s); ok {
		return format(t), DatetimeParsed
	}
	if t, ok := parseISO(repair(s)); ok {
		return format(t), DatetimeRepaired
	}
	return n.now(), DatetimeUnparseable
}

func (n DatetimeNormalizer) now() string {
	clock := n.Now
	if clock == nil {
		clock = time.Now
	}
	return format(clock())
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// repair drops timezone decorations the strict parse rejected. The offset is
// discarded, not applied: the remaining wall time is taken as-is.
func repair(s string) string {
	s = strings.TrimSuffix(s, "Z")
	s = offsetSuffix.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return strings.Replace(s, " ", "T", 1)
}

func format(t time.Time) string {
	return t.UTC().Format(CanonicalLayout)
}
