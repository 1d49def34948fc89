package sink

// Mode selects how a sink submits normalized payloads
type Mode string

const (
	// ModeBuffered accumulates direct records and submits them in batches
	ModeBuffered Mode = "buffered"
	// ModePerItem submits every payload as its own request
	ModePerItem Mode = "per_item"
)

// IsValid reports whether m is a known mode
func (m Mode) IsValid() bool {
	switch m {
	case ModeBuffered, ModePerItem:
		return true
	}
	return false
}

// String returns the mode name
func (m Mode) String() string {
	return string(m)
}
