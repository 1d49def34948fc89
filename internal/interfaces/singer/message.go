// Package singer reads newline-delimited SCHEMA, RECORD and STATE messages,
// routes records to the stream sinks and writes the target state to stdout.
package singer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
)

// MessageType is the "type" of a message
type MessageType string

const (
	TypeSchema MessageType = "SCHEMA"
	TypeRecord MessageType = "RECORD"
	TypeState  MessageType = "STATE"
)

// ErrInvalidMessage is returned for lines that are not a message object
var ErrInvalidMessage = errors.New("singer: invalid message")

// Message is one decoded input line
type Message struct {
	Type   MessageType        `json:"type"`
	Stream string             `json:"stream,omitempty"`
	Record prepurchase.Record `json:"record,omitempty"`
	Schema json.RawMessage    `json:"schema,omitempty"`
	Value  json.RawMessage    `json:"value,omitempty"`
}

// Decode parses line. Numbers are kept as json.Number so that large ids
// survive unchanged.
func Decode(line []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var m Message
	if err := dec.Decode(&m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	return m, nil
}

// decodeState parses a STATE value; only objects are accepted
func decodeState(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: state value: %v", ErrInvalidMessage, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: state value is null", ErrInvalidMessage)
	}
	return v, nil
}

// stateMessage is the target state written to the output
type stateMessage struct {
	Type  MessageType    `json:"type"`
	Value map[string]any `json:"value"`
}
