package singer

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
)

// SchemaRegistry holds the JSON schema announced for each stream
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaRegistry creates an empty registry
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]*gojsonschema.Schema)}
}

// Register compiles and stores the schema of stream, replacing any previous one
func (r *SchemaRegistry) Register(stream string, raw json.RawMessage) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("compile schema of %s: %w", stream, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[stream] = schema
	return nil
}

// Has reports whether a schema is registered for stream
func (r *SchemaRegistry) Has(stream string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[stream]
	return ok
}

// Validate checks record against the schema of stream. Streams without a
// schema accept every record. Failures wrap prepurchase.ErrMalformedRecord.
func (r *SchemaRegistry) Validate(stream string, record prepurchase.Record) error {
	r.mu.RLock()
	schema, ok := r.schemas[stream]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return fmt.Errorf("%w: validation error: %v", prepurchase.ErrMalformedRecord, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("%w: schema validation failed: %s", prepurchase.ErrMalformedRecord, strings.Join(msgs, "; "))
}
