package singer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiply/target-vendit/internal/application/sink"
	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"github.com/optiply/target-vendit/internal/infrastructure/stream"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fakeImporter struct {
	mu       sync.Mutex
	payloads []prepurchase.Payload
	err      error
}

func (f *fakeImporter) Import(_ context.Context, p prepurchase.Payload) (prepurchase.ImportResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	if f.err != nil {
		return prepurchase.ImportResponse{}, f.err
	}
	return prepurchase.ImportResponse{StatusCode: 200}, nil
}

func newRouter(importer prepurchase.Importer) *sink.Router {
	r := sink.NewRouter(nil, nil)
	sink.RegisterStreams(r, importer, sink.Settings{Mode: sink.ModeBuffered, MaxBatchSize: 100})
	return r
}

func run(t *testing.T, r *Runner, lines ...string) error {
	t.Helper()
	return r.Run(context.Background(), stream.NewReaderSource(strings.NewReader(strings.Join(lines, "\n"))))
}

func states(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var got []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var msg struct {
			Type  string         `json:"type"`
			Value map[string]any `json:"value"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &msg))
		require.Equal(t, "STATE", msg.Type)
		got = append(got, msg.Value)
	}
	return got
}

// ---------------------------------------------------------------------------
// Decode
// ---------------------------------------------------------------------------

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(`{"type":"RECORD","stream":"buy_orders","record":{"productId":12345678901234567}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeRecord, m.Type)
	assert.Equal(t, "buy_orders", m.Stream)
	assert.Equal(t, json.Number("12345678901234567"), m.Record["productId"])

	_, err = Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = Decode([]byte(`{"stream":"buy_orders"}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

func TestRunner_EndToEnd(t *testing.T) {
	importer := &fakeImporter{}
	var out bytes.Buffer
	r := NewRunner(newRouter(importer), &out)

	err := run(t, r,
		`{"type":"SCHEMA","stream":"pre_purchase_orders","schema":{"type":"object"},"key_properties":["optiplyId"]}`,
		`{"type":"RECORD","stream":"pre_purchase_orders","record":{"productId":1,"amount":2,"optiplyId":"A"}}`,
		`{"type":"RECORD","stream":"pre_purchase_orders","record":{"productId":2,"amount":0}}`,
		`garbage`,
		`{"type":"RECORD","record":{"productId":3,"amount":1}}`,
		`{"type":"STATE","value":{"bookmarks":{}}}`,
		`{"type":"RECORD","stream":"buy_orders","record":{"id":"BO-9","line_items":"[{\"productId\":5,\"amount\":1},{\"productId\":6,\"amount\":2}]"}}`,
		`{"type":"ACTIVATE_VERSION","stream":"buy_orders","version":1}`,
	)
	require.NoError(t, err)

	// One buffered batch at STATE, then two split lines
	require.Len(t, importer.payloads, 3)
	assert.Equal(t, 1, importer.payloads[0].Len())
	assert.Equal(t, "A", importer.payloads[0].Items[0].OptiplyID)
	assert.Equal(t, int64(5), importer.payloads[1].Items[0].ProductID)
	assert.Equal(t, int64(6), importer.payloads[2].Items[0].ProductID)

	got := states(t, &out)
	require.Len(t, got, 2)

	first := got[0]["summary"].(map[string]any)["pre_purchase_orders"].(map[string]any)
	assert.Equal(t, float64(1), first["success"])
	assert.Equal(t, float64(1), first["dropped"])

	final := got[1]["summary"].(map[string]any)["buy_orders"].(map[string]any)
	assert.Equal(t, float64(2), final["success"])
	assert.Equal(t, float64(2), final["items"])

	marks := got[1]["bookmarks"].(map[string]any)["buy_orders"].([]any)
	require.Len(t, marks, 2)
	assert.Equal(t, "BO-9", marks[0].(map[string]any)["id"])

	stats := r.Stats()
	assert.Equal(t, 8, stats.Messages)
	assert.Equal(t, 4, stats.Records)
	assert.Equal(t, 2, stats.Malformed)
	assert.Equal(t, 1, stats.States)
}

func TestRunner_KeepsUpstreamState(t *testing.T) {
	importer := &fakeImporter{}
	var out bytes.Buffer
	r := NewRunner(newRouter(importer), &out)

	err := run(t, r,
		`{"type":"STATE","value":{"bookmarks":{"tap_orders":{"replication_key_value":"2025-08-01"}},"currently_syncing":"tap_orders"}}`,
		`{"type":"RECORD","stream":"buy_orders","record":{"productId":1,"amount":1,"optiplyId":"BO-1"}}`,
		`{"type":"STATE","value":{"bookmarks":{"tap_orders":{"replication_key_value":"2025-08-02"}}}}`,
		`{"type":"STATE","value":"not an object"}`,
	)
	require.NoError(t, err)

	got := states(t, &out)
	require.Len(t, got, 4)

	assert.Equal(t, "tap_orders", got[0]["currently_syncing"])
	assert.Equal(t, "2025-08-01", got[0]["bookmarks"].(map[string]any)["tap_orders"].(map[string]any)["replication_key_value"])

	// Latest upstream state wins; a non-object value keeps the previous one
	for _, st := range got[2:] {
		marks := st["bookmarks"].(map[string]any)
		assert.Equal(t, "2025-08-02", marks["tap_orders"].(map[string]any)["replication_key_value"])
		require.Contains(t, marks, "buy_orders")
		assert.Equal(t, "BO-1", marks["buy_orders"].([]any)[0].(map[string]any)["id"])
		assert.NotContains(t, st, "currently_syncing")
		assert.Contains(t, st, "summary")
	}
}

func TestRunner_StateWithoutUpstream(t *testing.T) {
	r := NewRunner(newRouter(&fakeImporter{}), &bytes.Buffer{})
	assert.Equal(t, r.router.Tracker().Snapshot(), r.State())
}

func TestDecodeState(t *testing.T) {
	v, err := decodeState(json.RawMessage(`{"bookmarks":{"s":{"offset":12345678901234567}}}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567"), v["bookmarks"].(map[string]any)["s"].(map[string]any)["offset"])

	for _, raw := range []string{`null`, `[1]`, `"x"`} {
		_, err := decodeState(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrInvalidMessage, raw)
	}
}

func TestRunner_UnknownStreamIsFatal(t *testing.T) {
	importer := &fakeImporter{}
	var out bytes.Buffer
	r := NewRunner(newRouter(importer), &out)

	err := run(t, r,
		`{"type":"RECORD","stream":"pre_purchase_orders","record":{"productId":1,"amount":2}}`,
		`{"type":"RECORD","stream":"invoices","record":{"productId":1,"amount":2}}`,
	)
	assert.ErrorIs(t, err, prepurchase.ErrUnknownStream)
	assert.Empty(t, out.String())
}

func TestRunner_CredentialsUnavailableIsFatal(t *testing.T) {
	importer := &fakeImporter{err: prepurchase.ErrCredentialsUnavailable}
	var out bytes.Buffer

	err := run(t, NewRunner(newRouter(importer), &out),
		`{"type":"RECORD","stream":"buy_orders","record":{"productId":1,"amount":2}}`,
	)
	assert.ErrorIs(t, err, prepurchase.ErrCredentialsUnavailable)
}

func TestRunner_SubmissionFailureIsStateUpdate(t *testing.T) {
	importer := &fakeImporter{err: prepurchase.ErrSubmissionFailed}
	var out bytes.Buffer

	err := run(t, NewRunner(newRouter(importer), &out),
		`{"type":"RECORD","stream":"buy_orders","record":{"productId":1,"amount":2}}`,
	)
	require.NoError(t, err)

	got := states(t, &out)
	require.Len(t, got, 1)
	marks := got[0]["bookmarks"].(map[string]any)["buy_orders"].([]any)
	mark := marks[0].(map[string]any)
	assert.Equal(t, false, mark["success"])
	assert.Contains(t, mark["error"], "submission failed")
}

func TestRunner_SchemaValidation(t *testing.T) {
	importer := &fakeImporter{}
	var out bytes.Buffer
	r := NewRunner(newRouter(importer), &out, WithSchemaValidation(true))

	err := run(t, r,
		`{"type":"SCHEMA","stream":"buy_orders","schema":{"type":"object","required":["productId"],"properties":{"productId":{"type":"integer"}}}}`,
		`{"type":"RECORD","stream":"buy_orders","record":{"productId":"abc","amount":1}}`,
		`{"type":"RECORD","stream":"buy_orders","record":{"productId":7,"amount":1}}`,
	)
	require.NoError(t, err)
	assert.True(t, r.Schemas().Has("buy_orders"))
	require.Len(t, importer.payloads, 1)
	assert.Equal(t, int64(7), importer.payloads[0].Items[0].ProductID)

	sum := states(t, &out)[0]["summary"].(map[string]any)["buy_orders"].(map[string]any)
	assert.Equal(t, float64(1), sum["dropped"])
}

func TestRunner_CancelledStillDrains(t *testing.T) {
	importer := &fakeImporter{}
	var out bytes.Buffer
	router := newRouter(importer)
	r := NewRunner(router, &out)

	ctx, cancel := context.WithCancel(context.Background())
	src := &cancellingSource{
		lines:  []string{`{"type":"RECORD","stream":"pre_purchase_orders","record":{"productId":1,"amount":2}}`},
		cancel: cancel,
	}

	require.NoError(t, r.Run(ctx, src))
	assert.Len(t, importer.payloads, 1)
	assert.Len(t, states(t, &out), 1)
}

// cancellingSource yields its lines, then cancels the run
type cancellingSource struct {
	lines  []string
	cancel context.CancelFunc
}

func (s *cancellingSource) Next(ctx context.Context) ([]byte, error) {
	if len(s.lines) > 0 {
		line := s.lines[0]
		s.lines = s.lines[1:]
		return []byte(line), nil
	}
	s.cancel()
	return nil, ctx.Err()
}

func (s *cancellingSource) Close() error { return nil }

func TestSchemaRegistry(t *testing.T) {
	reg := NewSchemaRegistry()
	assert.NoError(t, reg.Validate("buy_orders", prepurchase.Record{"x": 1}), "no schema accepts all")

	assert.Error(t, reg.Register("buy_orders", json.RawMessage(`{"type": 12}`)))
	require.NoError(t, reg.Register("buy_orders", json.RawMessage(`{"type":"object","properties":{"amount":{"type":"number"}}}`)))

	err := reg.Validate("buy_orders", prepurchase.Record{"amount": "many"})
	assert.ErrorIs(t, err, prepurchase.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "amount")
	assert.NoError(t, reg.Validate("buy_orders", prepurchase.Record{"amount": json.Number("3")}))
}
