package sink

import (
	"context"
	"sync"
	"time"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"github.com/stretchr/testify/mock"
)

// MockImporter is a mock implementation of prepurchase.Importer
type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) Import(ctx context.Context, payload prepurchase.Payload) (prepurchase.ImportResponse, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(prepurchase.ImportResponse), args.Error(1)
}

// fakeImporter records payloads and answers from a script
type fakeImporter struct {
	mu       sync.Mutex
	payloads []prepurchase.Payload
	respond  func(call int, p prepurchase.Payload) (prepurchase.ImportResponse, error)
}

func (f *fakeImporter) Import(_ context.Context, p prepurchase.Payload) (prepurchase.ImportResponse, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	call := len(f.payloads)
	f.mu.Unlock()
	if f.respond == nil {
		return prepurchase.ImportResponse{StatusCode: 200}, nil
	}
	return f.respond(call, p)
}

func (f *fakeImporter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func directPayload(productID int64, optiplyID string) prepurchase.Payload {
	return prepurchase.Payload{Items: []prepurchase.Item{{
		ProductID:        productID,
		Amount:           1,
		CreationDatetime: "2025-08-18T11:35:51.885Z",
		OptiplyID:        optiplyID,
	}}}
}

type recordingObserver struct {
	NopObserver
	received  int
	skipped   []prepurchase.Skip
	submitted []prepurchase.SubmissionResult
	flushed   int
}

func (o *recordingObserver) RecordReceived(string, prepurchase.Shape) { o.received++ }

func (o *recordingObserver) ItemSkipped(_ string, s prepurchase.Skip) {
	o.skipped = append(o.skipped, s)
}

func (o *recordingObserver) Submitted(_ string, r prepurchase.SubmissionResult, _ time.Duration) {
	o.submitted = append(o.submitted, r)
}

func (o *recordingObserver) BatchFlushed(string, int, int) { o.flushed++ }

type recordingRecorder struct {
	results []prepurchase.SubmissionResult
	err     error
}

func (r *recordingRecorder) Record(_ context.Context, _ string, res prepurchase.SubmissionResult) error {
	r.results = append(r.results, res)
	return r.err
}
