package sink

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTracker_Snapshot(t *testing.T) {
	tr := NewStateTracker()
	tr.Apply(StreamBuyOrders,
		prepurchase.Succeeded("V-1", 1),
		prepurchase.Failed(errors.New("HTTP 400: bad product"), 1),
	)
	tr.Apply(StreamBuyOrders)
	tr.Dropped(StreamBuyOrders, 2)
	tr.Dropped(StreamBuyOrders, 0)

	b, err := json.Marshal(tr.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"bookmarks": {
			"buy_orders": [
				{"id": "V-1", "success": true},
				{"success": false, "error": "HTTP 400: bad product"}
			]
		},
		"summary": {
			"buy_orders": {"success": 1, "fail": 1, "items": 1, "dropped": 2}
		}
	}`, string(b))

	assert.Equal(t, StreamSummary{}, tr.Summary("other"))
}

func TestStateTracker_SnapshotIsCopy(t *testing.T) {
	tr := NewStateTracker()
	tr.Apply(StreamBuyOrders, prepurchase.Succeeded("V-1", 1))

	snap := tr.Snapshot()
	marks := snap["bookmarks"].(map[string]any)[StreamBuyOrders].([]map[string]any)
	marks[0]["id"] = "changed"

	again := tr.Snapshot()["bookmarks"].(map[string]any)[StreamBuyOrders].([]map[string]any)
	assert.Equal(t, "V-1", again[0]["id"])
}

func TestStateTracker_ConcurrentReads(t *testing.T) {
	tr := NewStateTracker()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = tr.Snapshot()
			}
		}()
	}
	for j := 0; j < 100; j++ {
		tr.Apply(StreamPrePurchaseOrders, prepurchase.Succeeded("x", 1))
	}
	wg.Wait()
	assert.Equal(t, 100, tr.Summary(StreamPrePurchaseOrders).Success)
}
