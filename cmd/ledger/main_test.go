package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"github.com/optiply/target-vendit/internal/infrastructure/ledger"
)

func TestDump(t *testing.T) {
	store, err := ledger.NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, ledger.NewEntry("run", "pre_purchase_orders", prepurchase.Succeeded("1", 2), at)))
	require.NoError(t, store.Append(ctx, ledger.NewEntry("run", "buy_orders", prepurchase.Failed(errors.New("HTTP 400"), 1), at.Add(time.Second))))
	require.NoError(t, store.Append(ctx, ledger.NewEntry("run", "buy_orders", prepurchase.Succeeded("2", 1), at.Add(2*time.Second))))

	tests := []struct {
		name  string
		f     filter
		count int
	}{
		{"all", filter{}, 3},
		{"stream", filter{stream: "buy_orders"}, 2},
		{"failed", filter{failedOnly: true}, 1},
		{"stream and failed", filter{stream: "pre_purchase_orders", failedOnly: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := dump(store, &buf, tt.f)
			require.NoError(t, err)
			assert.Equal(t, tt.count, n)
			if tt.count == 0 {
				assert.Empty(t, buf.String())
				return
			}
			assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), tt.count)
		})
	}
}
