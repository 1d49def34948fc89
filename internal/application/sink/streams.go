package sink

import "github.com/optiply/target-vendit/internal/domain/prepurchase"

// Stream names accepted by the connector
const (
	StreamPrePurchaseOrders = "pre_purchase_orders"
	StreamBuyOrders         = "buy_orders"
)

// Settings are the sink settings shared by all streams
type Settings struct {
	// Mode applies to the pre-purchase-order stream; buy orders are always per item
	Mode         Mode
	MaxBatchSize int
	Defaults     prepurchase.Defaults
}

// RegisterStreams registers the connector's streams on r, each submitting through importer.
func RegisterStreams(r *Router, importer prepurchase.Importer, settings Settings, opts ...Option) {
	r.Register(StreamPrePurchaseOrders, func() *Sink {
		return New(Config{
			Stream:       StreamPrePurchaseOrders,
			Mode:         settings.Mode,
			MaxBatchSize: settings.MaxBatchSize,
			Defaults:     settings.Defaults,
		}, importer, opts...)
	})
	r.Register(StreamBuyOrders, func() *Sink {
		return New(Config{
			Stream:       StreamBuyOrders,
			Mode:         ModePerItem,
			MaxBatchSize: settings.MaxBatchSize,
			Defaults:     settings.Defaults,
		}, importer, opts...)
	})
}
