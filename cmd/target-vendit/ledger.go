package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/optiply/target-vendit/internal/infrastructure/config"
	"github.com/optiply/target-vendit/internal/infrastructure/ledger"
)

// openLedger builds the recorder for the configured ledger sinks. The
// recorder is nil when no sink is configured.
func openLedger(cfg *config.Config, runID string) (*ledger.Recorder, func(*zap.Logger), error) {
	var (
		writers []ledger.Writer
		closers []io.Closer
	)
	closeAll := func(log *zap.Logger) {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn("Failed to close ledger", zap.Error(err))
			}
		}
	}

	if !cfg.Ledger.Enabled() {
		return nil, closeAll, nil
	}

	if cfg.Ledger.Dir != "" {
		w, err := ledger.NewFileWriter(cfg.Ledger.Dir, "ledger-"+runID+".jsonl")
		if err != nil {
			return nil, nil, fmt.Errorf("ledger file: %w", err)
		}
		writers = append(writers, w)
	}
	if cfg.Ledger.KafkaTopic != "" {
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, nil, fmt.Errorf("ledger kafka topic %q needs kafka.brokers", cfg.Ledger.KafkaTopic)
		}
		w := ledger.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Ledger.KafkaTopic)
		writers = append(writers, w)
		closers = append(closers, w)
	}
	if cfg.Ledger.PebbleDir != "" {
		store, err := ledger.NewPebbleStore(cfg.Ledger.PebbleDir)
		if err != nil {
			closeAll(zap.NewNop())
			return nil, nil, fmt.Errorf("ledger pebble: %w", err)
		}
		writers = append(writers, store)
		closers = append(closers, store)
	}

	return ledger.NewRecorder(runID, ledger.NewMultiWriter(writers...)), closeAll, nil
}
