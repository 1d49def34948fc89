package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerProvider_DisabledKeepsBase(t *testing.T) {
	ctx := context.Background()
	base := zap.NewNop()

	for _, cfg := range []Config{
		{Enabled: false, Logs: true},
		{Enabled: true, Logs: false, CollectorEndpoint: "localhost:14317"},
	} {
		lp, err := NewLoggerProvider(ctx, cfg, base)
		require.NoError(t, err)
		assert.False(t, lp.IsEnabled())
		assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
		assert.NoError(t, lp.Shutdown(ctx))
	}
}

func TestLoggerProvider_BridgeTeesToBase(t *testing.T) {
	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, Config{
		Enabled:           true,
		Logs:              true,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "target-vendit-test",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	require.True(t, lp.IsEnabled())

	core, logs := observer.New(zapcore.DebugLevel)
	bridged := lp.Bridge(zap.New(core), zapcore.WarnLevel)
	bridged.Info("Submitted batch", zap.Int("items", 3))
	assert.Equal(t, 1, logs.Len())

	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	_ = lp.Shutdown(shutdownCtx)
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))

	log := zap.New(core).With(zap.String("stream", "buy_orders"))
	log.Info("dropped")
	log.Warn("kept")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "buy_orders", entry.ContextMap()["stream"])
}
