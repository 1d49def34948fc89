package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)

	dev := DevelopmentConfig()
	assert.Equal(t, "debug", dev.Level)
	assert.Equal(t, "console", dev.Format)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "default config", cfg: DefaultConfig()},
		{name: "development config", cfg: DevelopmentConfig()},
		{name: "stdout", cfg: &Config{Level: "warn", Format: "json", Output: "stdout"}},
		{name: "file in missing directory", cfg: &Config{Output: filepath.Join(os.TempDir(), "no-such-dir", "x", "log.jsonl")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(DefaultConfig(), &buf)

	logger.Debug("hidden")
	logger.Warn("Skipped item", zap.String("stream", "buy_orders"), zap.Int("line", 2))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Skipped item", entry["msg"])
	assert.Equal(t, "buy_orders", entry["stream"])
	assert.Equal(t, float64(2), entry["line"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "caller")
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(DevelopmentConfig(), &buf)

	logger.Debug("Sink created", zap.String("mode", "buffered"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "Sink created")
	assert.Contains(t, out, `"mode": "buffered"`)
}

func TestCreateWriter(t *testing.T) {
	for _, output := range []string{"", "stderr", "STDOUT"} {
		t.Run(output, func(t *testing.T) {
			w, err := createWriter(output)
			require.NoError(t, err)
			assert.NotNil(t, w)
		})
	}
}

func TestCreateWriterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	logger.Info("file output test")
	require.NoError(t, Sync(logger))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "file output test")
}
