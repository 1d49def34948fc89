package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serve(t *testing.T, logger *zap.Logger, status int, panics bool) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Recovery(logger), GinMiddleware(logger))
	router.GET("/state", func(c *gin.Context) {
		if panics {
			panic("boom")
		}
		c.Status(status)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGinMiddleware_Levels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"success", http.StatusOK, zapcore.DebugLevel},
		{"client error", http.StatusNotFound, zapcore.WarnLevel},
		{"server error", http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			w := serve(t, zap.New(core), tt.status, false)
			assert.Equal(t, tt.status, w.Code)

			entries := logs.FilterMessage("HTTP Request").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)

			fields := entries[0].ContextMap()
			assert.Equal(t, "GET", fields["method"])
			assert.Equal(t, "/state", fields["path"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Contains(t, fields, "latency")
		})
	}
}

func TestGinMiddleware_QuietAtInfo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	serve(t, zap.New(core), http.StatusOK, false)
	assert.Equal(t, 0, logs.Len())
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	w := serve(t, zap.New(core), http.StatusOK, true)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	entries := logs.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}
