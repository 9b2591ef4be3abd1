package observability

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("json to stdout", func(t *testing.T) {
		logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"})
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("tee to rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wisespirit.log")
		logger, err := NewLogger(config.ObservabilityConfig{
			LogLevel:      "debug",
			LogFormat:     "console",
			LogFile:       path,
			LogMaxSizeMB:  1,
			LogMaxBackups: 1,
		})
		require.NoError(t, err)

		logger.Info("decision made")
		_ = logger.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"decision made"`)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger(config.ObservabilityConfig{LogLevel: "loud"})
		assert.Error(t, err)
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.IncDecision("REUSE", "rules")
	m.IncDecision("REUSE", "rules")
	m.IncInterpretation(true)
	m.IncInterpretation(false)
	m.IncNarration(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("REUSE", "rules")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Interpretations.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Interpretations.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Narrations.WithLabelValues(ResultFailure)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncDecision("DISCARD", "ai")
		m.IncInterpretation(true)
		m.IncNarration(true)
	})
	assert.Nil(t, m.Registry())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(next))
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := NewMetrics()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/admin/policies/{airline}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/policies/Emirates", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `route="/api/v1/admin/policies/{airline}"`))
	assert.Contains(t, body, `status="404"`)
}
