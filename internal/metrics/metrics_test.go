package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGatewayCall(t *testing.T) {
	m := New("test")

	m.RecordGatewayCall("chat", "openai", nil, time.Second)
	m.RecordGatewayCall("chat", "openai", errors.New("boom"), time.Second)
	m.RecordGatewayCall("chat", "openai", errors.New("boom"), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCallsTotal.WithLabelValues("chat", "openai", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GatewayCallsTotal.WithLabelValues("chat", "openai", "error")))
}

func TestCaptureGauge(t *testing.T) {
	m := New("test")

	m.CaptureStarted()
	m.CaptureStarted()
	m.CaptureEnded()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CaptureSessionsActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "/", 200, time.Millisecond)
		m.RecordTurn("text", "ok")
		m.RecordGatewayCall("tts", "mock", nil, 0)
		m.CaptureStarted()
		m.CaptureEnded()
		m.RecordRateLimitHit("/api/chat")
	})
}

func TestHandlerExposition(t *testing.T) {
	m := New("test")
	m.RecordTurn("voice", "degraded")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_turns_total{kind="voice",outcome="degraded"} 1`))
}
