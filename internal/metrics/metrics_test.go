package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAndExpose(t *testing.T) {
	m := New("test")
	m.RecordAttempt("error")
	m.RecordAttempt("error")
	m.RecordAttempt("ok")
	m.RecordFallback()
	m.RecordCommand("ON", "ok")

	if got := testutil.ToFloat64(m.GenerateAttempts.WithLabelValues("error")); got != 2 {
		t.Errorf("error attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "test_device_commands_total") {
		t.Errorf("exposition missing device commands:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordAttempt("ok")
	m.RecordFallback()
	m.RecordCommand("OFF", "error")
	m.RecordTransition("idle", "listening")
	m.RecordStale()
	m.SessionOpened()
	m.SessionClosed()
	m.RecordGateway("generate", 200)
}
