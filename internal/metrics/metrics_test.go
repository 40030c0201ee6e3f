package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsUpdates(t *testing.T) {
	m := New()

	m.ObserveCycleDuration(20 * time.Millisecond)
	m.RecordSnapshot(time.Unix(100, 0), 4096)
	m.RecordSnapshot(time.Unix(160, 0), 8192)
	m.IncReadErrors()
	m.IncSnapshotErrors()
	m.IncSnapshotErrors()
	m.IncNotifyErrors()

	if got := testutil.ToFloat64(m.snapshotsTotal); got != 2 {
		t.Fatalf("expected snapshots 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastSnapshotTimestamp); got != 160 {
		t.Fatalf("expected last snapshot 160, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastSnapshotSizeBytes); got != 8192 {
		t.Fatalf("expected last size 8192, got %v", got)
	}
	if got := testutil.ToFloat64(m.readErrorsTotal); got != 1 {
		t.Fatalf("expected read errors 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.snapshotErrorsTotal); got != 2 {
		t.Fatalf("expected snapshot errors 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.notifyErrorsTotal); got != 1 {
		t.Fatalf("expected notify errors 1, got %v", got)
	}
	if count := testutil.CollectAndCount(m.cycleDurationSeconds); count == 0 {
		t.Fatalf("expected cycle duration histogram to be collected")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	m.ObserveCycleDuration(time.Second)
	m.RecordSnapshot(time.Now(), 1)
	m.IncReadErrors()
	m.IncSnapshotErrors()
	m.IncNotifyErrors()
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.IncReadErrors()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "save_snapper_read_errors_total 1") {
		t.Fatalf("metrics output missing read errors counter:\n%s", rec.Body.String())
	}
}
