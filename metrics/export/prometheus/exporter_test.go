package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	backupcodes "github.com/Vexary/backupcodes"
)

type fakeSource struct {
	snapshot backupcodes.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() backupcodes.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: backupcodes.MetricsSnapshot{
			Counters:   map[backupcodes.MetricID]uint64{},
			Histograms: map[backupcodes.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: backupcodes.MetricsSnapshot{
			Counters: map[backupcodes.MetricID]uint64{
				backupcodes.MetricCodeUsed: 7,
			},
			Histograms: map[backupcodes.MetricID][]uint64{
				backupcodes.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "backupcodes_code_used_total 7") {
		t.Fatalf("expected code_used counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "backupcodes_verify_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "backupcodes_verify_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "backupcodes_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: backupcodes.MetricsSnapshot{
			Counters:   map[backupcodes.MetricID]uint64{backupcodes.MetricCodeUsed: 1},
			Histograms: map[backupcodes.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
