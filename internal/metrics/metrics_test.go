package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestPrometheusCountsByEvent(t *testing.T) {
	p := NewPrometheus()
	p.Inc("loginSuccess")
	p.Inc("loginSuccess")
	p.Inc("loginFailure")

	if got := testutil.ToFloat64(p.events.WithLabelValues("loginSuccess")); got != 2 {
		t.Fatalf("expected 2 loginSuccess, got %v", got)
	}
	if got := testutil.ToFloat64(p.events.WithLabelValues("loginFailure")); got != 1 {
		t.Fatalf("expected 1 loginFailure, got %v", got)
	}
}

func TestPrometheusHandlerExposesCounters(t *testing.T) {
	p := NewPrometheus()
	if err := p.RegisterDropped(func() uint64 { return 7 }); err != nil {
		t.Fatalf("RegisterDropped: %v", err)
	}
	p.Inc("logout")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `matchauth_security_events_total{event="logout"} 1`) {
		t.Fatalf("missing events counter in:\n%s", body)
	}
	if !strings.Contains(body, "matchauth_audit_dropped_total 7") {
		t.Fatalf("missing dropped counter in:\n%s", body)
	}
}

func TestOTelCountsByEvent(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	o, err := NewOTel(provider.Meter("matchauth-test"))
	if err != nil {
		t.Fatalf("NewOTel: %v", err)
	}
	if err := o.RegisterDropped(func() uint64 { return 2 }); err != nil {
		t.Fatalf("RegisterDropped: %v", err)
	}
	defer func() {
		if err := o.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Inc("refreshIssued")
		}()
	}
	wg.Wait()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	found := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				found[m.Name] += dp.Value
			}
		}
	}
	if found["matchauth_security_events_total"] != 5 {
		t.Fatalf("expected 5 events, got %v", found)
	}
	if found["matchauth_audit_dropped_total"] != 2 {
		t.Fatalf("expected 2 dropped, got %v", found)
	}
}

func TestNewOTelRejectsNilMeter(t *testing.T) {
	if _, err := NewOTel(nil); err == nil {
		t.Fatal("expected error for nil meter")
	}
}

func TestValidateExporter(t *testing.T) {
	for _, ok := range []string{ExporterPrometheus, ExporterOTel, ExporterNone} {
		if err := ValidateExporter(ok); err != nil {
			t.Fatalf("ValidateExporter(%q): %v", ok, err)
		}
	}
	if err := ValidateExporter("statsd"); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

var _ Counter = Nop{}
var _ Counter = (*Prometheus)(nil)
var _ Counter = (*OTel)(nil)
