package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)
	metrics.IncSubmission("success")
	metrics.IncSubmission("success")
	metrics.IncSubmission("timeout")
	metrics.IncSimulationFallback()
	metrics.ObserveSessionDuration(120 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "print_order_submissions_total", "outcome", "success"); err != nil {
		t.Fatalf("fetch success submissions: %v", err)
	} else if got != 2 {
		t.Fatalf("expected success=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "print_order_submissions_total", "outcome", "timeout"); err != nil {
		t.Fatalf("fetch timeout submissions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected timeout=1, got %f", got)
	}

	if mf := findMetricFamily(mfs, "checkout_simulation_fallbacks_total"); mf == nil {
		t.Fatal("simulation fallback counter not registered")
	} else if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected fallbacks=1, got %f", got)
	}

	if mf := findMetricFamily(mfs, "checkout_session_duration_seconds"); mf == nil {
		t.Fatal("session duration histogram not registered")
	} else if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestOrderMetricsNilReceiverSafe(t *testing.T) {
	var metrics *OrderMetrics
	metrics.IncSubmission("success")
	metrics.IncSimulationFallback()
	metrics.ObserveSessionDuration(time.Second)

	empty := NewOrderMetrics(nil)
	empty.IncSubmission("")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
