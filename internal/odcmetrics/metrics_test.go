package odcmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.RecordRequest("Submit", "ok", 25*time.Millisecond)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	if !containsCounterValue(metricFamilies, "odc_requests_total", 1) {
		t.Errorf("expected odc_requests_total to have a sample with value 1")
	}
}

func TestSetSessionGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.SetSessionGauges(3, 42)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	if !containsGaugeValue(metricFamilies, "odc_sessions_total", 3) {
		t.Errorf("expected odc_sessions_total = 3")
	}
	if !containsGaugeValue(metricFamilies, "odc_slots_total", 42) {
		t.Errorf("expected odc_slots_total = 42")
	}
}

func containsCounterValue(families []*dto.MetricFamily, name string, want float64) bool {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if m.GetCounter().GetValue() == want {
				return true
			}
		}
	}
	return false
}

func containsGaugeValue(families []*dto.MetricFamily, name string, want float64) bool {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if m.GetGauge().GetValue() == want {
				return true
			}
		}
	}
	return false
}
