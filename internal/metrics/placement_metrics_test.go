package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewPlacementMetrics(t *testing.T) {
	metrics := newPlacementMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newPlacementMetricsWithRegisterer should not return nil")
	}

	if metrics.placementStarted == nil {
		t.Error("placementStarted counter should not be nil")
	}
	if metrics.placementCompleted == nil {
		t.Error("placementCompleted counter should not be nil")
	}
	if metrics.placementRejected == nil {
		t.Error("placementRejected counter should not be nil")
	}
	if metrics.placementFailed == nil {
		t.Error("placementFailed counter should not be nil")
	}
	if metrics.stockConflicts == nil {
		t.Error("stockConflicts counter should not be nil")
	}
	if metrics.placementDuration == nil {
		t.Error("placementDuration histogram should not be nil")
	}
	if metrics.stepDuration == nil {
		t.Error("stepDuration histogram vec should not be nil")
	}
	if metrics.activePlacements == nil {
		t.Error("activePlacements gauge should not be nil")
	}
}

func TestNewPlacementMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	// Повторная регистрация в том же registry должна переиспользовать коллекторы.
	first := newPlacementMetricsWithRegisterer(reg)
	second := newPlacementMetricsWithRegisterer(reg)

	first.RecordStockConflict()
	second.RecordStockConflict()

	metric := &dto.Metric{}
	if err := first.stockConflicts.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordPlacementStarted(t *testing.T) {
	reg := prometheus.NewRegistry()

	placementStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_placement_started_total",
		Help: "Test counter",
	})
	activePlacements := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_active_placements",
		Help: "Test gauge",
	})

	reg.MustRegister(placementStarted, activePlacements)

	metrics := &PlacementMetrics{
		placementStarted: placementStarted,
		activePlacements: activePlacements,
	}

	metrics.RecordPlacementStarted()

	metric := &dto.Metric{}
	if err := placementStarted.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}

	gaugeMetric := &dto.Metric{}
	if err := activePlacements.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected active placements 1.0, got %f", gaugeMetric.Gauge.GetValue())
	}

	metrics.RecordPlacementFinished()

	gaugeMetric = &dto.Metric{}
	if err := activePlacements.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 0.0 {
		t.Errorf("expected active placements back to 0.0, got %f", gaugeMetric.Gauge.GetValue())
	}
}

func TestRecordStockConflict(t *testing.T) {
	reg := prometheus.NewRegistry()

	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_stock_conflicts_total",
		Help: "Test counter",
	})
	reg.MustRegister(stockConflicts)

	metrics := &PlacementMetrics{stockConflicts: stockConflicts}
	metrics.RecordStockConflict()
	metrics.RecordStockConflict()

	metric := &dto.Metric{}
	if err := stockConflicts.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordPlacementDuration(t *testing.T) {
	reg := prometheus.NewRegistry()

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_placement_duration_seconds",
		Help:    "Test histogram",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(duration)

	metrics := &PlacementMetrics{placementDuration: duration}
	metrics.RecordPlacementDuration(150 * time.Millisecond)

	metric := &dto.Metric{}
	if err := duration.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected 1 sample, got %d", metric.Histogram.GetSampleCount())
	}
}
