package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PlacementMetrics содержит метрики workflow размещения заказа.
type PlacementMetrics struct {
	// Счётчики исходов
	placementStarted   prometheus.Counter
	placementCompleted prometheus.Counter
	placementRejected  prometheus.Counter
	placementFailed    prometheus.Counter
	stockConflicts     prometheus.Counter

	// Гистограммы времени выполнения
	placementDuration prometheus.Histogram
	stepDuration      *prometheus.HistogramVec

	// Счётчики событий timeline/outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для выполняющихся размещений
	activePlacements prometheus.Gauge
}

// NewPlacementMetrics создаёт новый экземпляр метрик размещения.
func NewPlacementMetrics() *PlacementMetrics {
	return newPlacementMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newPlacementMetricsWithRegisterer(registerer prometheus.Registerer) *PlacementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PlacementMetrics{
		placementStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_placement_started_total",
			Help: "Total number of order placement requests started",
		}),
		placementCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_placement_completed_total",
			Help: "Total number of order placements completed with stock applied",
		}),
		placementRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_placement_rejected_total",
			Help: "Total number of placements rejected by validation before any side effect",
		}),
		placementFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_placement_failed_total",
			Help: "Total number of placements failed on persistence before stock mutation",
		}),
		stockConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_placement_stock_conflicts_total",
			Help: "Total number of placements that lost the stock race after the order was persisted",
		}),
		placementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checkout_placement_duration_seconds",
			Help:    "Duration of order placement workflow in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "checkout_placement_step_duration_seconds",
			Help:    "Duration of individual placement steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activePlacements: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "checkout_active_placements",
			Help: "Number of currently running placement workflows",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordPlacementStarted увеличивает счётчик запущенных размещений.
func (m *PlacementMetrics) RecordPlacementStarted() {
	m.placementStarted.Inc()
	m.activePlacements.Inc()
}

// RecordPlacementFinished уменьшает количество активных размещений.
func (m *PlacementMetrics) RecordPlacementFinished() {
	m.activePlacements.Dec()
}

// RecordPlacementCompleted увеличивает счётчик завершённых размещений.
func (m *PlacementMetrics) RecordPlacementCompleted() {
	m.placementCompleted.Inc()
}

// RecordPlacementRejected увеличивает счётчик отклонённых валидацией запросов.
func (m *PlacementMetrics) RecordPlacementRejected() {
	m.placementRejected.Inc()
}

// RecordPlacementFailed увеличивает счётчик ошибок записи заказа.
func (m *PlacementMetrics) RecordPlacementFailed() {
	m.placementFailed.Inc()
}

// RecordStockConflict увеличивает счётчик проигранных гонок за сток.
func (m *PlacementMetrics) RecordStockConflict() {
	m.stockConflicts.Inc()
}

// RecordPlacementDuration записывает время выполнения размещения.
func (m *PlacementMetrics) RecordPlacementDuration(duration time.Duration) {
	m.placementDuration.Observe(duration.Seconds())
}

// RecordStepDuration записывает время выполнения шага workflow.
func (m *PlacementMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *PlacementMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *PlacementMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
