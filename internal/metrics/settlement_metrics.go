package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics содержит метрики расчётных операций по заказам.
type SettlementMetrics struct {
	// Счётчики списаний
	chargesStarted   prometheus.Counter
	chargesSucceeded prometheus.Counter
	chargesFailed    prometheus.Counter
	chargesRejected  prometheus.Counter

	// Счётчики возвратов
	refundsStarted   prometheus.Counter
	refundsSucceeded prometheus.Counter
	refundsRejected  prometheus.Counter

	// Гистограмма времени удержания блокировки заказа
	settlementDuration prometheus.Histogram

	// Счётчик событий outbox
	outboxEvents prometheus.Counter

	// Gauge активных расчётов
	activeSettlements prometheus.Gauge
}

// NewSettlementMetrics создаёт метрики с регистрацией в DefaultRegisterer.
func NewSettlementMetrics() *SettlementMetrics {
	return newSettlementMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSettlementMetricsWithRegisterer(registerer prometheus.Registerer) *SettlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SettlementMetrics{
		chargesStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "roms_settlement_charges_started_total",
			Help: "Total number of charge operations started",
		}),
		chargesSucceeded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "roms_settlement_charges_succeeded_total",
			Help: "Total number of charge operations that settled successfully",
		}),
		chargesFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "roms_settlement_charges_failed_total",
			Help: "Total number of charge operations failed at the strategy layer",
		}),
		chargesRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "roms_settlement_charges_rejected_total",
			Help: "Total number of charge operations rejected by business rules",
		}),
		refundsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "roms_settlement_refunds_started_total",
			Help: "Total number of refund operations started",
		}),
		refundsSucceeded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "roms_settlement_refunds_succeeded_total",
			Help: "Total number of refund operations settled successfully",
		}),
		refundsRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "roms_settlement_refunds_rejected_total",
			Help: "Total number of refund operations rejected by business rules",
		}),
		settlementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "roms_settlement_duration_seconds",
			Help:    "Duration of settlement operations while holding the order lock",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "roms_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeSettlements: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "roms_active_settlements",
			Help: "Number of settlement operations currently holding an order lock",
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

// RecordChargeStarted увеличивает счётчик начатых списаний.
func (m *SettlementMetrics) RecordChargeStarted() {
	m.chargesStarted.Inc()
	m.activeSettlements.Inc()
}

// RecordChargeSucceeded увеличивает счётчик успешных списаний.
func (m *SettlementMetrics) RecordChargeSucceeded() {
	m.chargesSucceeded.Inc()
}

// RecordChargeFailed увеличивает счётчик списаний, отклонённых шлюзом.
func (m *SettlementMetrics) RecordChargeFailed() {
	m.chargesFailed.Inc()
}

// RecordChargeRejected увеличивает счётчик списаний, отклонённых бизнес-правилами.
func (m *SettlementMetrics) RecordChargeRejected() {
	m.chargesRejected.Inc()
}

// RecordRefundStarted увеличивает счётчик начатых возвратов.
func (m *SettlementMetrics) RecordRefundStarted() {
	m.refundsStarted.Inc()
	m.activeSettlements.Inc()
}

// RecordRefundSucceeded увеличивает счётчик успешных возвратов.
func (m *SettlementMetrics) RecordRefundSucceeded() {
	m.refundsSucceeded.Inc()
}

// RecordRefundRejected увеличивает счётчик отклонённых возвратов.
func (m *SettlementMetrics) RecordRefundRejected() {
	m.refundsRejected.Inc()
}

// RecordSettlementFinished фиксирует длительность операции и снимает её с учёта.
func (m *SettlementMetrics) RecordSettlementFinished(duration time.Duration) {
	m.settlementDuration.Observe(duration.Seconds())
	m.activeSettlements.Dec()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *SettlementMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
