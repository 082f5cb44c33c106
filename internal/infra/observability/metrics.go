package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the ledger service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	operationsTotal *prometheus.CounterVec
	recordsTotal    *prometheus.CounterVec
	eventsTotal     *prometheus.CounterVec
	snapshotSaves   prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardpay_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpay_operations_total",
				Help: "Total ledger operations by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		recordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpay_transaction_records_total",
				Help: "Total transaction records written, by kind.",
			},
			[]string{"kind"},
		),
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpay_events_published_total",
				Help: "Total ledger events handed to the publisher, by outcome.",
			},
			[]string{"status"},
		),
		snapshotSaves: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cardpay_snapshot_saves_total",
				Help: "Total committed snapshot updates.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrOperation increments the operation counter with an outcome label.
func (m *Metrics) IncrOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// IncrRecord increments the written-record counter for a kind.
func (m *Metrics) IncrRecord(kind string) {
	m.recordsTotal.WithLabelValues(kind).Inc()
}

// IncrEventPublished increments the event counter with an outcome label.
func (m *Metrics) IncrEventPublished(status string) {
	m.eventsTotal.WithLabelValues(status).Inc()
}

// IncrSnapshotSave increments the committed-update counter.
func (m *Metrics) IncrSnapshotSave() {
	m.snapshotSaves.Inc()
}

// GetLedgerStats returns a snapshot of ledger counters suitable for the
// GET /api/stats endpoint.
func (m *Metrics) GetLedgerStats() *domain.LedgerStats {
	transfers := getCounterValue(m.operationsTotal, "transfer", "success")
	withdrawals := getCounterValue(m.operationsTotal, "withdraw", "success")
	errorsTotal := getCounterValue(m.operationsTotal, "transfer", "error") +
		getCounterValue(m.operationsTotal, "withdraw", "error")

	total := transfers + withdrawals + errorsTotal
	errorRate := float64(0)
	if total > 0 {
		errorRate = errorsTotal / total
	}

	return &domain.LedgerStats{
		TransfersTotal:    int64(transfers),
		WithdrawalsTotal:  int64(withdrawals),
		DebitsRecorded:    int64(getCounterValue(m.recordsTotal, domain.KindDebit)),
		CreditsRecorded:   int64(getCounterValue(m.recordsTotal, domain.KindCredit)),
		OperationErrors:   int64(errorsTotal),
		EventsPublished:   int64(getCounterValue(m.eventsTotal, "success")),
		EventPublishFails: int64(getCounterValue(m.eventsTotal, "error")),
		ErrorRate:         errorRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec
// for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
