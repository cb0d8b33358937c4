package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Record methods
// are nil-safe so components can run without metrics wired (tests, tools).
type Metrics struct {
	RecordsSubmitted *prometheus.CounterVec
	Registrations    *prometheus.CounterVec
	Verifications    *prometheus.CounterVec
	RepairRuns       prometheus.Counter
	RepairRecovered  prometheus.Counter
	LedgerOpDuration *prometheus.HistogramVec
	RequestDuration  *prometheus.HistogramVec
	TamperDetected   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RecordsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriledger_records_submitted_total",
			Help: "Total number of records submitted, by kind",
		}, []string{"kind"}),
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriledger_registrations_total",
			Help: "Ledger registration attempts by outcome (registered, pending, failed)",
		}, []string{"outcome"}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriledger_verifications_total",
			Help: "Verification results by reason",
		}, []string{"reason"}),
		RepairRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veriledger_repair_runs_total",
			Help: "Total number of repair sweeps executed",
		}),
		RepairRecovered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veriledger_repair_recovered_total",
			Help: "Pending records successfully registered by repair",
		}),
		LedgerOpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veriledger_ledger_op_duration_seconds",
			Help:    "Latency of ledger operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veriledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		TamperDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veriledger_tamper_detected_total",
			Help: "Verifications that found a stored payload diverging from its registered hash",
		}),
	}
}

func (m *Metrics) RecordSubmission(kind string) {
	if m == nil {
		return
	}
	m.RecordsSubmitted.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordVerification(reason string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordRepairRun() {
	if m == nil {
		return
	}
	m.RepairRuns.Inc()
}

func (m *Metrics) RecordRepairRecovered() {
	if m == nil {
		return
	}
	m.RepairRecovered.Inc()
}

func (m *Metrics) ObserveLedgerOp(op string, start time.Time) {
	if m == nil {
		return
	}
	m.LedgerOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveRequest(route, method string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordTamperDetected() {
	if m == nil {
		return
	}
	m.TamperDetected.Inc()
}
