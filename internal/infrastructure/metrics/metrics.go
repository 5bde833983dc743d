package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	JournalEntriesPosted *prometheus.CounterVec
	JournalReversals     prometheus.Counter

	// Document metrics
	DocumentsCreated *prometheus.CounterVec
	DocumentsPosted  *prometheus.CounterVec
	DocumentsVoided  *prometheus.CounterVec
	PaymentsApplied  *prometheus.CounterVec
	PaymentAmount    prometheus.Histogram
	CreditsApplied   *prometheus.CounterVec

	// Check metrics
	ChecksIssued  prometheus.Counter
	ChecksPrinted prometheus.Counter
	ChecksVoided  prometheus.Counter

	// Bank metrics
	TransfersCreated     prometheus.Counter
	TransferDuration     prometheus.Histogram
	BankTransactions     *prometheus.CounterVec
	Reconciliations      *prometheus.CounterVec
	ReconciliationGuards *prometheus.CounterVec

	// Errors by operation and kind
	OperationErrors *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		JournalEntriesPosted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_journal_entries_posted_total",
				Help: "Total journal entries posted by source",
			},
			[]string{"source"},
		),
		JournalReversals: f.NewCounter(prometheus.CounterOpts{
			Name: "genfin_journal_reversals_total",
			Help: "Total reversing journal entries",
		}),

		// Document metrics
		DocumentsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_documents_created_total",
				Help: "Total invoices and bills created",
			},
			[]string{"direction"},
		),
		DocumentsPosted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_documents_posted_total",
				Help: "Total invoices sent and bills posted",
			},
			[]string{"direction"},
		),
		DocumentsVoided: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_documents_voided_total",
				Help: "Total invoices and bills voided",
			},
			[]string{"direction"},
		),
		PaymentsApplied: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_payments_applied_total",
				Help: "Total payments applied by direction and method",
			},
			[]string{"direction", "method"},
		),
		PaymentAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "genfin_payment_amount",
			Help:    "Applied payment amounts in major units",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		CreditsApplied: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_credits_applied_total",
				Help: "Total credit memo applications",
			},
			[]string{"direction"},
		),

		// Check metrics
		ChecksIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "genfin_checks_issued_total",
			Help: "Total checks written",
		}),
		ChecksPrinted: f.NewCounter(prometheus.CounterOpts{
			Name: "genfin_checks_printed_total",
			Help: "Total checks printed, reprints included",
		}),
		ChecksVoided: f.NewCounter(prometheus.CounterOpts{
			Name: "genfin_checks_voided_total",
			Help: "Total checks voided",
		}),

		// Bank metrics
		TransfersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "genfin_transfers_created_total",
			Help: "Total bank transfers",
		}),
		TransferDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "genfin_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: prometheus.DefBuckets,
		}),
		BankTransactions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_bank_transactions_total",
				Help: "Total bank register rows by type",
			},
			[]string{"type"},
		),
		Reconciliations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_reconciliations_total",
				Help: "Reconciliation outcomes",
			},
			[]string{"outcome"},
		),
		ReconciliationGuards: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_reconciliation_start_guard_total",
				Help: "Reconciliation start guard acquisitions",
			},
			[]string{"result"},
		),

		OperationErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_operation_errors_total",
				Help: "Total failed operations by error kind",
			},
			[]string{"operation", "kind"},
		),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genfin_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "genfin_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "genfin_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
	}
}
