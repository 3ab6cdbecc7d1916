package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Cash register metrics
	RegistersOpened  prometheus.Counter
	RegistersClosed  prometheus.Counter
	Movements        *prometheus.CounterVec
	RegisterVariance prometheus.Histogram

	// Billing metrics
	AccountsCreated   *prometheus.CounterVec
	AccountsCancelled *prometheus.CounterVec
	PaymentsTotal     *prometheus.CounterVec
	PaymentAmount     prometheus.Histogram
	PaymentDuration   prometheus.Histogram
	AccountsOverdue   prometheus.Counter

	// Enrollment metrics
	EnrollmentsCreated prometheus.Counter

	// Scheduler metrics
	BillingRuns     *prometheus.CounterVec
	BillingOutcomes *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec

	// Store metrics
	DBRetries *prometheus.CounterVec
}

// New creates and registers all metrics with the default registerer
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics registered with reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistersOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "gymledger_registers_opened_total",
			Help: "Total number of cash register sessions opened",
		}),
		RegistersClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "gymledger_registers_closed_total",
			Help: "Total number of cash register sessions closed",
		}),
		Movements: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_register_movements_total",
				Help: "Total register movements by direction and category",
			},
			[]string{"direction", "category"},
		),
		RegisterVariance: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gymledger_register_variance",
			Help:    "Absolute variance between counted and expected cash at close",
			Buckets: []float64{0.01, 1, 5, 10, 50, 100, 500},
		}),

		AccountsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_accounts_created_total",
				Help: "Total billing accounts created by kind",
			},
			[]string{"kind"},
		),
		AccountsCancelled: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_accounts_cancelled_total",
				Help: "Total billing accounts cancelled by kind",
			},
			[]string{"kind"},
		),
		PaymentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_payments_total",
				Help: "Total payments registered by kind and method",
			},
			[]string{"kind", "method"},
		),
		PaymentAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gymledger_payment_amount",
			Help:    "Payment amounts",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000},
		}),
		PaymentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gymledger_payment_duration_seconds",
			Help:    "Duration of payment registration",
			Buckets: prometheus.DefBuckets,
		}),
		AccountsOverdue: f.NewCounter(prometheus.CounterOpts{
			Name: "gymledger_accounts_overdue_total",
			Help: "Total billing accounts moved to OVERDUE by the sweep",
		}),

		EnrollmentsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "gymledger_enrollments_created_total",
			Help: "Total enrollments created",
		}),

		BillingRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_job_runs_total",
				Help: "Total scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),
		BillingOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_billing_outcomes_total",
				Help: "Recurring billing results per enrollment by outcome",
			},
			[]string{"outcome"},
		),
		JobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gymledger_job_duration_seconds",
				Help:    "Scheduled job duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gymledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_outbox_events_total",
				Help: "Outbox events processed by type and status",
			},
			[]string{"event_type", "status"},
		),
		DBRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gymledger_db_retries_total",
				Help: "Transactions retried after a transient PostgreSQL error, by SQLSTATE",
			},
			[]string{"code"},
		),
	}
}
