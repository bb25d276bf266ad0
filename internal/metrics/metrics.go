// Package metrics owns the Prometheus collectors of the service. Each Metrics
// value has its own registry so tests can build as many as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	BillingsGenerated   prometheus.Counter
	Payments            *prometheus.CounterVec
	OverpaymentCredited prometheus.Counter
	SweepRuns           *prometheus.CounterVec
	BillingsOverdue     prometheus.Counter
	RemindersSent       prometheus.Counter
	Notifications       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rental_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BillingsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rental_billings_generated_total",
			Help: "Billings created by the billing engine.",
		}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_payments_total",
			Help: "Reconciled payments by method.",
		}, []string{"method"}),
		OverpaymentCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rental_overpayment_credited_total",
			Help: "Sum of overpayments credited to account balances.",
		}),
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_sweep_runs_total",
			Help: "Overdue sweep runs by result.",
		}, []string{"result"}),
		BillingsOverdue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rental_billings_marked_overdue_total",
			Help: "Billings flipped to overdue by the sweep.",
		}),
		RemindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rental_overdue_reminders_total",
			Help: "Overdue reminders dispatched.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_notifications_total",
			Help: "Notification deliveries by channel and result.",
		}, []string{"channel", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.BillingsGenerated,
		m.Payments,
		m.OverpaymentCredited,
		m.SweepRuns,
		m.BillingsOverdue,
		m.RemindersSent,
		m.Notifications,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
