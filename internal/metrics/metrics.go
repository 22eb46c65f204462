package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application collectors. A nil *Metrics records nothing.
type Metrics struct {
	// bookings by operation (create, replace, delete) and outcome
	// (ok, rejected reason, error)
	BookingsTotal *prometheus.CounterVec

	// schedule checks by outcome
	ScheduleChecksTotal *prometheus.CounterVec

	// notification deliveries by backend and status (sent, failed, dropped)
	NotificationsTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cinebook",
				Name:      "bookings_total",
				Help:      "Booking operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		ScheduleChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cinebook",
				Name:      "schedule_checks_total",
				Help:      "Session scheduling checks by outcome",
			},
			[]string{"outcome"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cinebook",
				Name:      "notifications_total",
				Help:      "Booking event deliveries by backend and status",
			},
			[]string{"backend", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(
		m.BookingsTotal,
		m.ScheduleChecksTotal,
		m.NotificationsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

func (m *Metrics) Booking(operation, outcome string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ScheduleCheck(outcome string) {
	if m == nil {
		return
	}
	m.ScheduleChecksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notification(backend, status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(backend, status).Inc()
}

func (m *Metrics) HTTPRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
