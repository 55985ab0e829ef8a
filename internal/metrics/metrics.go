// Package metrics exposes Prometheus instruments for the kanban services.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service counters. A nil *Metrics is valid and records
// nothing, which keeps tests and the shell free of registry plumbing.
type Metrics struct {
	Signups          *prometheus.CounterVec
	LicenceClaims    *prometheus.CounterVec
	BoardOperations  *prometheus.CounterVec
	TaskOperations   *prometheus.CounterVec
	PermissionDenied *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New registers every instrument with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Signups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_signups_total",
			Help: "Signup attempts by outcome",
		}, []string{"outcome"}),
		LicenceClaims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_licence_claims_total",
			Help: "Licence claim attempts by outcome (won, lost)",
		}, []string{"outcome"}),
		BoardOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_board_operations_total",
			Help: "Successful board mutations by operation",
		}, []string{"operation"}),
		TaskOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_task_operations_total",
			Help: "Successful task mutations by operation",
		}, []string{"operation"}),
		PermissionDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_permission_denied_total",
			Help: "Operations rejected by the role capability table",
		}, []string{"operation", "role"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_events_published_total",
			Help: "Domain events handed to the message queue by outcome",
		}, []string{"type", "outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kanban_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncSignup(outcome string) {
	if m == nil {
		return
	}
	m.Signups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncLicenceClaim(won bool) {
	if m == nil {
		return
	}
	outcome := "lost"
	if won {
		outcome = "won"
	}
	m.LicenceClaims.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncBoardOperation(op string) {
	if m == nil {
		return
	}
	m.BoardOperations.WithLabelValues(op).Inc()
}

func (m *Metrics) IncTaskOperation(op string) {
	if m == nil {
		return
	}
	m.TaskOperations.WithLabelValues(op).Inc()
}

func (m *Metrics) IncPermissionDenied(op, role string) {
	if m == nil {
		return
	}
	m.PermissionDenied.WithLabelValues(op, role).Inc()
}

func (m *Metrics) IncEventPublished(eventType string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}

// ObserveRequest records the duration of an HTTP request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(method, route, status string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
}
