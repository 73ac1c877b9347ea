package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garage",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garage",
			Name:      "workflow_transitions_total",
			Help:      "Applied status transitions by entity kind and target status.",
		},
		[]string{"entity", "status"},
	)

	conflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garage",
			Name:      "write_conflicts_total",
			Help:      "Conditional writes invalidated by a concurrent transition.",
		},
		[]string{"entity"},
	)

	invoicesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "garage",
			Name:      "invoices_generated_total",
			Help:      "Invoices created by job card completion.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, transitions, conflicts, invoicesGenerated)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncTransition records an applied workflow transition.
func IncTransition(entity, status string) {
	transitions.WithLabelValues(entity, status).Inc()
}

// IncConflict records a conditional write that affected zero rows.
func IncConflict(entity string) {
	conflicts.WithLabelValues(entity).Inc()
}

// IncInvoiceGenerated records one generated invoice.
func IncInvoiceGenerated() {
	invoicesGenerated.Inc()
}
