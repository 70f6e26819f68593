package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	casesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coc_cases_submitted_total",
			Help: "Total number of cases submitted and assigned",
		},
		[]string{"office"},
	)

	casesClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coc_cases_closed_total",
			Help: "Total number of cases closed with a decision",
		},
		[]string{"office", "decision"},
	)

	submissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coc_submissions_rejected_total",
			Help: "Total number of rejected submissions",
		},
		[]string{"reason"},
	)

	reassignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coc_reassignments_total",
			Help: "Total number of case reassignments",
		},
		[]string{"from_office", "to_office"},
	)

	agentLoad = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coc_agent_load",
			Help: "Active cases per agent",
		},
		[]string{"office", "agent"},
	)

	rotationCounter = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coc_rotation_counter",
			Help: "Office assignments made since startup",
		},
	)

	eventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coc_event_publish_failures_total",
			Help: "Domain events that could not be published",
		},
		[]string{"type"},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries created",
		},
	)

	// Database metrics
	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of acquired database connections",
		},
	)
)

// Rejection reasons
const (
	RejectNoAgent   = "no_agent"
	RejectDocuments = "documents"
	RejectInvalid   = "invalid"
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware. Paths are labelled with the
// chi route pattern so case IDs do not create new series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// --- Business metric helpers ---

// RecordCaseSubmitted records a case assigned to office
func RecordCaseSubmitted(office string) {
	casesSubmitted.WithLabelValues(office).Inc()
}

// RecordCaseClosed records a finalized case
func RecordCaseClosed(office, decision string) {
	casesClosed.WithLabelValues(office, decision).Inc()
}

// RecordSubmissionRejected records a submission that created no case
func RecordSubmissionRejected(reason string) {
	submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordReassignment records a case moving between agents
func RecordReassignment(fromOffice, toOffice string) {
	reassignments.WithLabelValues(fromOffice, toOffice).Inc()
}

// RecordAgentLoad sets the current load of an agent
func RecordAgentLoad(office, agent string, load int) {
	agentLoad.WithLabelValues(office, agent).Set(float64(load))
}

// RecordRotation sets the rotation counter
func RecordRotation(counter uint64) {
	rotationCounter.Set(float64(counter))
}

// RecordEventPublishFailure records an event lost on publish
func RecordEventPublishFailure(eventType string) {
	eventPublishFailures.WithLabelValues(eventType).Inc()
}

// RecordAuditEntry records an audit entry creation
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

// RecordDBConnections records acquired database connections
func RecordDBConnections(count int) {
	dbConnectionsActive.Set(float64(count))
}
