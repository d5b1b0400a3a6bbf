// Package metrics provides Prometheus instrumentation for the EPG and
// lifecycle daemons. Mirrors the teacher's promauto-at-package-init pattern
// (internal/metrics/metrics.go in yourflock-roost) with an Init for
// test-isolated registries, but the metric set itself is this domain's:
// orchestrator throughput, rate-limiter waits, and channel lifecycle ticks
// replace the teacher's streaming/billing/auth counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ── Orchestrator (spec.md §4.9) ───────────────────────────────────────────────

var ProgramsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_programs_emitted_total",
	Help: "Programs emitted by the EPG orchestrator, by category.",
}, []string{"team_id", "category"})

var GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "sportguide_generation_duration_seconds",
	Help:    "Wall-clock duration of one per-team EPG generation run.",
	Buckets: prometheus.DefBuckets,
}, []string{"league"})

var GenerationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_generation_failures_total",
	Help: "Per-team EPG generation failures.",
}, []string{"team_id", "reason"})

var ProviderAPICalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_provider_api_calls_total",
	Help: "Outbound provider API calls, by provider and operation.",
}, []string{"provider", "operation"})

// ── Rate limiter (spec.md §4.1) ───────────────────────────────────────────────

var RateLimitPreemptiveWaits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_ratelimit_preemptive_waits_total",
	Help: "Preemptive rate-limit waits, by provider.",
}, []string{"provider"})

var RateLimitReactiveWaits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_ratelimit_reactive_waits_total",
	Help: "Reactive (429-triggered) rate-limit waits, by provider.",
}, []string{"provider"})

var RateLimitWaitSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_ratelimit_wait_seconds_total",
	Help: "Total seconds spent waiting on rate limits, by provider.",
}, []string{"provider"})

// ── Stream matcher (spec.md §4.5) ─────────────────────────────────────────────

var StreamMatches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_stream_matches_total",
	Help: "Stream-to-event matches, by tier and outcome (matched|miss).",
}, []string{"tier", "outcome"})

// ── Lifecycle engine (spec.md §4.11) ──────────────────────────────────────────

var ChannelsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_managed_channels_created_total",
	Help: "Managed channels created, by event group.",
}, []string{"group_id"})

var ChannelsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_managed_channels_deleted_total",
	Help: "Managed channels soft-deleted, by reason.",
}, []string{"reason"})

var ReconciliationDrift = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_reconciliation_drift_total",
	Help: "Reconciliation discrepancies found, by kind (local_orphan|remote_orphan|metadata_drift).",
}, []string{"kind"})

var SchedulerTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "sportguide_scheduler_tick_duration_seconds",
	Help:    "Duration of one scheduler tick (delete + reconcile + prune).",
	Buckets: prometheus.DefBuckets,
})

// ── HTTP ───────────────────────────────────────────────────────────────────

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sportguide_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"service", "method", "path", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "sportguide_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"service", "method", "path"})

// Handler returns the Prometheus scrape handler, mounted at GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware wraps an HTTP handler to record request counts and latency.
func Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		dur := time.Since(start).Seconds()
		path := sanitizePath(r.URL.Path)
		status := strconv.Itoa(rw.status)
		HTTPRequests.WithLabelValues(service, r.Method, path, status).Inc()
		HTTPDuration.WithLabelValues(service, r.Method, path).Observe(dur)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func sanitizePath(path string) string {
	if len(path) > 64 {
		return path[:64] + "..."
	}
	return path
}

// Init registers an isolated copy of the counters exercised by tests against
// reg, so package-level tests can use a fresh prometheus.Registry instead of
// colliding with the default registry promauto writes to.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(
		prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sportguide_programs_emitted_total", Help: "test copy"}, []string{"team_id", "category"}),
		prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "sportguide_generation_duration_seconds", Help: "test copy", Buckets: prometheus.DefBuckets}, []string{"league"}),
		prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sportguide_provider_api_calls_total", Help: "test copy"}, []string{"provider", "operation"}),
		prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sportguide_http_requests_total", Help: "test copy"}, []string{"service", "method", "path", "status"}),
	)
}
