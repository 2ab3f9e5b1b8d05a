// Package metrics exposes the broker's process-wide Prometheus registry and
// HTTP instrumentation, grounded on the teacher's pkg/metrics shape
// (a package-level Registry plus an instrumenting middleware), scaled to
// this domain's surfaces instead of the teacher's chain-indexing ones.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every broker-specific collector plus the standard Go and
// process collectors. internal/resilience registers its own breaker-state
// gauge directly against this Registry via NewRegistry's Registerer param.
var Registry = prometheus.NewRegistry()

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexfreight", Subsystem: "http", Name: "inflight_requests",
		Help: "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexfreight", Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests handled.",
	}, []string{"method", "path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexfreight", Subsystem: "http", Name: "request_duration_seconds",
		Help: "Duration of HTTP requests.", Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "path"})

	sagaSteps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexfreight", Subsystem: "saga", Name: "steps_total",
		Help: "Total saga steps executed, grouped by outcome.",
	}, []string{"step", "outcome"})

	disputeResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexfreight", Subsystem: "dispute", Name: "resolutions_total",
		Help: "Total dispute resolutions, grouped by automated/manual and winner.",
	}, []string{"mode", "winner"})

	hubSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexfreight", Subsystem: "hub", Name: "subscribers",
		Help: "Current CommandCenterHub websocket subscriber count.",
	})
)

func init() {
	Registry.MustRegister(
		httpInFlight, httpRequests, httpDuration,
		sagaSteps, disputeResolutions, hubSubscribers,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler serves the registered collectors for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Instrument wraps next with request-count/duration/in-flight tracking.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(strings.ToUpper(r.Method), r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(strings.ToUpper(r.Method), r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordSagaStep records one saga step's outcome ("forward_ok", "compensated", ...).
func RecordSagaStep(step, outcome string) {
	sagaSteps.WithLabelValues(step, outcome).Inc()
}

// RecordDisputeResolution records one dispute's resolution mode and winner.
func RecordDisputeResolution(mode, winner string) {
	disputeResolutions.WithLabelValues(mode, winner).Inc()
}

// SetHubSubscribers publishes the current websocket subscriber count.
func SetHubSubscribers(n int) {
	hubSubscribers.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
