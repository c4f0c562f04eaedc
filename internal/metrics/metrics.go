// Package metrics expõe os coletores Prometheus do solver.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "quiz_solver",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quiz_solver",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quiz_solver",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	solveJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quiz_solver",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Total number of solve jobs by final status.",
		},
		[]string{"status"},
	)

	solveSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quiz_solver",
			Subsystem: "jobs",
			Name:      "steps_total",
			Help:      "Total number of quiz steps by task type and outcome.",
		},
		[]string{"task_type", "outcome"},
	)

	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quiz_solver",
			Subsystem: "jobs",
			Name:      "step_duration_seconds",
			Help:      "Duration of a single quiz step (fetch, solve, submit).",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms a ~50s
		},
		[]string{"task_type"},
	)

	llmCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quiz_solver",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total number of LLM completions by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		solveJobs,
		solveSteps,
		stepDuration,
		llmCalls,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler mede as requisições usando o padrão de rota do chi, para
// que /jobs/{id} não gere uma série por job.
func InstrumentHandler(next http.Handler) http.Handler {
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

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordJob(status string) {
	solveJobs.WithLabelValues(status).Inc()
}

func RecordStep(taskType, outcome string, d time.Duration) {
	if taskType == "" {
		taskType = "unknown"
	}
	solveSteps.WithLabelValues(taskType, outcome).Inc()
	stepDuration.WithLabelValues(taskType).Observe(d.Seconds())
}

func RecordLLMCall(outcome string) {
	llmCalls.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
