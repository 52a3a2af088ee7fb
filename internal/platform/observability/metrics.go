package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// Metrics holds the service collectors. All methods are safe on a nil receiver so callers can use
// Current() without checking whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec

	jobTransitions *prometheus.CounterVec
	jobStage       *prometheus.HistogramVec
	synthFallbacks *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide collectors when METRICS_ENABLED is set. It returns nil otherwise.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New returns a Metrics backed by its own registry, independent of the process-wide instance.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cg_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cg_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_llm_requests_total",
			Help: "Model completion attempts by model/status.",
		}, []string{"model", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cg_llm_request_duration_seconds",
			Help:    "Model completion attempt latency in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 180},
		}, []string{"model", "status"}),
		jobTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_job_transitions_total",
			Help: "Processing job status transitions.",
		}, []string{"status"}),
		jobStage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cg_job_stage_duration_seconds",
			Help:    "Processing job stage latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		synthFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_synthesis_fallbacks_total",
			Help: "Generated artifacts replaced by deterministic fallback content.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.llmRequests,
		m.llmLatency,
		m.jobTransitions,
		m.jobStage,
		m.synthFallbacks,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Server returns a standalone metrics server for addr, or nil when disabled or addr is blank.
func (m *Metrics) Server(addr string) *http.Server {
	addr = strings.TrimSpace(addr)
	if m == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, status string, dur time.Duration) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.llmRequests.WithLabelValues(model, status).Inc()
	if dur > 0 {
		m.llmLatency.WithLabelValues(model, status).Observe(dur.Seconds())
	}
}

func (m *Metrics) IncJobTransition(status string) {
	if m == nil {
		return
	}
	m.jobTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveJobStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobStage.WithLabelValues(stage, status).Observe(dur.Seconds())
}

func (m *Metrics) IncSynthFallback(kind string) {
	if m == nil {
		return
	}
	m.synthFallbacks.WithLabelValues(kind).Inc()
}

// Shutdown stops a server returned by Server.
func Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
