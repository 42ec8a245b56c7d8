package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
)

type MetricsCollector struct {
	registry         *prometheus.Registry
	requestsCreated  prometheus.Counter
	pipelineRuns     *prometheus.CounterVec
	decisions        *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	pipelineInFlight prometheus.Gauge
	requestsByStatus *prometheus.GaugeVec
	httpDuration     *prometheus.HistogramVec
	logger           *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &MetricsCollector{
		registry: registry,
		requestsCreated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "account_requests_created_total",
			Help: "Total number of account requests accepted",
		}),
		pipelineRuns: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Decision pipeline runs by result",
		}, []string{"result"}),
		decisions: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "account_decisions_total",
			Help: "Rule engine decisions by outcome and rule",
		}, []string{"outcome", "rule"}),
		pipelineDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Time taken by a single decision pipeline run",
			Buckets: prometheus.DefBuckets,
		}),
		pipelineInFlight: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_runs_in_flight",
			Help: "Pipeline runs currently executing",
		}),
		requestsByStatus: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "account_requests_by_status",
			Help: "Stored account requests per status",
		}, []string{"status"}),
		httpDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "code"}),
		logger: logger,
	}

	return collector
}

func (m *MetricsCollector) RecordRequestCreated() {
	m.requestsCreated.Inc()
}

func (m *MetricsCollector) RecordPipelineRun(duration time.Duration, success bool) {
	result := ResultSucceeded
	if !success {
		result = ResultFailed
	}
	m.pipelineRuns.WithLabelValues(result).Inc()
	m.pipelineDuration.Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordDecision(outcome, rule string) {
	m.decisions.WithLabelValues(outcome, rule).Inc()
}

func (m *MetricsCollector) PipelineStarted() {
	m.pipelineInFlight.Inc()
}

func (m *MetricsCollector) PipelineFinished() {
	m.pipelineInFlight.Dec()
}

func (m *MetricsCollector) SetRequestsByStatus(status string, count int) {
	m.requestsByStatus.WithLabelValues(status).Set(float64(count))
}

func (m *MetricsCollector) ObserveHTTPRequest(route string, code string, duration time.Duration) {
	m.httpDuration.WithLabelValues(route, code).Observe(duration.Seconds())
}

func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	m.logger.Info("Metrics collector shutdown complete")
	return nil
}
