package observability

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	storeOpTotal    *prometheus.CounterVec
	storeOpDuration *prometheus.HistogramVec

	completionTotal    *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec

	agentRunTotal    *prometheus.CounterVec
	agentRunDuration *prometheus.HistogramVec

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec

	gatewayRequestTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
	registerMu  sync.Mutex
	registered  bool
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			storeOpTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "store_operations_total",
					Help: "Total record store operations by operation and status.",
				},
				[]string{"operation", "status"},
			),
			storeOpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "store_operation_duration_seconds",
					Help:    "Record store operation duration in seconds by operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
			completionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "completion_calls_total",
					Help: "Total language-model completion calls by provider and status.",
				},
				[]string{"provider", "status"},
			),
			completionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "completion_call_duration_seconds",
					Help:    "Language-model completion call duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			agentRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_runs_total",
					Help: "Total domain-agent runs by domain and status.",
				},
				[]string{"domain", "status"},
			),
			agentRunDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agent_run_duration_seconds",
					Help:    "Domain-agent run duration in seconds by domain.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"domain"},
			),
			dispatchTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "host_dispatch_total",
					Help: "Total host-to-gateway dispatches by domain and outcome.",
				},
				[]string{"domain", "outcome"},
			),
			dispatchDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "host_dispatch_duration_seconds",
					Help:    "Host-to-gateway dispatch duration in seconds by domain.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"domain"},
			),
			gatewayRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "gateway_requests_total",
					Help: "Total gateway HTTP requests by service, path and status.",
				},
				[]string{"service", "path", "status"},
			),
		}
		metricsInst = m
	})
	return metricsInst
}

// EnsureRegistered registers all collectors with the default registry.
// Safe to call from multiple components.
func EnsureRegistered() {
	registerMu.Lock()
	defer registerMu.Unlock()
	if registered {
		return
	}

	m := getMetrics()
	collectors := []prometheus.Collector{
		m.storeOpTotal,
		m.storeOpDuration,
		m.completionTotal,
		m.completionDuration,
		m.agentRunTotal,
		m.agentRunDuration,
		m.dispatchTotal,
		m.dispatchDuration,
		m.gatewayRequestTotal,
	}

	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
	registered = true
}

// MetricsHandler returns the prometheus scrape handler.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordStoreOperation records one record-store operation.
func RecordStoreOperation(operation string, duration time.Duration, ok bool) {
	m := getMetrics()
	m.storeOpTotal.WithLabelValues(operation, statusLabel(ok)).Inc()
	m.storeOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCompletion records one language-model completion call.
func RecordCompletion(provider string, duration time.Duration, ok bool) {
	m := getMetrics()
	m.completionTotal.WithLabelValues(provider, statusLabel(ok)).Inc()
	m.completionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordAgentRun records one domain-agent run.
func RecordAgentRun(domain string, duration time.Duration, ok bool) {
	m := getMetrics()
	m.agentRunTotal.WithLabelValues(domain, statusLabel(ok)).Inc()
	m.agentRunDuration.WithLabelValues(domain).Observe(duration.Seconds())
}

// RecordDispatch records one host-to-gateway dispatch with its outcome
// ("ok", "degraded").
func RecordDispatch(domain, outcome string, duration time.Duration) {
	m := getMetrics()
	m.dispatchTotal.WithLabelValues(domain, outcome).Inc()
	m.dispatchDuration.WithLabelValues(domain).Observe(duration.Seconds())
}

// RecordGatewayRequest records one gateway HTTP request.
func RecordGatewayRequest(service, path string, status int) {
	m := getMetrics()
	m.gatewayRequestTotal.WithLabelValues(service, path, httpStatusClass(status)).Inc()
}

func httpStatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
