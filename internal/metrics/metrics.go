// Package metrics exposes Prometheus instrumentation for the API, the agent
// crew and the outbound service clients.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "botcrew"

// LatencyBuckets are histogram buckets in seconds. Agent runs take minutes.
var LatencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 240}

// Collector owns a private registry so tests and multiple servers in one
// process never collide. All methods are safe on a nil receiver.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec

	llmCalls  *prometheus.CounterVec
	llmTokens *prometheus.CounterVec

	outbound        *prometheus.CounterVec
	outboundLatency *prometheus.HistogramVec

	crewRuns      *prometheus.CounterVec
	memoryWrites  *prometheus.CounterVec
	ingestRecords *prometheus.CounterVec
}

// New creates a collector with Go runtime and process collectors registered
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   LatencyBuckets,
		}, []string{"route", "method"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Agent tool invocations by tool and outcome",
		}, []string{"tool", "outcome"}),
		toolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Agent tool latency in seconds",
			Buckets:   LatencyBuckets,
		}, []string{"tool"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM completion calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "LLM tokens by provider and direction",
		}, []string{"provider", "type"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_requests_total",
			Help:      "Outbound REST calls by service and outcome",
		}, []string{"service", "outcome"}),
		outboundLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbound_request_duration_seconds",
			Help:      "Outbound REST call latency in seconds",
			Buckets:   LatencyBuckets,
		}, []string{"service"}),
		crewRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crew_runs_total",
			Help:      "Crew kickoffs by outcome",
		}, []string{"outcome"}),
		memoryWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_writes_total",
			Help:      "Conversation history writes by outcome",
		}, []string{"outcome"}),
		ingestRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Ingested chunk records by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.httpRequests, c.httpLatency,
		c.toolCalls, c.toolLatency,
		c.llmCalls, c.llmTokens,
		c.outbound, c.outboundLatency,
		c.crewRuns, c.memoryWrites, c.ingestRecords,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveHTTP(route, method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

func (c *Collector) ObserveTool(tool string, success bool, d time.Duration) {
	if c == nil {
		return
	}
	c.toolCalls.WithLabelValues(tool, outcome(success)).Inc()
	c.toolLatency.WithLabelValues(tool).Observe(d.Seconds())
}

func (c *Collector) ObserveLLM(provider string, success bool, tokensIn, tokensOut int) {
	if c == nil {
		return
	}
	c.llmCalls.WithLabelValues(provider, outcome(success)).Inc()
	if tokensIn > 0 {
		c.llmTokens.WithLabelValues(provider, "input").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		c.llmTokens.WithLabelValues(provider, "output").Add(float64(tokensOut))
	}
}

// ObserveOutbound satisfies transport.Observer
func (c *Collector) ObserveOutbound(service, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.outbound.WithLabelValues(service, result).Inc()
	c.outboundLatency.WithLabelValues(service).Observe(d.Seconds())
}

func (c *Collector) ObserveCrewRun(success bool) {
	if c == nil {
		return
	}
	c.crewRuns.WithLabelValues(outcome(success)).Inc()
}

func (c *Collector) ObserveMemoryWrite(success bool) {
	if c == nil {
		return
	}
	c.memoryWrites.WithLabelValues(outcome(success)).Inc()
}

func (c *Collector) ObserveIngest(upserted, failed int) {
	if c == nil {
		return
	}
	c.ingestRecords.WithLabelValues("success").Add(float64(upserted))
	c.ingestRecords.WithLabelValues("failure").Add(float64(failed))
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
