// File: internal/observability/metrics.go
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters for a single agent run. A nil *Metrics is valid
// and records nothing, so components never have to check for it.
type Metrics struct {
	registry *prometheus.Registry

	Steps         prometheus.Counter
	ModelRequests *prometheus.CounterVec
	ModelDuration prometheus.Histogram
	ToolCalls     *prometheus.CounterVec
	ClickStrategy *prometheus.CounterVec
	HistoryTrims  prometheus.Counter
	HistoryLength prometheus.Gauge
	RunsByOutcome *prometheus.CounterVec
}

// NewMetrics registers the run metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Steps: factory.NewCounter(prometheus.CounterOpts{
			Name: "webpilot_agent_steps_total",
			Help: "Number of turn-loop iterations executed",
		}),
		ModelRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webpilot_model_requests_total",
			Help: "Model requests by outcome",
		}, []string{"status"}),
		ModelDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "webpilot_model_request_duration_seconds",
			Help:    "Latency of model requests",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webpilot_tool_calls_total",
			Help: "Tool dispatches by tool and outcome kind",
		}, []string{"tool", "outcome"}),
		ClickStrategy: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webpilot_click_strategy_total",
			Help: "Click attempts resolved by strategy",
		}, []string{"strategy", "status"}),
		HistoryTrims: factory.NewCounter(prometheus.CounterOpts{
			Name: "webpilot_history_trims_total",
			Help: "Number of times the conversation was trimmed",
		}),
		HistoryLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "webpilot_history_messages",
			Help: "Messages currently held in the conversation",
		}),
		RunsByOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webpilot_runs_total",
			Help: "Finished runs by terminal state",
		}, []string{"state"}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveStep() {
	if m == nil {
		return
	}
	m.Steps.Inc()
}

func (m *Metrics) ObserveModelRequest(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ModelRequests.WithLabelValues(status).Inc()
	m.ModelDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) ObserveClick(strategy, status string) {
	if m == nil {
		return
	}
	m.ClickStrategy.WithLabelValues(strategy, status).Inc()
}

func (m *Metrics) ObserveHistory(length int, trimmed bool) {
	if m == nil {
		return
	}
	m.HistoryLength.Set(float64(length))
	if trimmed {
		m.HistoryTrims.Inc()
	}
}

func (m *Metrics) ObserveRun(state string) {
	if m == nil {
		return
	}
	m.RunsByOutcome.WithLabelValues(state).Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
