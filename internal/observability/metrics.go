package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a centralized interface for collecting Prometheus metrics over
// an agent run: LLM request latency and token spend, tool execution
// patterns, handoffs, errors, and concurrent-run pressure for capacity
// planning.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.RecordLLMRequest("anthropic", "claude-3-5-sonnet", "success", elapsed.Seconds(), 120, 430)
type Metrics struct {
	// LLMRequestDuration measures responder call latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts responder calls by provider, model, status.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption by provider, model, type.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// LLMCostUSD tracks estimated responder cost in USD.
	// Labels: provider, model
	LLMCostUSD *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations by tool name and status.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// HandoffCounter counts agent-to-agent handoffs by destination agent.
	// Labels: to_agent
	HandoffCounter *prometheus.CounterVec

	// ErrorCounter tracks errors by component and error type.
	// Labels: component (agent|guardrail|tool), error_type
	ErrorCounter *prometheus.CounterVec

	// ActiveRuns is a gauge of runs currently in flight per agent.
	// Labels: agent
	ActiveRuns *prometheus.GaugeVec

	// RunDuration measures a completed or failed run's wall-clock time.
	// Labels: agent
	RunDuration *prometheus.HistogramVec

	// RunAttempts counts run outcomes for retry/backoff visibility.
	// Labels: status (success|retry|failed)
	RunAttempts *prometheus.CounterVec

	// RunStalled counts runs that failed by exhausting an agent's MaxTurns
	// budget rather than completing or erroring out cleanly.
	// Labels: agent
	RunStalled *prometheus.CounterVec

	// ContextWindowUsed tracks per-call token usage against a model's
	// context window, for spotting agents trending toward truncation.
	// Labels: provider, model
	ContextWindowUsed *prometheus.HistogramVec
}

// NewMetrics creates and registers every metric with Prometheus's default
// registry. Call this once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conclave_llm_request_duration_seconds",
				Help:    "Duration of responder calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_llm_requests_total",
				Help: "Total number of responder calls by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		LLMCostUSD: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_llm_cost_usd_total",
				Help: "Estimated responder cost in USD",
			},
			[]string{"provider", "model"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conclave_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		HandoffCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_handoffs_total",
				Help: "Total number of agent handoffs by destination agent",
			},
			[]string{"to_agent"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),

		ActiveRuns: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "conclave_active_runs",
				Help: "Current number of in-flight runs by agent",
			},
			[]string{"agent"},
		),

		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conclave_run_duration_seconds",
				Help:    "Duration of a run from start to completion or failure",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 180, 600},
			},
			[]string{"agent"},
		),

		RunAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_run_attempts_total",
				Help: "Total number of run attempts by status",
			},
			[]string{"status"},
		),

		RunStalled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_run_stalled_total",
				Help: "Total number of runs that failed by exhausting an agent's max-turns budget",
			},
			[]string{"agent"},
		),

		ContextWindowUsed: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conclave_context_window_tokens",
				Help:    "Tokens consumed by a single responder call",
				Buckets: []float64{1000, 4000, 8000, 16000, 32000, 64000, 128000},
			},
			[]string{"provider", "model"},
		),
	}
}

// RecordLLMRequest records metrics for a responder call.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
	if total := promptTokens + completionTokens; total > 0 {
		m.ContextWindowUsed.WithLabelValues(provider, model).Observe(float64(total))
	}
}

// RecordToolExecution records metrics for a tool execution.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordHandoff records an agent-to-agent handoff.
func (m *Metrics) RecordHandoff(toAgent string) {
	m.HandoffCounter.WithLabelValues(toAgent).Inc()
}

// RecordError increments the error counter for a given component and error type.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// RunStarted increments the active-runs gauge for agent.
func (m *Metrics) RunStarted(agent string) {
	m.ActiveRuns.WithLabelValues(agent).Inc()
}

// RunEnded decrements the active-runs gauge and records the run's duration.
func (m *Metrics) RunEnded(agent string, durationSeconds float64) {
	m.ActiveRuns.WithLabelValues(agent).Dec()
	m.RunDuration.WithLabelValues(agent).Observe(durationSeconds)
}

// RecordRunAttempt records a run outcome.
func (m *Metrics) RecordRunAttempt(status string) {
	m.RunAttempts.WithLabelValues(status).Inc()
}

// RecordRunStalled records a run that failed by exhausting its agent's
// max-turns budget.
func (m *Metrics) RecordRunStalled(agent string) {
	m.RunStalled.WithLabelValues(agent).Inc()
}
