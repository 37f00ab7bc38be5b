package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/conclave/internal/observability"
)

// TelemetryEventKind identifies the kind of telemetry event a
// TelemetryProcessor receives.
type TelemetryEventKind string

const (
	TelemetryRunStarted   TelemetryEventKind = "run.started"
	TelemetryRunFinished  TelemetryEventKind = "run.finished"
	TelemetryRunError     TelemetryEventKind = "run.error"
	TelemetryTurnStarted  TelemetryEventKind = "turn.started"
	TelemetryModelCall    TelemetryEventKind = "model.call"
	TelemetryToolCall     TelemetryEventKind = "tool.call"
	TelemetryGuardrail    TelemetryEventKind = "guardrail.failed"
	TelemetryHandoff      TelemetryEventKind = "handoff"
)

// TelemetryEvent is the one-way event a TelemetryProcessor consumes.
type TelemetryEvent struct {
	Kind      TelemetryEventKind
	RunID     string
	AgentName string
	Model     string
	ToolName  string
	Err       error
	Duration  time.Duration
	Success   bool
	InputTokens  int
	OutputTokens int
}

// TelemetryProcessor is a one-way sink for run telemetry. process() never
// blocks the loop on a slow sink for long: implementations should buffer or
// drop rather than stall turn processing.
type TelemetryProcessor interface {
	Process(ctx context.Context, event TelemetryEvent)
	Shutdown(ctx context.Context) error
}

// LoggingTelemetryProcessor renders events through the ambient structured
// logger, mirroring how the rest of the stack favors slog over ad hoc
// fmt.Printf diagnostics.
type LoggingTelemetryProcessor struct {
	Logger *slog.Logger
}

// NewLoggingTelemetryProcessor builds a processor over logger, falling
// back to slog.Default() when logger is nil.
func NewLoggingTelemetryProcessor(logger *slog.Logger) *LoggingTelemetryProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingTelemetryProcessor{Logger: logger}
}

func (p *LoggingTelemetryProcessor) Process(ctx context.Context, e TelemetryEvent) {
	attrs := []any{"run_id", e.RunID, "agent", e.AgentName}
	switch e.Kind {
	case TelemetryRunError:
		p.Logger.ErrorContext(ctx, "agent run error", append(attrs, "error", e.Err)...)
	case TelemetryGuardrail:
		p.Logger.WarnContext(ctx, "guardrail failed", append(attrs, "error", e.Err)...)
	case TelemetryToolCall:
		p.Logger.InfoContext(ctx, "tool call", append(attrs, "tool", e.ToolName, "success", e.Success, "duration", e.Duration)...)
	case TelemetryModelCall:
		p.Logger.InfoContext(ctx, "model call", append(attrs, "model", e.Model, "input_tokens", e.InputTokens, "output_tokens", e.OutputTokens)...)
	default:
		p.Logger.DebugContext(ctx, string(e.Kind), attrs...)
	}
}

func (p *LoggingTelemetryProcessor) Shutdown(context.Context) error { return nil }

// MetricsTelemetryProcessor records run telemetry as Prometheus metrics,
// reusing the same *observability.Metrics the rest of the stack exposes on
// its /metrics endpoint.
type MetricsTelemetryProcessor struct {
	metrics *observability.Metrics
}

// NewMetricsTelemetryProcessor wraps an existing *observability.Metrics
// registry, or creates a fresh one if metrics is nil.
func NewMetricsTelemetryProcessor(metrics *observability.Metrics) *MetricsTelemetryProcessor {
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &MetricsTelemetryProcessor{metrics: metrics}
}

func (p *MetricsTelemetryProcessor) Process(_ context.Context, e TelemetryEvent) {
	switch e.Kind {
	case TelemetryRunStarted:
		p.metrics.RunStarted(e.AgentName)
	case TelemetryModelCall:
		status := "success"
		if e.Err != nil {
			status = "error"
		}
		p.metrics.RecordLLMRequest("agent", e.Model, status, e.Duration.Seconds(), e.InputTokens, e.OutputTokens)
	case TelemetryToolCall:
		status := "success"
		if !e.Success {
			status = "error"
		}
		p.metrics.RecordToolExecution(e.ToolName, status, e.Duration.Seconds())
	case TelemetryHandoff:
		p.metrics.RecordHandoff(e.AgentName)
	case TelemetryRunError:
		p.metrics.RecordError("agent", "run_error")
		p.metrics.RecordRunAttempt("failed")
		p.metrics.RunEnded(e.AgentName, e.Duration.Seconds())
		if errors.Is(e.Err, ErrMaxTurnsExceeded) {
			p.metrics.RecordRunStalled(e.AgentName)
		}
	case TelemetryRunFinished:
		p.metrics.RecordRunAttempt("success")
		p.metrics.RunEnded(e.AgentName, e.Duration.Seconds())
	case TelemetryGuardrail:
		p.metrics.RecordError("agent", "guardrail_failed")
	}
}

func (p *MetricsTelemetryProcessor) Shutdown(context.Context) error { return nil }

// TracingTelemetryProcessor turns model and tool call telemetry into
// OpenTelemetry spans, backdated to the call's actual start so span
// duration matches what was measured rather than the time Process() ran.
type TracingTelemetryProcessor struct {
	tracer *observability.Tracer
}

// NewTracingTelemetryProcessor wraps tracer. A nil tracer is a programmer
// error; build one with observability.NewTracer first.
func NewTracingTelemetryProcessor(tracer *observability.Tracer) *TracingTelemetryProcessor {
	return &TracingTelemetryProcessor{tracer: tracer}
}

func (p *TracingTelemetryProcessor) Process(ctx context.Context, e TelemetryEvent) {
	end := time.Now()
	start := end.Add(-e.Duration)

	switch e.Kind {
	case TelemetryModelCall:
		_, span := p.tracer.Start(ctx, "llm."+e.Model, observability.SpanOptions{
			Kind:      trace.SpanKindClient,
			StartTime: start,
			Attributes: []attribute.KeyValue{
				attribute.String("llm.model", e.Model),
				attribute.Int("llm.input_tokens", e.InputTokens),
				attribute.Int("llm.output_tokens", e.OutputTokens),
			},
		})
		if e.Err != nil {
			p.tracer.RecordError(span, e.Err)
		}
		span.End(trace.WithTimestamp(end))
	case TelemetryToolCall:
		_, span := p.tracer.Start(ctx, "tool."+e.ToolName, observability.SpanOptions{
			Kind:      trace.SpanKindInternal,
			StartTime: start,
			Attributes: []attribute.KeyValue{
				attribute.String("tool.name", e.ToolName),
				attribute.Bool("tool.success", e.Success),
			},
		})
		span.End(trace.WithTimestamp(end))
	}
}

func (p *TracingTelemetryProcessor) Shutdown(context.Context) error { return nil }

// MultiTelemetryProcessor fans a single event out to several processors,
// so a run can be logged, traced, and metered at once.
type MultiTelemetryProcessor struct {
	Processors []TelemetryProcessor
}

func (p MultiTelemetryProcessor) Process(ctx context.Context, e TelemetryEvent) {
	for _, proc := range p.Processors {
		proc.Process(ctx, e)
	}
}

func (p MultiTelemetryProcessor) Shutdown(ctx context.Context) error {
	var first error
	for _, proc := range p.Processors {
		if err := proc.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
