package agent

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/conclave/internal/observability"
)

func TestLoggingTelemetryProcessor_LogsEachEventKind(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewLoggingTelemetryProcessor(logger)

	p.Process(context.Background(), TelemetryEvent{Kind: TelemetryRunError, RunID: "r1", Err: errors.New("boom")})
	p.Process(context.Background(), TelemetryEvent{Kind: TelemetryGuardrail, RunID: "r1", Err: errors.New("blocked")})
	p.Process(context.Background(), TelemetryEvent{Kind: TelemetryToolCall, RunID: "r1", ToolName: "search", Success: true})
	p.Process(context.Background(), TelemetryEvent{Kind: TelemetryModelCall, RunID: "r1", Model: "gpt-4o"})
	p.Process(context.Background(), TelemetryEvent{Kind: TelemetryRunStarted, RunID: "r1"})

	out := buf.String()
	for _, want := range []string{"agent run error", "guardrail failed", "tool call", "model call", "run.started"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestNewLoggingTelemetryProcessor_NilLoggerFallsBackToDefault(t *testing.T) {
	p := NewLoggingTelemetryProcessor(nil)
	if p.Logger == nil {
		t.Fatal("expected a non-nil default logger")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

// TestMetricsTelemetryProcessor_ProcessDoesNotPanic also covers the
// nil-metrics constructor path (NewMetrics registers against Prometheus's
// default registry, so only one test in this package may call it with a
// nil argument without a duplicate-registration panic).
func TestMetricsTelemetryProcessor_ProcessDoesNotPanic(t *testing.T) {
	p := NewMetricsTelemetryProcessor(nil)
	if p.metrics == nil {
		t.Fatal("expected a non-nil default metrics registry")
	}
	events := []TelemetryEvent{
		{Kind: TelemetryRunStarted, AgentName: "triage"},
		{Kind: TelemetryModelCall, Model: "gpt-4o", Duration: 0},
		{Kind: TelemetryModelCall, Model: "gpt-4o", Err: errors.New("timeout")},
		{Kind: TelemetryToolCall, ToolName: "search", Success: true},
		{Kind: TelemetryToolCall, ToolName: "search", Success: false},
		{Kind: TelemetryHandoff, AgentName: "billing"},
		{Kind: TelemetryRunError, AgentName: "triage", Err: errors.New("boom")},
		{Kind: TelemetryRunFinished, AgentName: "triage"},
		{Kind: TelemetryGuardrail},
	}
	for _, e := range events {
		p.Process(context.Background(), e)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewMetricsTelemetryProcessor_ReusesProvidedMetrics(t *testing.T) {
	// A bare &Metrics{} (no registered collectors) is enough to check
	// reference identity without a second NewMetrics() call, which would
	// duplicate-register against Prometheus's default registry alongside
	// the one TestMetricsTelemetryProcessor_ProcessDoesNotPanic creates.
	m := &observability.Metrics{}
	p := NewMetricsTelemetryProcessor(m)
	if p.metrics != m {
		t.Error("expected the provided metrics registry to be reused")
	}
}

func TestTracingTelemetryProcessor_ProcessDoesNotPanic(t *testing.T) {
	tracer, shutdown := observability.NewTracer(observability.TraceConfig{ServiceName: "conclave-test"})
	defer func() { _ = shutdown(context.Background()) }()

	p := NewTracingTelemetryProcessor(tracer)
	events := []TelemetryEvent{
		{Kind: TelemetryModelCall, Model: "gpt-4o", Duration: 50 * time.Millisecond},
		{Kind: TelemetryModelCall, Model: "gpt-4o", Err: errors.New("timeout")},
		{Kind: TelemetryToolCall, ToolName: "search", Success: true, Duration: 10 * time.Millisecond},
		{Kind: TelemetryToolCall, ToolName: "search", Success: false},
		{Kind: TelemetryRunStarted, AgentName: "triage"},
	}
	for _, e := range events {
		p.Process(context.Background(), e)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

// countingProcessor records how many events it saw and can be made to fail
// Shutdown, for exercising MultiTelemetryProcessor's fan-out and
// first-error-wins behavior.
type countingProcessor struct {
	seen      int
	shutdownErr error
}

func (c *countingProcessor) Process(context.Context, TelemetryEvent) { c.seen++ }
func (c *countingProcessor) Shutdown(context.Context) error          { return c.shutdownErr }

func TestMultiTelemetryProcessor_FansOutToEveryProcessor(t *testing.T) {
	a, b := &countingProcessor{}, &countingProcessor{}
	multi := MultiTelemetryProcessor{Processors: []TelemetryProcessor{a, b}}

	multi.Process(context.Background(), TelemetryEvent{Kind: TelemetryRunStarted})
	if a.seen != 1 || b.seen != 1 {
		t.Errorf("seen = %d, %d, want both processors to observe the event", a.seen, b.seen)
	}
}

func TestMultiTelemetryProcessor_ShutdownReturnsFirstError(t *testing.T) {
	want := errors.New("first failure")
	a := &countingProcessor{shutdownErr: want}
	b := &countingProcessor{shutdownErr: errors.New("second failure")}
	multi := MultiTelemetryProcessor{Processors: []TelemetryProcessor{a, b}}

	err := multi.Shutdown(context.Background())
	if !errors.Is(err, want) {
		t.Errorf("Shutdown() = %v, want the first processor's error", err)
	}
}
