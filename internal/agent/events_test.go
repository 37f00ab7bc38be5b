package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haasonsaas/conclave/pkg/models"
)

func TestEventBusProcessor_ModelCallProducesAgentEvent(t *testing.T) {
	bus := NewEventBusProcessor()
	bus.Process(context.Background(), TelemetryEvent{
		Kind: TelemetryModelCall, RunID: "run-1", Model: "gpt-x",
		InputTokens: 10, OutputTokens: 5, Duration: 2 * time.Second,
	})

	events := bus.AgentEvents()
	if len(events) != 1 {
		t.Fatalf("AgentEvents() = %+v, want 1 entry", events)
	}
	e := events[0]
	if e.Type != models.AgentEventModelCompleted || e.Version != 1 || e.Sequence != 1 {
		t.Errorf("event = %+v", e)
	}
	if e.Stream == nil || e.Stream.InputTokens != 10 || e.Stream.OutputTokens != 5 {
		t.Errorf("Stream payload = %+v", e.Stream)
	}

	runtimeEvents := bus.RuntimeEvents()
	if len(runtimeEvents) != 1 || runtimeEvents[0].Type != models.EventThinkingEnd {
		t.Errorf("RuntimeEvents() = %+v, want a single thinking_end event", runtimeEvents)
	}
}

func TestEventBusProcessor_ToolCallProducesToolEventAndAgentEvent(t *testing.T) {
	bus := NewEventBusProcessor()
	bus.Process(context.Background(), TelemetryEvent{
		Kind: TelemetryToolCall, RunID: "run-1", ToolName: "search",
		Success: true, Duration: 500 * time.Millisecond,
	})

	toolEvents := bus.ToolEvents()
	if len(toolEvents) != 1 {
		t.Fatalf("ToolEvents() = %+v, want 1 entry", toolEvents)
	}
	te := toolEvents[0]
	if te.ToolName != "search" || te.Stage != models.ToolEventSucceeded {
		t.Errorf("tool event = %+v", te)
	}
	if !te.FinishedAt.After(te.StartedAt) {
		t.Errorf("FinishedAt (%v) should be after StartedAt (%v)", te.FinishedAt, te.StartedAt)
	}

	agentEvents := bus.AgentEvents()
	if len(agentEvents) != 1 || agentEvents[0].Type != models.AgentEventToolFinished {
		t.Fatalf("AgentEvents() = %+v, want a single tool.finished event", agentEvents)
	}
	if agentEvents[0].Tool == nil || !agentEvents[0].Tool.Success {
		t.Errorf("Tool payload = %+v", agentEvents[0].Tool)
	}

	runtimeEvents := bus.RuntimeEvents()
	if len(runtimeEvents) != 1 || runtimeEvents[0].Type != models.EventToolCompleted {
		t.Fatalf("RuntimeEvents() = %+v, want a single tool_completed event", runtimeEvents)
	}
}

func TestEventBusProcessor_ToolCallFailureMarksDeniedStageAndError(t *testing.T) {
	bus := NewEventBusProcessor()
	bus.Process(context.Background(), TelemetryEvent{
		Kind: TelemetryToolCall, ToolName: "danger", Success: false,
		Err: errors.New("execution failed"),
	})

	toolEvents := bus.ToolEvents()
	if toolEvents[0].Stage != models.ToolEventFailed || toolEvents[0].Error != "execution failed" {
		t.Errorf("tool event = %+v", toolEvents[0])
	}
	if bus.RuntimeEvents()[0].Type != models.EventToolFailed {
		t.Errorf("runtime event = %+v", bus.RuntimeEvents()[0])
	}
}

func TestEventBusProcessor_RunErrorSetsErrorPayload(t *testing.T) {
	bus := NewEventBusProcessor()
	want := errors.New("boom")
	bus.Process(context.Background(), TelemetryEvent{Kind: TelemetryRunError, Err: want})

	events := bus.AgentEvents()
	if events[0].Type != models.AgentEventRunError || events[0].Error == nil {
		t.Fatalf("event = %+v", events[0])
	}
	if !errors.Is(events[0].Error.Err, want) || events[0].Error.Message != "boom" {
		t.Errorf("Error payload = %+v", events[0].Error)
	}
}

func TestEventBusProcessor_HandoffProducesTurnFinishedWithTargetName(t *testing.T) {
	bus := NewEventBusProcessor()
	bus.Process(context.Background(), TelemetryEvent{Kind: TelemetryHandoff, AgentName: "Billing"})

	events := bus.AgentEvents()
	if events[0].Type != models.AgentEventTurnFinished || events[0].Text == nil {
		t.Fatalf("event = %+v", events[0])
	}
	if events[0].Text.Text != "handoff to Billing" {
		t.Errorf("Text = %q", events[0].Text.Text)
	}
}

func TestEventBusProcessor_SequenceIsMonotonic(t *testing.T) {
	bus := NewEventBusProcessor()
	bus.Process(context.Background(), TelemetryEvent{Kind: TelemetryRunStarted})
	bus.Process(context.Background(), TelemetryEvent{Kind: TelemetryTurnStarted})
	bus.Process(context.Background(), TelemetryEvent{Kind: TelemetryRunFinished})

	events := bus.AgentEvents()
	for i := 1; i < len(events); i++ {
		if events[i].Sequence <= events[i-1].Sequence {
			t.Fatalf("sequence not monotonic: %+v", events)
		}
	}
}

func TestEventBusProcessor_CallbacksFireSynchronously(t *testing.T) {
	var gotAgent models.AgentEvent
	var gotTool models.ToolEvent
	var gotRuntime *models.RuntimeEvent

	bus := NewEventBusProcessor().
		OnAgentEvent(func(e models.AgentEvent) { gotAgent = e }).
		OnToolEvent(func(e models.ToolEvent) { gotTool = e }).
		OnRuntimeEvent(func(e *models.RuntimeEvent) { gotRuntime = e })

	bus.Process(context.Background(), TelemetryEvent{Kind: TelemetryToolCall, ToolName: "search", Success: true})

	if gotAgent.Type != models.AgentEventToolFinished {
		t.Errorf("OnAgentEvent callback did not fire with the expected type: %+v", gotAgent)
	}
	if gotTool.ToolName != "search" {
		t.Errorf("OnToolEvent callback did not fire: %+v", gotTool)
	}
	if gotRuntime == nil || gotRuntime.Type != models.EventToolCompleted {
		t.Errorf("OnRuntimeEvent callback did not fire: %+v", gotRuntime)
	}
}

func TestEventBusProcessor_ShutdownReturnsNil(t *testing.T) {
	if err := NewEventBusProcessor().Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

func TestEventBusProcessor_UnmappedKindFallsBackToEventKindAsType(t *testing.T) {
	bus := NewEventBusProcessor()
	bus.Process(context.Background(), TelemetryEvent{Kind: TelemetryGuardrail, Err: errors.New("blocked")})

	events := bus.AgentEvents()
	if events[0].Type != models.AgentEventRunError {
		t.Fatalf("guardrail failures should map onto run.error, got %+v", events[0])
	}
}
