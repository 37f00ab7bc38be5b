package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haasonsaas/conclave/pkg/models"
)

// EventBusProcessor is a TelemetryProcessor that translates the loop's
// internal TelemetryEvent stream into the three external event shapes other
// components of the stack expect: a versioned, sequence-numbered
// models.AgentEvent log suitable for driving a UI or plugin bus, a
// models.ToolEvent history mirroring the confirmation gate's per-call
// lifecycle, and a models.RuntimeEvent stream suited to a simple progress
// ticker (e.g. a CLI spinner).
//
// It buffers everything it has seen and additionally calls any registered
// On* callback synchronously, so a caller can either poll the buffers after
// a run or forward events live without holding the processor's lock.
type EventBusProcessor struct {
	mu      sync.Mutex
	seq     uint64
	agent   []models.AgentEvent
	tool    []models.ToolEvent
	runtime []*models.RuntimeEvent

	onAgent   func(models.AgentEvent)
	onTool    func(models.ToolEvent)
	onRuntime func(*models.RuntimeEvent)
}

// NewEventBusProcessor creates an empty bus.
func NewEventBusProcessor() *EventBusProcessor {
	return &EventBusProcessor{}
}

// OnAgentEvent registers a callback fired synchronously for every
// models.AgentEvent appended to the bus.
func (p *EventBusProcessor) OnAgentEvent(fn func(models.AgentEvent)) *EventBusProcessor {
	p.onAgent = fn
	return p
}

// OnToolEvent registers a callback fired synchronously for every
// models.ToolEvent appended to the bus.
func (p *EventBusProcessor) OnToolEvent(fn func(models.ToolEvent)) *EventBusProcessor {
	p.onTool = fn
	return p
}

// OnRuntimeEvent registers a callback fired synchronously for every
// models.RuntimeEvent appended to the bus.
func (p *EventBusProcessor) OnRuntimeEvent(fn func(*models.RuntimeEvent)) *EventBusProcessor {
	p.onRuntime = fn
	return p
}

// AgentEvents returns a copy of every models.AgentEvent recorded so far.
func (p *EventBusProcessor) AgentEvents() []models.AgentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.AgentEvent, len(p.agent))
	copy(out, p.agent)
	return out
}

// ToolEvents returns a copy of every models.ToolEvent recorded so far.
func (p *EventBusProcessor) ToolEvents() []models.ToolEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ToolEvent, len(p.tool))
	copy(out, p.tool)
	return out
}

// RuntimeEvents returns a copy of every models.RuntimeEvent recorded so far.
func (p *EventBusProcessor) RuntimeEvents() []*models.RuntimeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.RuntimeEvent, len(p.runtime))
	copy(out, p.runtime)
	return out
}

func (p *EventBusProcessor) nextSeq() uint64 {
	return atomic.AddUint64(&p.seq, 1)
}

// Process implements TelemetryProcessor.
func (p *EventBusProcessor) Process(_ context.Context, e TelemetryEvent) {
	now := time.Now()

	ae := models.AgentEvent{Version: 1, Time: now, Sequence: p.nextSeq(), RunID: e.RunID}
	switch e.Kind {
	case TelemetryRunStarted:
		ae.Type = models.AgentEventRunStarted
	case TelemetryRunFinished:
		ae.Type = models.AgentEventRunFinished
	case TelemetryRunError:
		ae.Type = models.AgentEventRunError
		ae.Error = &models.ErrorEventPayload{Message: errMessage(e.Err), Err: e.Err}
	case TelemetryTurnStarted:
		ae.Type = models.AgentEventTurnStarted
	case TelemetryModelCall:
		ae.Type = models.AgentEventModelCompleted
		ae.Stream = &models.StreamEventPayload{
			Model:        e.Model,
			InputTokens:  e.InputTokens,
			OutputTokens: e.OutputTokens,
		}
	case TelemetryToolCall:
		ae.Type = models.AgentEventToolFinished
		ae.Tool = &models.ToolEventPayload{
			Name:    e.ToolName,
			Success: e.Success,
			Elapsed: e.Duration,
		}
		p.appendToolEvent(e, now)
	case TelemetryGuardrail:
		ae.Type = models.AgentEventRunError
		ae.Error = &models.ErrorEventPayload{Message: errMessage(e.Err), Err: e.Err}
	case TelemetryHandoff:
		ae.Type = models.AgentEventTurnFinished
		ae.Text = &models.TextEventPayload{Text: "handoff to " + e.AgentName}
	default:
		ae.Type = models.AgentEventType(e.Kind)
	}

	p.mu.Lock()
	p.agent = append(p.agent, ae)
	p.mu.Unlock()
	if p.onAgent != nil {
		p.onAgent(ae)
	}

	p.appendRuntimeEvent(e, now)
}

func (p *EventBusProcessor) appendToolEvent(e TelemetryEvent, now time.Time) {
	stage := models.ToolEventSucceeded
	errText := ""
	if !e.Success {
		stage = models.ToolEventFailed
		errText = errMessage(e.Err)
	}
	te := models.ToolEvent{
		ToolName:   e.ToolName,
		Stage:      stage,
		Error:      errText,
		StartedAt:  now.Add(-e.Duration),
		FinishedAt: now,
	}
	p.mu.Lock()
	p.tool = append(p.tool, te)
	p.mu.Unlock()
	if p.onTool != nil {
		p.onTool(te)
	}
}

func (p *EventBusProcessor) appendRuntimeEvent(e TelemetryEvent, now time.Time) {
	var re *models.RuntimeEvent
	switch e.Kind {
	case TelemetryTurnStarted:
		re = &models.RuntimeEvent{Type: models.EventIterationStart}
	case TelemetryRunFinished:
		re = &models.RuntimeEvent{Type: models.EventIterationEnd}
	case TelemetryModelCall:
		re = &models.RuntimeEvent{Type: models.EventThinkingEnd}
	case TelemetryToolCall:
		evtType := models.EventToolCompleted
		if !e.Success {
			evtType = models.EventToolFailed
		}
		re = models.NewToolEvent(evtType, e.ToolName, "").WithMessage(errMessage(e.Err))
	default:
		return
	}

	p.mu.Lock()
	p.runtime = append(p.runtime, re)
	p.mu.Unlock()
	if p.onRuntime != nil {
		p.onRuntime(re)
	}
}

// Shutdown implements TelemetryProcessor; the bus holds no external
// resources to release.
func (p *EventBusProcessor) Shutdown(context.Context) error { return nil }

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
