package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RunOptions configures a single Run/Resume call: the collaborators
// (retry policy, telemetry sink) and the callback hooks a streaming
// facade (or a plain caller) wants notified as the turn loop progresses.
// All callbacks are optional; a nil callback is simply not invoked.
type RunOptions struct {
	RetryPolicy RetryPolicy
	Telemetry   TelemetryProcessor
	Logger      *slog.Logger

	OnTurnStart    func(turn int)
	OnTurnComplete func(resp *Response)
	OnTextDelta    func(delta string)

	// OnToolCallPending fires when a confirmation-gated call is about to
	// pause the run, offering the handler a chance to resolve it inline,
	// within the same turn, by calling approve. If the handler returns
	// without calling approve, the loop falls through to the explicit
	// pause path (OnPause) and suspends.
	OnToolCallPending func(call PendingToolCall, approve func(ok bool, reason string))
	OnToolResult      func(exec ToolExecution)
	OnGuardrailFailed func(stage, name, reason string)
	OnHandoff         func(from, to *Agent)
	OnPause           func(state *AgentRunState)
	OnComplete        func(result *AgentResult)
	OnError           func(err error)
	OnRouteSelected   func(a *Agent)

	// Confirmation supplements a tool's static RequiresConfirmation flag
	// with a trust-tier policy decision: even a tool the tool author marked
	// safe can be forced through the confirmation gate for a given agent.
	// Nil means only the static flag applies.
	Confirmation ConfirmationPolicy
}

// ConfirmationPolicy decides, for a given agent and tool, whether a call
// must pause for human approval regardless of the tool's own static
// RequiresConfirmation flag. Implementations typically resolve a named
// policy bundle scoped to the calling agent's trust tier.
type ConfirmationPolicy interface {
	RequiresConfirmation(agentName, toolName string) bool
}

func (o RunOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o RunOptions) telemetry(ctx context.Context, e TelemetryEvent) {
	if o.Telemetry != nil {
		o.Telemetry.Process(ctx, e)
	}
}

// TurnLoop drives a single agent through Context.inputQueue to completion
// (or a pause, or a failure) per the decision tree:
//
//	function-calls present → unknown tool: error tool-output;
//	                          handoff tool: switch agent;
//	                          else: confirmation-gated execute
//	text-only               → output guardrails → optional parse → complete
//	neither                 → complete with empty output
//
// Tool calls within a turn are processed sequentially, in the order the
// model returned them; a confirmation-gated call pauses the whole turn
// (not just that call) until the caller resolves it.
type TurnLoop struct {
	opts RunOptions
}

// NewTurnLoop creates a TurnLoop with the given options.
func NewTurnLoop(opts RunOptions) *TurnLoop {
	return &TurnLoop{opts: opts}
}

// Run starts a new run of agent over runCtx, enqueuing input as the first
// pending message.
func (l *TurnLoop) Run(ctx context.Context, a *Agent, runCtx *Context, input string) (*AgentResult, error) {
	if runCtx == nil {
		runCtx = NewContext()
	}
	runCtx.AddInput(input)
	state := NewAgentRunState(a, runCtx)
	l.opts.telemetry(ctx, TelemetryEvent{Kind: TelemetryRunStarted, RunID: runID(state), AgentName: a.Name()})
	return l.drive(ctx, state)
}

// Resume continues a run previously suspended at PENDING_TOOL_APPROVAL.
// approved selects ApproveToolCall or RejectToolCall(reason); a state not
// currently pending produces a *ResumeError synchronously, matching the
// single-shot resume contract.
func (l *TurnLoop) Resume(ctx context.Context, state *AgentRunState, approved bool, reason string) (*AgentResult, error) {
	var err error
	if approved {
		err = state.ApproveToolCall()
	} else {
		err = state.RejectToolCall(reason)
	}
	if err != nil {
		return nil, err
	}
	return l.drive(ctx, state)
}

// runID derives a stable identifier for telemetry/trace correlation from
// the run state.
func runID(state *AgentRunState) string { return state.ID }

// drive is the core state machine. It runs until the state reaches
// COMPLETED, FAILED, or PENDING_TOOL_APPROVAL (in which case it returns a
// paused AgentResult rather than an error).
func (l *TurnLoop) drive(ctx context.Context, state *AgentRunState) (*AgentResult, error) {
	a := state.Agent
	runCtx := state.Context
	log := l.opts.logger()

	// If resuming from a resolved pending approval, act on the decision
	// and finish dispatching the rest of that turn's calls before doing
	// anything else: none of this counts as a new turn.
	if decision, ok := state.takeDecision(); ok {
		remaining := state.remaining
		state.remaining = nil

		exec, err := l.resolvePendingCall(ctx, state, decision)
		if err != nil {
			return l.fail(ctx, state, err), err
		}
		runCtx.AppendHistory(HistoryEntry{Role: "tool", Content: exec.Result.Content, Tool: exec})
		if l.opts.OnToolResult != nil {
			l.opts.OnToolResult(*exec)
		}

		if len(remaining) > 0 {
			if err := l.dispatchCalls(ctx, state, remaining); err != nil {
				return l.fail(ctx, state, err), nil
			}
			if state.Status == RunPendingToolApproval {
				return PausedResult(state), nil
			}
			if r := state.handoffResult; r != nil {
				state.handoffResult = nil
				l.opts.telemetry(ctx, TelemetryEvent{
					Kind: TelemetryRunFinished, RunID: runID(state), AgentName: a.Name(),
					Duration: time.Since(state.StartedAt),
				})
				return r, nil
			}
		}
	}

	for {
		if state.CurrentTurn >= a.MaxTurns() {
			err := fmt.Errorf("%w: agent %q reached max turns (%d)", ErrMaxTurnsExceeded, a.Name(), a.MaxTurns())
			return l.fail(ctx, state, err), nil
		}

		pending := runCtx.DrainInput()
		for _, text := range pending {
			if text == "" {
				continue
			}
			reason, res := runGuardrails(ctx, a.inputGuardrails, text)
			if !res.Passed {
				if l.opts.OnGuardrailFailed != nil {
					l.opts.OnGuardrailFailed("input", reason, res.Reason)
				}
				err := &GuardrailError{Stage: "input", Name: reason, Reason: res.Reason}
				return l.fail(ctx, state, err), nil
			}
			runCtx.AppendHistory(HistoryEntry{Role: "user", Content: text})
		}

		state.CurrentTurn++
		l.opts.telemetry(ctx, TelemetryEvent{Kind: TelemetryTurnStarted, RunID: runID(state), AgentName: a.Name()})
		if l.opts.OnTurnStart != nil {
			l.opts.OnTurnStart(state.CurrentTurn)
		}
		req := buildRequest(a, runCtx)

		start := time.Now()
		resp, err := retryRespond(ctx, l.retryPolicy(), func() (*Response, error) {
			return a.responder.Respond(ctx, req)
		})
		l.opts.telemetry(ctx, TelemetryEvent{
			Kind: TelemetryModelCall, RunID: runID(state), AgentName: a.Name(), Model: a.Model(),
			Duration: time.Since(start), Err: err,
		})
		if err != nil {
			log.ErrorContext(ctx, "responder call failed", "agent", a.Name(), "error", err)
			return l.fail(ctx, state, err), nil
		}
		if l.opts.OnTurnComplete != nil {
			l.opts.OnTurnComplete(resp)
		}

		calls := resp.FunctionCalls()
		text := resp.TextOf()
		state.LastResponse = text

		if len(calls) == 0 {
			reason, res := runGuardrails(ctx, a.outputGuardrails, text)
			if !res.Passed {
				if l.opts.OnGuardrailFailed != nil {
					l.opts.OnGuardrailFailed("output", reason, res.Reason)
				}
				err := &GuardrailError{Stage: "output", Name: reason, Reason: res.Reason}
				return l.fail(ctx, state, err), nil
			}
			runCtx.AppendHistory(HistoryEntry{Role: "assistant", Content: text})

			var parsed any
			if a.IsStructured() {
				p, perr := a.outputSchema.Parse(text)
				if perr != nil {
					return l.fail(ctx, state, &ParseError{AgentName: a.Name(), Text: text, Cause: perr}), nil
				}
				parsed = p
			}

			l.opts.telemetry(ctx, TelemetryEvent{
				Kind: TelemetryRunFinished, RunID: runID(state), AgentName: a.Name(),
				Duration: time.Since(state.StartedAt),
			})
			state.Status = RunCompleted
			result := SuccessResult(text, state)
			result.Parsed = parsed
			if l.opts.OnComplete != nil {
				l.opts.OnComplete(result)
			}
			return result, nil
		}

		runCtx.AppendHistory(HistoryEntry{Role: "assistant", Content: text})

		if err := l.dispatchCalls(ctx, state, calls); err != nil {
			return l.fail(ctx, state, err), nil
		}
		if state.Status == RunPendingToolApproval {
			return PausedResult(state), nil
		}
		if r := state.handoffResult; r != nil {
			state.handoffResult = nil
			l.opts.telemetry(ctx, TelemetryEvent{
				Kind: TelemetryRunFinished, RunID: runID(state), AgentName: a.Name(),
				Duration: time.Since(state.StartedAt),
			})
			if l.opts.OnComplete != nil {
				l.opts.OnComplete(r)
			}
			return r, nil
		}
		// loop back to step 1: invoke the responder again with the
		// updated history containing every tool output from this turn.
	}
}

// dispatchCalls processes a turn's function calls sequentially, in order.
// A handoff stores its (already-computed) AgentResult on state and returns
// nil; a confirmation-gated call pauses state and stashes any calls still
// left in the batch to resume after the decision.
func (l *TurnLoop) dispatchCalls(ctx context.Context, state *AgentRunState, calls []OutputItem) error {
	a := state.Agent
	runCtx := state.Context

	for i, call := range calls {
		if target, ok := a.lookupHandoff(call.Name); ok {
			nestedState := NewAgentRunState(target, runCtx)
			if l.opts.OnHandoff != nil {
				l.opts.OnHandoff(a, target)
			}
			l.opts.telemetry(ctx, TelemetryEvent{Kind: TelemetryHandoff, RunID: runID(state), AgentName: target.Name()})
			l.opts.telemetry(ctx, TelemetryEvent{Kind: TelemetryRunStarted, RunID: runID(nestedState), AgentName: target.Name()})
			nested, herr := l.drive(ctx, nestedState)
			if herr != nil {
				nested = l.fail(ctx, nestedState, herr)
			}
			if nested.IsError() {
				state.handoffResult = l.fail(ctx, state, &HandoffError{From: a.Name(), To: target.Name(), Cause: nested.Err})
				return nil
			}
			state.handoffResult = HandoffResultOf(target, nested)
			return nil
		}

		input := json.RawMessage(call.Arguments)
		tool, ok := a.lookupTool(call.Name)
		if !ok {
			exec := ToolExecution{
				CallID: call.CallID, ToolName: call.Name, Input: input,
				Result: &ToolResult{Content: "unknown tool: " + call.Name, IsError: true},
			}
			runCtx.AppendHistory(HistoryEntry{Role: "tool", Content: exec.Result.Content, Tool: &exec})
			if l.opts.OnToolResult != nil {
				l.opts.OnToolResult(exec)
			}
			continue
		}

		mustConfirm := tool.RequiresConfirmation()
		if !mustConfirm && l.opts.Confirmation != nil {
			mustConfirm = l.opts.Confirmation.RequiresConfirmation(a.Name(), call.Name)
		}
		if mustConfirm {
			pending := PendingToolCall{CallID: call.CallID, Name: call.Name, Input: input}

			if l.opts.OnToolCallPending != nil {
				var decided bool
				var approved bool
				var reason string
				l.opts.OnToolCallPending(pending, func(ok bool, r string) {
					decided, approved, reason = true, ok, r
				})
				if decided {
					var exec *ToolExecution
					var err error
					if approved {
						exec, err = l.execTool(ctx, state, call.CallID, tool, input)
					} else {
						if reason == "" {
							reason = "user denied the tool call"
						}
						exec = &ToolExecution{CallID: call.CallID, ToolName: call.Name, Input: input, Result: &ToolResult{Content: reason, IsError: true}}
					}
					if err != nil {
						return err
					}
					runCtx.AppendHistory(HistoryEntry{Role: "tool", Content: exec.Result.Content, Tool: exec})
					if l.opts.OnToolResult != nil {
						l.opts.OnToolResult(*exec)
					}
					continue
				}
			}

			state.pause(pending, calls[i+1:])
			if l.opts.OnPause != nil {
				l.opts.OnPause(state)
			}
			return nil
		}

		exec, terr := l.execTool(ctx, state, call.CallID, tool, input)
		if terr != nil {
			return terr
		}
		runCtx.AppendHistory(HistoryEntry{Role: "tool", Content: exec.Result.Content, Tool: exec})
		if l.opts.OnToolResult != nil {
			l.opts.OnToolResult(*exec)
		}
	}
	return nil
}

// resolvePendingCall runs the tool a run was paused on, synthesizing
// either the tool's real result (approved) or an error tool-output
// (rejected) without ever invoking the handler on rejection.
func (l *TurnLoop) resolvePendingCall(ctx context.Context, state *AgentRunState, decision approvalDecision) (*ToolExecution, error) {
	call := state.PendingToolCall
	if call == nil {
		return nil, &ResumeError{RunID: state.ID, Status: state.Status}
	}
	if !decision.approved {
		return &ToolExecution{
			CallID: call.CallID, ToolName: call.Name, Input: call.Input,
			Result: &ToolResult{Content: decision.reason, IsError: true},
		}, nil
	}
	tool, ok := state.Agent.lookupTool(call.Name)
	if !ok {
		return &ToolExecution{
			CallID: call.CallID, ToolName: call.Name, Input: call.Input,
			Result: &ToolResult{Content: "unknown tool: " + call.Name, IsError: true},
		}, nil
	}
	return l.execTool(ctx, state, call.CallID, tool, call.Input)
}

// execTool invokes a single tool, recovering handler panics and errors as
// an error ToolResult rather than propagating them: tool errors are
// recovered locally so the loop (and the model) can react.
func (l *TurnLoop) execTool(ctx context.Context, state *AgentRunState, callID string, tool Tool, input json.RawMessage) (exec *ToolExecution, failure error) {
	start := time.Now()
	exec = &ToolExecution{CallID: callID, ToolName: tool.Name(), Input: input, StartedAt: start}

	result, err := func() (res *ToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = NewToolError(tool.Name(), ErrToolPanic).WithToolCallID(callID).WithMessage(fmt.Sprintf("panic: %v", r))
			}
		}()
		return tool.Execute(ctx, input)
	}()

	exec.Duration = time.Since(start)
	if err != nil {
		exec.Result = &ToolResult{Content: err.Error(), IsError: true}
	} else if result == nil {
		exec.Result = &ToolResult{Content: "", IsError: false}
	} else {
		exec.Result = result
	}

	l.opts.telemetry(ctx, TelemetryEvent{
		Kind: TelemetryToolCall, RunID: runID(state), AgentName: state.Agent.Name(),
		ToolName: tool.Name(), Duration: exec.Duration, Success: !exec.Result.IsError,
	})
	state.ToolExecutions = append(state.ToolExecutions, *exec)
	return exec, nil
}

func (l *TurnLoop) fail(ctx context.Context, state *AgentRunState, err error) *AgentResult {
	state.Status = RunFailed
	l.opts.telemetry(ctx, TelemetryEvent{
		Kind: TelemetryRunError, RunID: runID(state), AgentName: state.Agent.Name(), Err: err,
		Duration: time.Since(state.StartedAt),
	})
	if l.opts.OnError != nil {
		l.opts.OnError(err)
	}
	return ErrorResult(err, state)
}

func (l *TurnLoop) retryPolicy() RetryPolicy {
	if l.opts.RetryPolicy.MaxAttempts > 0 {
		return l.opts.RetryPolicy
	}
	return DefaultRetryPolicy()
}

// buildRequest assembles the logical Responder request from an agent's
// configuration and its Context's history.
func buildRequest(a *Agent, runCtx *Context) *Request {
	items := make([]InputItem, 0, runCtx.HistorySize())
	for _, h := range runCtx.History() {
		if h.Tool != nil {
			items = append(items, InputItem{
				Type:    "function_call_output",
				CallID:  h.Tool.CallID,
				Output:  h.Tool.Result.Content,
				IsError: h.Tool.Result.IsError,
			})
			continue
		}
		items = append(items, InputItem{Type: "message", Role: string(h.Role), Content: h.Content})
	}

	tools := make([]ToolSpec, 0, len(a.tools)+len(a.handoffs))
	for _, t := range a.tools {
		tools = append(tools, ToolSpec{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()})
	}
	for _, target := range a.handoffs {
		tools = append(tools, ToolSpec{
			Name:        HandoffToolName(target.Name()),
			Description: "Transfer the conversation to " + target.Name(),
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		})
	}

	var format *ResponseFormat
	if a.IsStructured() {
		format = &ResponseFormat{Name: a.outputSchema.Name, Schema: a.outputSchema.Schema}
	}

	metadata := map[string]string{"run_id": uuid.NewString()}
	for k, v := range a.metadata {
		metadata[k] = v
	}

	return &Request{
		Model:           a.Model(),
		Instructions:    a.Instructions(),
		InputItems:      items,
		Tools:           tools,
		ResponseFormat:  format,
		Temperature:     a.temperature,
		MaxOutputTokens: a.maxOutputTokens,
		Metadata:        metadata,
	}
}
