package agent

// AgentResultKind discriminates the tagged variants of AgentResult.
type AgentResultKind string

const (
	ResultSuccess AgentResultKind = "success"
	ResultError   AgentResultKind = "error"
	ResultPaused  AgentResultKind = "paused"
	ResultHandoff AgentResultKind = "handoff"
)

// AgentResult is the outcome of running an agent to completion, to a pause
// point, or to a handoff/error. Exactly one of the Output/Err/RunState/
// HandoffTo fields is meaningful for a given Kind; the IsX predicates are
// the intended way to branch on it.
type AgentResult struct {
	Kind AgentResultKind

	Output string
	Err    error

	// RunState is populated when Kind == ResultPaused: it carries the
	// frozen AgentRunState a caller must Approve/Reject to resume.
	RunState *AgentRunState

	// HandoffTo is populated when Kind == ResultHandoff: the agent the
	// run was handed off to, and its own nested result.
	HandoffTo     *Agent
	HandoffResult *AgentResult

	// FinalContext is the Context as of the end of this result, letting
	// orchestrators thread conversation state across agents.
	FinalContext *Context

	// TurnsUsed is the number of model round-trips consumed before this
	// result was produced.
	TurnsUsed int
	// ToolExecutions accumulates every tool invocation recorded over the
	// run's lifetime, across pauses and resumes.
	ToolExecutions []ToolExecution
	// History is the run's conversation history as of this result.
	History []HistoryEntry

	// Parsed holds a structured agent's parsed output value when the
	// agent's OutputSchema was set; nil for plain-text agents.
	Parsed any
}

func (r *AgentResult) IsSuccess() bool { return r != nil && r.Kind == ResultSuccess }
func (r *AgentResult) IsError() bool   { return r != nil && r.Kind == ResultError }
func (r *AgentResult) IsPaused() bool  { return r != nil && r.Kind == ResultPaused }
func (r *AgentResult) IsHandoff() bool { return r != nil && r.Kind == ResultHandoff }

// SuccessResult builds a completed, successful AgentResult.
func SuccessResult(output string, state *AgentRunState) *AgentResult {
	return &AgentResult{
		Kind: ResultSuccess, Output: output, FinalContext: state.Context,
		TurnsUsed: state.CurrentTurn, ToolExecutions: state.ToolExecutions, History: state.Context.History(),
	}
}

// ErrorResult builds a failed AgentResult wrapping err.
func ErrorResult(err error, state *AgentRunState) *AgentResult {
	return &AgentResult{
		Kind: ResultError, Err: err, FinalContext: state.Context,
		TurnsUsed: state.CurrentTurn, ToolExecutions: state.ToolExecutions, History: state.Context.History(),
	}
}

// PausedResult builds an AgentResult reflecting a run suspended awaiting
// tool-call approval.
func PausedResult(state *AgentRunState) *AgentResult {
	return &AgentResult{
		Kind: ResultPaused, RunState: state, FinalContext: state.Context,
		TurnsUsed: state.CurrentTurn, ToolExecutions: state.ToolExecutions, History: state.Context.History(),
	}
}

// HandoffResultOf builds an AgentResult reflecting a completed handoff.
func HandoffResultOf(target *Agent, nested *AgentResult) *AgentResult {
	return &AgentResult{Kind: ResultHandoff, HandoffTo: target, HandoffResult: nested, FinalContext: nested.FinalContext}
}

// StructuredAgentResult wraps an AgentResult for an agent whose output
// schema parses the final text into a typed value of T.
type StructuredAgentResult[T any] struct {
	*AgentResult
	Parsed T
}

// AsStructured type-asserts r.Parsed into T, for callers of a structured
// agent that know its concrete output type. ok is false if r is nil or
// r.Parsed does not hold a T.
func AsStructured[T any](r *AgentResult) (StructuredAgentResult[T], bool) {
	if r == nil {
		return StructuredAgentResult[T]{}, false
	}
	v, ok := r.Parsed.(T)
	if !ok {
		return StructuredAgentResult[T]{}, false
	}
	return StructuredAgentResult[T]{AgentResult: r, Parsed: v}, true
}
