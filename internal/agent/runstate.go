package agent

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the state of an AgentRunState's lifecycle.
type RunStatus string

const (
	RunRunning             RunStatus = "RUNNING"
	RunPendingToolApproval RunStatus = "PENDING_TOOL_APPROVAL"
	RunCompleted           RunStatus = "COMPLETED"
	RunFailed              RunStatus = "FAILED"
)

// PendingToolCall is the tool call an AgentRunState is paused on.
type PendingToolCall struct {
	CallID string
	Name   string
	Input  json.RawMessage
}

// AgentRunState is a reified pause token: the frozen state of a run
// suspended at PENDING_TOOL_APPROVAL, exposing a single-shot
// Approve/Reject pair that resumes it exactly once.
//
// Resuming from any status other than PENDING_TOOL_APPROVAL, or resuming
// twice, raises a ResumeError rather than silently no-op'ing.
type AgentRunState struct {
	mu sync.Mutex

	ID        string
	Status    RunStatus
	Agent     *Agent
	Context   *Context
	StartedAt time.Time

	CurrentTurn     int
	ToolExecutions  []ToolExecution
	LastResponse    string
	PendingToolCall *PendingToolCall

	// remaining holds the function calls from the same turn that had not
	// yet been dispatched when PendingToolCall paused the run; they are
	// resumed, in order, before the next responder call.
	remaining []OutputItem

	// handoffResult carries a nested handoff's AgentResult from
	// dispatchCalls back up to drive without unwinding through error
	// returns.
	handoffResult *AgentResult

	resolved bool
	decision *approvalDecision
}

type approvalDecision struct {
	approved bool
	reason   string
}

// NewAgentRunState creates a run state in RUNNING status.
func NewAgentRunState(a *Agent, ctx *Context) *AgentRunState {
	return &AgentRunState{
		ID:        uuid.NewString(),
		Status:    RunRunning,
		Agent:     a,
		Context:   ctx,
		StartedAt: time.Now(),
	}
}

// pause transitions the state to PENDING_TOOL_APPROVAL for the given call,
// stashing any calls from the same turn still awaiting dispatch.
func (s *AgentRunState) pause(call PendingToolCall, remaining []OutputItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = RunPendingToolApproval
	s.PendingToolCall = &call
	s.remaining = append([]OutputItem(nil), remaining...)
}

// ApproveToolCall resolves a pending approval affirmatively. It may be
// called exactly once, and only while Status == PENDING_TOOL_APPROVAL.
func (s *AgentRunState) ApproveToolCall() error {
	return s.resolve(true, "")
}

// RejectToolCall resolves a pending approval negatively, with an optional
// reason surfaced to the model as the tool's error output. If reason is
// empty, a default "user denied" message is used.
func (s *AgentRunState) RejectToolCall(reason string) error {
	if reason == "" {
		reason = "user denied the tool call"
	}
	return s.resolve(false, reason)
}

func (s *AgentRunState) resolve(approved bool, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != RunPendingToolApproval || s.resolved {
		return &ResumeError{RunID: s.ID, Status: s.Status}
	}
	s.resolved = true
	s.decision = &approvalDecision{approved: approved, reason: reason}
	s.Status = RunRunning
	return nil
}

// takeDecision consumes and clears the pending decision for the loop to
// act on; returns ok=false if none is pending.
func (s *AgentRunState) takeDecision() (approvalDecision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decision == nil {
		return approvalDecision{}, false
	}
	d := *s.decision
	s.decision = nil
	s.PendingToolCall = nil
	return d, true
}
