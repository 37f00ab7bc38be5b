package agent

import (
	"errors"
	"testing"
)

func newTestRunState() *AgentRunState {
	ctx := NewContext()
	ctx.AppendHistory(HistoryEntry{Content: "hi"})
	s := NewAgentRunState(nil, ctx)
	s.CurrentTurn = 3
	s.ToolExecutions = []ToolExecution{{CallID: "c1", ToolName: "search"}}
	return s
}

func TestSuccessResult(t *testing.T) {
	state := newTestRunState()
	r := SuccessResult("the answer", state)
	if !r.IsSuccess() || r.Output != "the answer" {
		t.Fatalf("SuccessResult = %+v", r)
	}
	if r.TurnsUsed != 3 || len(r.ToolExecutions) != 1 || len(r.History) != 1 {
		t.Errorf("SuccessResult did not copy run state fields: %+v", r)
	}
}

func TestErrorResult(t *testing.T) {
	state := newTestRunState()
	want := errors.New("boom")
	r := ErrorResult(want, state)
	if !r.IsError() || !errors.Is(r.Err, want) {
		t.Fatalf("ErrorResult = %+v", r)
	}
}

func TestPausedResult(t *testing.T) {
	state := newTestRunState()
	r := PausedResult(state)
	if !r.IsPaused() || r.RunState != state {
		t.Fatalf("PausedResult = %+v", r)
	}
}

func TestHandoffResultOf(t *testing.T) {
	nested := SuccessResult("nested output", newTestRunState())
	target, err := NewAgent(AgentConfig{Name: "billing", Model: "m", Responder: &scriptedResponder{}})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	r := HandoffResultOf(target, nested)
	if !r.IsHandoff() || r.HandoffTo != target || r.HandoffResult != nested {
		t.Fatalf("HandoffResultOf = %+v", r)
	}
}

func TestAgentResult_NilPredicatesAreFalse(t *testing.T) {
	var r *AgentResult
	if r.IsSuccess() || r.IsError() || r.IsPaused() || r.IsHandoff() {
		t.Error("predicates on a nil *AgentResult should all be false")
	}
}

func TestAsStructured(t *testing.T) {
	r := SuccessResult("{}", newTestRunState())
	r.Parsed = map[string]any{"ok": true}

	got, ok := AsStructured[map[string]any](r)
	if !ok || got.Parsed["ok"] != true {
		t.Fatalf("AsStructured = %+v, %v", got, ok)
	}

	if _, ok := AsStructured[int](r); ok {
		t.Error("AsStructured should fail when Parsed does not hold the requested type")
	}
	if _, ok := AsStructured[map[string]any](nil); ok {
		t.Error("AsStructured(nil) should fail")
	}
}
