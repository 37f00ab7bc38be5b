package agent

import (
	"context"
	"testing"
)

func buildConfirmationAgent(t *testing.T, tool *staticTool, responses []*Response) (*Agent, *TurnLoop) {
	t.Helper()
	a, err := NewAgent(AgentConfig{
		Name:      "intern",
		Model:     "test-model",
		Responder: &scriptedResponder{responses: responses},
		Tools:     []Tool{tool},
	})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return a, nil
}

func TestDispatchCalls_StaticFlagAloneRequiresConfirmation(t *testing.T) {
	tool := &staticTool{name: "danger", confirm: true, resultText: "done"}
	a, _ := buildConfirmationAgent(t, tool, []*Response{
		toolCallResponse("call-1", "danger", "{}"),
	})

	loop := NewTurnLoop(RunOptions{})
	result, err := loop.Run(context.Background(), a, nil, "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Kind != ResultPaused {
		t.Fatalf("Kind = %v, want ResultPaused (static RequiresConfirmation should gate even with no policy)", result.Kind)
	}
	if tool.invoked != 0 {
		t.Errorf("tool should not have executed before approval, invoked = %d", tool.invoked)
	}
}

func TestDispatchCalls_PolicyGatesToolTheToolItselfMarksSafe(t *testing.T) {
	tool := &staticTool{name: "safe_tool", confirm: false, resultText: "ok"}
	a, _ := buildConfirmationAgent(t, tool, []*Response{
		toolCallResponse("call-1", "safe_tool", "{}"),
	})

	loop := NewTurnLoop(RunOptions{
		Confirmation: fakeConfirmation{agentName: "intern", toolName: "safe_tool"},
	})
	result, err := loop.Run(context.Background(), a, nil, "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Kind != ResultPaused {
		t.Fatalf("Kind = %v, want ResultPaused (policy should gate a tool marked safe by the tool itself)", result.Kind)
	}
	if tool.invoked != 0 {
		t.Errorf("tool should not have executed before approval, invoked = %d", tool.invoked)
	}
}

func TestDispatchCalls_PolicyDoesNotGateOtherTools(t *testing.T) {
	tool := &staticTool{name: "safe_tool", confirm: false, resultText: "ok"}
	a, _ := buildConfirmationAgent(t, tool, []*Response{
		toolCallResponse("call-1", "safe_tool", "{}"),
		textResponse("all done"),
	})

	loop := NewTurnLoop(RunOptions{
		Confirmation: fakeConfirmation{agentName: "intern", toolName: "some_other_tool"},
	})
	result, err := loop.Run(context.Background(), a, nil, "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Kind != ResultSuccess {
		t.Fatalf("Kind = %v, want ResultSuccess; err=%v", result.Kind, result.Err)
	}
	if tool.invoked != 1 {
		t.Errorf("tool should have executed once, invoked = %d", tool.invoked)
	}
}

func TestDispatchCalls_NilPolicyOnlyUsesStaticFlag(t *testing.T) {
	tool := &staticTool{name: "safe_tool", confirm: false, resultText: "ok"}
	a, _ := buildConfirmationAgent(t, tool, []*Response{
		toolCallResponse("call-1", "safe_tool", "{}"),
		textResponse("all done"),
	})

	loop := NewTurnLoop(RunOptions{})
	result, err := loop.Run(context.Background(), a, nil, "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Kind != ResultSuccess {
		t.Fatalf("Kind = %v, want ResultSuccess", result.Kind)
	}
	if tool.invoked != 1 {
		t.Errorf("tool should have executed once, invoked = %d", tool.invoked)
	}
}
