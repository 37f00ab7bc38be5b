package orchestrate

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/conclave/internal/agent"
)

// SubAgentTool adapts an agent so it appears to another agent as a single
// function tool named invoke_<snake(subAgent.name)>, taking one string
// parameter "request". Invocation delegates to the sub-agent's own turn
// loop; sub-agent failures become an error tool-output, never a panic or
// propagated exception.
type SubAgentTool struct {
	loop     *agent.TurnLoop
	subAgent *agent.Agent

	// ShareState makes the caller's Context state map visible to the
	// sub-agent. Defaults to true.
	ShareState bool
	// ShareHistory prepends the caller's history to the sub-agent's
	// context. Defaults to false.
	ShareHistory bool
}

// NewSubAgentTool builds a SubAgentTool with ShareState defaulted on.
func NewSubAgentTool(loop *agent.TurnLoop, sub *agent.Agent) *SubAgentTool {
	return &SubAgentTool{loop: loop, subAgent: sub, ShareState: true}
}

func (t *SubAgentTool) Name() string { return "invoke_" + agent.SnakeCase(t.subAgent.Name()) }

func (t *SubAgentTool) Description() string {
	return "Delegate a request to the " + t.subAgent.Name() + " sub-agent and return its response."
}

func (t *SubAgentTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"request": map[string]any{"type": "string"},
		},
		"required": []string{"request"},
	}
}

func (t *SubAgentTool) RequiresConfirmation() bool { return false }

type subAgentParams struct {
	Request string `json:"request"`
}

func (t *SubAgentTool) Execute(ctx context.Context, input json.RawMessage) (*agent.ToolResult, error) {
	var params subAgentParams
	if len(input) > 0 {
		if err := json.Unmarshal(input, &params); err != nil {
			return &agent.ToolResult{Content: "invalid sub-agent arguments: " + err.Error(), IsError: true}, nil
		}
	}

	subCtx := agent.NewContext()
	result, err := t.loop.Run(ctx, t.subAgent, subCtx, params.Request)
	if err != nil {
		return &agent.ToolResult{Content: "sub-agent invocation failed: " + err.Error(), IsError: true}, nil
	}
	if !result.IsSuccess() {
		msg := "sub-agent did not complete successfully"
		if result.Err != nil {
			msg = result.Err.Error()
		}
		return &agent.ToolResult{Content: msg, IsError: true}, nil
	}
	return &agent.ToolResult{Content: result.Output}, nil
}

// WithCallerContext seeds a fresh sub-agent Context from caller per
// ShareState/ShareHistory before delegating, instead of always starting
// from an empty Context. Orchestrator members that need caller state
// visibility (e.g. hierarchical departments) use this entry point.
func (t *SubAgentTool) WithCallerContext(ctx context.Context, caller *agent.Context, request string) (*agent.AgentResult, error) {
	subCtx := agent.NewContext()
	if t.ShareState {
		for k, v := range caller.StateSnapshot() {
			subCtx.SetState(k, v)
		}
	}
	if t.ShareHistory {
		for _, h := range caller.History() {
			subCtx.AppendHistory(h)
		}
	}
	return t.loop.Run(ctx, t.subAgent, subCtx, request)
}
