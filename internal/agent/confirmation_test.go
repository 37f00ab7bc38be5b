package agent

import (
	"context"
	"encoding/json"
)

// fakeConfirmation is a minimal agent.ConfirmationPolicy test double: it
// gates a single named tool for a single named agent, regardless of the
// tool's own static RequiresConfirmation flag.
type fakeConfirmation struct {
	agentName, toolName string
}

func (f fakeConfirmation) RequiresConfirmation(agentName, toolName string) bool {
	return agentName == f.agentName && toolName == f.toolName
}

// staticTool is a Tool whose RequiresConfirmation is fixed at construction,
// for exercising the turn loop's confirmation gate independent of policy.
type staticTool struct {
	name       string
	confirm    bool
	invoked    int
	resultText string
}

func (t *staticTool) Name() string        { return t.name }
func (t *staticTool) Description() string { return "test tool" }
func (t *staticTool) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
func (t *staticTool) RequiresConfirmation() bool { return t.confirm }
func (t *staticTool) Execute(_ context.Context, _ json.RawMessage) (*ToolResult, error) {
	t.invoked++
	return &ToolResult{Content: t.resultText}, nil
}

// scriptedResponder replays a fixed sequence of Responses, one per call to
// Respond, ignoring Stream (the loop tests here only exercise Respond).
type scriptedResponder struct {
	responses []*Response
	calls     int
	err       error
}

func (r *scriptedResponder) Respond(_ context.Context, _ *Request) (*Response, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.calls >= len(r.responses) {
		return &Response{Status: "completed"}, nil
	}
	resp := r.responses[r.calls]
	r.calls++
	return resp, nil
}

func (r *scriptedResponder) Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error) {
	resp, err := r.Respond(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan StreamEvent, 1)
	ch <- StreamEvent{Kind: StreamDone, Response: resp}
	close(ch)
	return ch, nil
}

func toolCallResponse(callID, toolName, args string) *Response {
	return &Response{
		Status: "requires_action",
		Output: []OutputItem{{Type: OutputFunctionCall, CallID: callID, Name: toolName, Arguments: args}},
	}
}

func textResponse(text string) *Response {
	return &Response{
		Status: "completed",
		Output: []OutputItem{{Type: OutputMessage, Role: "assistant", Content: []OutputContent{{Type: "output_text", Text: text}}}},
	}
}
