package agent

import "testing"

func TestResponse_TextOfConcatenatesMessageContent(t *testing.T) {
	r := &Response{Output: []OutputItem{
		{Type: OutputMessage, Content: []OutputContent{{Type: "output_text", Text: "hello "}, {Type: "output_text", Text: "world"}}},
		{Type: OutputFunctionCall, Name: "search"},
		{Type: OutputMessage, Content: []OutputContent{{Type: "output_text", Text: "!"}}},
	}}
	if got := r.TextOf(); got != "hello world!" {
		t.Errorf("TextOf() = %q, want %q", got, "hello world!")
	}
}

func TestResponse_TextOfIgnoresNonTextContent(t *testing.T) {
	r := &Response{Output: []OutputItem{
		{Type: OutputMessage, Content: []OutputContent{{Type: "image", Text: "ignored"}}},
	}}
	if got := r.TextOf(); got != "" {
		t.Errorf("TextOf() = %q, want empty", got)
	}
}

func TestResponse_FunctionCallsFiltersMessages(t *testing.T) {
	r := &Response{Output: []OutputItem{
		{Type: OutputMessage, Content: []OutputContent{{Type: "output_text", Text: "hi"}}},
		{Type: OutputFunctionCall, Name: "search", CallID: "c1"},
		{Type: OutputFunctionCall, Name: "lookup", CallID: "c2"},
	}}
	calls := r.FunctionCalls()
	if len(calls) != 2 || calls[0].Name != "search" || calls[1].Name != "lookup" {
		t.Errorf("FunctionCalls() = %+v", calls)
	}
}

func TestResponse_FunctionCallsEmptyWhenNone(t *testing.T) {
	r := &Response{Output: []OutputItem{{Type: OutputMessage}}}
	if calls := r.FunctionCalls(); len(calls) != 0 {
		t.Errorf("FunctionCalls() = %+v, want empty", calls)
	}
}
