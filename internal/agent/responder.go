package agent

import "context"

// Responder is the sole non-trivial external boundary: the injected LLM
// transport capability. Everything else the loop needs (tool dispatch,
// guardrails, handoff) is pure control flow over a Responder's output.
type Responder interface {
	// Respond performs one non-streaming model call, returning a
	// completed Response or a transport error.
	Respond(ctx context.Context, req *Request) (*Response, error)

	// Stream performs one streaming model call. The returned channel
	// delivers a single-pass, finite sequence of StreamEvents
	// terminating in exactly one Done event carrying the fully
	// assembled Response. The channel is closed after the terminal
	// event or on error.
	Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error)
}

// Request is the logical shape of a Responder call.
type Request struct {
	Model           string
	Instructions    string
	InputItems      []InputItem
	Tools           []ToolSpec
	ResponseFormat  *ResponseFormat
	Temperature     *float64
	MaxOutputTokens int
	Metadata        map[string]string
}

// InputItem is one entry of conversational input fed to the model: either
// a message (user/assistant/system/tool) or a function-call result being
// relayed back.
type InputItem struct {
	Type    string // "message" | "function_call_output"
	Role    string // for Type == "message"
	Content string

	// For Type == "function_call_output".
	CallID string
	Output string
	IsError bool
}

// ToolSpec is the wire-shape of a tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ResponseFormat requests structured output from the model.
type ResponseFormat struct {
	Name   string
	Schema map[string]any
}

// Response is the logical shape of a completed model call.
type Response struct {
	ID     string
	Status string
	Model  string
	Output []OutputItem
	Usage  Usage
}

// Usage reports token accounting for a completed Response.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// OutputItemType discriminates OutputItem's two shapes.
type OutputItemType string

const (
	OutputMessage      OutputItemType = "message"
	OutputFunctionCall OutputItemType = "function_call"
)

// OutputItem is a single entry of a Response's output: either a message
// (with one or more output_text content parts) or a function call request.
type OutputItem struct {
	Type OutputItemType

	// For Type == OutputMessage.
	Role    string
	Content []OutputContent

	// For Type == OutputFunctionCall.
	CallID    string
	Name      string
	Arguments string
}

// OutputContent is one content part of a message OutputItem.
type OutputContent struct {
	Type string // "output_text"
	Text string
}

// StreamEventKind discriminates StreamEvent's variants.
type StreamEventKind string

const (
	StreamTextDelta    StreamEventKind = "text.delta"
	StreamItemStarted  StreamEventKind = "item.started"
	StreamItemComplete StreamEventKind = "item.complete"
	StreamDone         StreamEventKind = "response.done"
	StreamError        StreamEventKind = "error"
)

// StreamEvent is one element of a Responder.Stream sequence.
type StreamEvent struct {
	Kind StreamEventKind

	// For StreamTextDelta.
	Delta string

	// For StreamItemStarted/StreamItemComplete, an opaque marker for the
	// item index being streamed (e.g. which function call).
	ItemIndex int
	Item      *OutputItem

	// For StreamDone: the fully assembled response.
	Response *Response

	// For StreamError.
	Err error
}

// TextOf concatenates every output_text content part across a Response's
// message output items, in order. It is the plain-text view of a turn's
// model output once tool calls (if any) have been stripped away.
func (r *Response) TextOf() string {
	var out string
	for _, item := range r.Output {
		if item.Type != OutputMessage {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				out += c.Text
			}
		}
	}
	return out
}

// FunctionCalls returns every function_call output item in the Response,
// in order.
func (r *Response) FunctionCalls() []OutputItem {
	var calls []OutputItem
	for _, item := range r.Output {
		if item.Type == OutputFunctionCall {
			calls = append(calls, item)
		}
	}
	return calls
}
