package providers

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/conclave/internal/agent"
)

// OpenAIResponder implements agent.Responder against the OpenAI Chat
// Completions API.
type OpenAIResponder struct {
	client       *openai.Client
	defaultModel string
}

// OpenAIConfig configures an OpenAIResponder.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// NewOpenAIResponder builds an OpenAIResponder. APIKey is required.
func NewOpenAIResponder(cfg OpenAIConfig) (*OpenAIResponder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("providers: openai API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIResponder{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *OpenAIResponder) model(req *agent.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func (p *OpenAIResponder) buildRequest(req *agent.Request, stream bool) openai.ChatCompletionRequest {
	messages := p.convertInput(req.Instructions, req.InputItems)
	chatReq := openai.ChatCompletionRequest{
		Model:    p.model(req),
		Messages: messages,
		Stream:   stream,
	}
	if req.MaxOutputTokens > 0 {
		chatReq.MaxTokens = req.MaxOutputTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = p.convertTools(req.Tools)
	}
	if req.ResponseFormat != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.ResponseFormat.Name,
				Schema: req.ResponseFormat.Schema,
				Strict: true,
			},
		}
	}
	return chatReq
}

// Respond performs one non-streaming chat completion call.
func (p *OpenAIResponder) Respond(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req, false))
	if err != nil {
		return nil, p.wrapError(err)
	}
	return p.convertResponse(&resp), nil
}

// Stream performs one streaming chat completion call, accumulating
// incrementally-delivered tool-call arguments and emitting a single
// completed function_call item per call once the stream finishes it.
func (p *OpenAIResponder) Stream(ctx context.Context, req *agent.Request) (<-chan agent.StreamEvent, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, p.wrapError(err)
	}

	events := make(chan agent.StreamEvent)
	go func() {
		defer close(events)
		defer stream.Close()

		type building struct {
			id, name string
			args     string
		}
		calls := make(map[int]*building)
		order := make([]int, 0, 4)
		var usage agent.Usage
		model := p.model(req)

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				events <- agent.StreamEvent{Kind: agent.StreamError, Err: p.wrapError(err)}
				return
			}
			if chunk.Usage != nil {
				usage = agent.Usage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			if delta.Content != "" {
				events <- agent.StreamEvent{Kind: agent.StreamTextDelta, Delta: delta.Content}
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				b, ok := calls[idx]
				if !ok {
					b = &building{}
					calls[idx] = b
					order = append(order, idx)
				}
				if tc.ID != "" {
					b.id = tc.ID
				}
				if tc.Function.Name != "" {
					b.name = tc.Function.Name
				}
				b.args += tc.Function.Arguments
			}
		}

		items := make([]agent.OutputItem, 0, len(order))
		for i, idx := range order {
			b := calls[idx]
			item := agent.OutputItem{Type: agent.OutputFunctionCall, CallID: b.id, Name: b.name, Arguments: b.args}
			events <- agent.StreamEvent{Kind: agent.StreamItemComplete, ItemIndex: i, Item: &item}
			items = append(items, item)
		}

		events <- agent.StreamEvent{Kind: agent.StreamDone, Response: &agent.Response{Model: model, Output: items, Usage: usage}}
	}()

	return events, nil
}

func (p *OpenAIResponder) convertInput(instructions string, items []agent.InputItem) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(items)+1)
	if instructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: instructions})
	}
	for _, item := range items {
		switch item.Type {
		case "function_call_output":
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    item.Output,
				ToolCallID: item.CallID,
			})
		default:
			role := item.Role
			if role == "" {
				role = openai.ChatMessageRoleUser
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: item.Content})
		}
	}
	return messages
}

func (p *OpenAIResponder) convertTools(tools []agent.ToolSpec) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func (p *OpenAIResponder) convertResponse(resp *openai.ChatCompletionResponse) *agent.Response {
	out := &agent.Response{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: agent.Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens},
	}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Status = string(choice.FinishReason)

	msg := choice.Message
	if msg.Content != "" {
		out.Output = append(out.Output, agent.OutputItem{
			Type:    agent.OutputMessage,
			Role:    "assistant",
			Content: []agent.OutputContent{{Type: "output_text", Text: msg.Content}},
		})
	}
	for _, tc := range msg.ToolCalls {
		out.Output = append(out.Output, agent.OutputItem{
			Type:      agent.OutputFunctionCall,
			CallID:    tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

func (p *OpenAIResponder) wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &agent.TransportError{Cause: fmt.Errorf("openai: %s", apiErr.Message), Attempts: 1}
	}
	return &agent.TransportError{Cause: err, Attempts: 1}
}
