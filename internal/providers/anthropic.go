// Package providers implements concrete agent.Responder transports against
// real LLM SDKs. Each provider owns request/response conversion only; retry,
// guardrails, and tool dispatch live in the turn loop.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/conclave/internal/agent"
)

// AnthropicResponder implements agent.Responder against the Anthropic
// Messages API.
type AnthropicResponder struct {
	client       anthropic.Client
	defaultModel string
}

// AnthropicConfig configures an AnthropicResponder.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// NewAnthropicResponder builds an AnthropicResponder. APIKey is required.
func NewAnthropicResponder(cfg AnthropicConfig) (*AnthropicResponder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("providers: anthropic API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicResponder{
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *AnthropicResponder) model(req *agent.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func (p *AnthropicResponder) maxTokens(req *agent.Request) int64 {
	if req.MaxOutputTokens > 0 {
		return int64(req.MaxOutputTokens)
	}
	return 4096
}

func (p *AnthropicResponder) buildParams(req *agent.Request) (anthropic.MessageNewParams, error) {
	messages, err := p.convertInput(req.InputItems)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("providers: anthropic: converting input: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model(req)),
		Messages:  messages,
		MaxTokens: p.maxTokens(req),
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.Instructions}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		tools, err := p.convertTools(req.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = tools
	}
	return params, nil
}

// Respond performs one non-streaming Messages API call.
func (p *AnthropicResponder) Respond(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(err)
	}
	return p.convertResponse(msg), nil
}

// Stream performs one streaming Messages API call, converting Anthropic's
// SSE event sequence into the Responder's StreamEvent contract.
func (p *AnthropicResponder) Stream(ctx context.Context, req *agent.Request) (<-chan agent.StreamEvent, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	events := make(chan agent.StreamEvent)
	go func() {
		defer close(events)

		stream := p.client.Messages.NewStreaming(ctx, params)

		var message anthropic.Message
		var currentCallID, currentCallName string
		var currentArgs strings.Builder
		itemIndex := -1

		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				events <- agent.StreamEvent{Kind: agent.StreamError, Err: p.wrapError(err)}
				return
			}

			switch event.Type {
			case "content_block_start":
				block := event.AsContentBlockStart().ContentBlock
				if block.Type == "tool_use" {
					itemIndex++
					toolUse := block.AsToolUse()
					currentCallID, currentCallName = toolUse.ID, toolUse.Name
					currentArgs.Reset()
				}
			case "content_block_delta":
				delta := event.AsContentBlockDelta().Delta
				switch delta.Type {
				case "text_delta":
					if delta.Text != "" {
						events <- agent.StreamEvent{Kind: agent.StreamTextDelta, Delta: delta.Text}
					}
				case "input_json_delta":
					currentArgs.WriteString(delta.PartialJSON)
				}
			case "content_block_stop":
				if currentCallName != "" {
					events <- agent.StreamEvent{
						Kind:      agent.StreamItemComplete,
						ItemIndex: itemIndex,
						Item: &agent.OutputItem{
							Type:      agent.OutputFunctionCall,
							CallID:    currentCallID,
							Name:      currentCallName,
							Arguments: currentArgs.String(),
						},
					}
					currentCallName = ""
				}
			}
		}

		if err := stream.Err(); err != nil {
			events <- agent.StreamEvent{Kind: agent.StreamError, Err: p.wrapError(err)}
			return
		}

		events <- agent.StreamEvent{Kind: agent.StreamDone, Response: p.convertResponse(&message)}
	}()

	return events, nil
}

func (p *AnthropicResponder) convertInput(items []agent.InputItem) ([]anthropic.MessageParam, error) {
	var messages []anthropic.MessageParam
	for _, item := range items {
		switch item.Type {
		case "function_call_output":
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(item.CallID, item.Output, item.IsError),
			))
		default:
			block := anthropic.NewTextBlock(item.Content)
			if item.Role == "assistant" {
				messages = append(messages, anthropic.NewAssistantMessage(block))
			} else {
				messages = append(messages, anthropic.NewUserMessage(block))
			}
		}
	}
	return messages, nil
}

func (p *AnthropicResponder) convertTools(tools []agent.ToolSpec) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		raw, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("providers: anthropic: marshaling schema for %s: %w", t.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("providers: anthropic: invalid schema for %s: %w", t.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(t.Description)
		}
		result = append(result, param)
	}
	return result, nil
}

func (p *AnthropicResponder) convertResponse(msg *anthropic.Message) *agent.Response {
	resp := &agent.Response{
		ID:     msg.ID,
		Status: string(msg.StopReason),
		Model:  string(msg.Model),
		Usage: agent.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}

	var textParts []agent.OutputContent
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, agent.OutputContent{Type: "output_text", Text: variant.Text})
		case anthropic.ToolUseBlock:
			args, _ := json.Marshal(variant.Input)
			resp.Output = append(resp.Output, agent.OutputItem{
				Type:      agent.OutputFunctionCall,
				CallID:    variant.ID,
				Name:      variant.Name,
				Arguments: string(args),
			})
		}
	}
	if len(textParts) > 0 {
		resp.Output = append([]agent.OutputItem{{Type: agent.OutputMessage, Role: "assistant", Content: textParts}}, resp.Output...)
	}
	return resp
}

func (p *AnthropicResponder) wrapError(err error) error {
	if err == nil {
		return nil
	}
	return &agent.TransportError{Cause: err, Attempts: 1}
}
