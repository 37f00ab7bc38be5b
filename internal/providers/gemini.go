package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/haasonsaas/conclave/internal/agent"
)

// GeminiResponder implements agent.Responder against Google's Gemini API via
// the google.golang.org/genai SDK.
type GeminiResponder struct {
	client       *genai.Client
	defaultModel string
}

// GeminiConfig configures a GeminiResponder.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
}

// NewGeminiResponder builds a GeminiResponder. APIKey is required.
func NewGeminiResponder(ctx context.Context, cfg GeminiConfig) (*GeminiResponder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("providers: gemini API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("providers: gemini: building client: %w", err)
	}
	return &GeminiResponder{client: client, defaultModel: cfg.DefaultModel}, nil
}

func (p *GeminiResponder) model(req *agent.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func (p *GeminiResponder) buildContents(items []agent.InputItem) []*genai.Content {
	contents := make([]*genai.Content, 0, len(items))
	for _, item := range items {
		switch item.Type {
		case "function_call_output":
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{genai.NewPartFromFunctionResponse(item.CallID, map[string]any{
					"output": item.Output,
				})},
			})
		default:
			role := "user"
			if item.Role == "assistant" {
				role = "model"
			}
			contents = append(contents, genai.NewContentFromText(item.Content, genai.Role(role)))
		}
	}
	return contents
}

func (p *GeminiResponder) buildConfig(req *agent.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.Instructions != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instructions, "system")
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  convertSchema(t.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}

func convertSchema(params map[string]any) *genai.Schema {
	if params == nil {
		return nil
	}
	schema := &genai.Schema{Type: genai.TypeObject}
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			propMap, _ := raw.(map[string]any)
			propSchema := &genai.Schema{Type: genai.TypeString}
			if t, ok := propMap["type"].(string); ok && t != "" {
				propSchema.Type = genai.Type(t)
			}
			if d, ok := propMap["description"].(string); ok {
				propSchema.Description = d
			}
			schema.Properties[name] = propSchema
		}
	}
	if req, ok := params["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	return schema
}

// Respond performs one non-streaming GenerateContent call.
func (p *GeminiResponder) Respond(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model(req), p.buildContents(req.InputItems), p.buildConfig(req))
	if err != nil {
		return nil, p.wrapError(err)
	}
	return p.convertResponse(p.model(req), resp), nil
}

// Stream performs one streaming GenerateContentStream call.
func (p *GeminiResponder) Stream(ctx context.Context, req *agent.Request) (<-chan agent.StreamEvent, error) {
	events := make(chan agent.StreamEvent)
	go func() {
		defer close(events)

		var lastModel string
		var usage agent.Usage
		var textParts []agent.OutputContent
		var calls []agent.OutputItem

		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model(req), p.buildContents(req.InputItems), p.buildConfig(req)) {
			if err != nil {
				events <- agent.StreamEvent{Kind: agent.StreamError, Err: p.wrapError(err)}
				return
			}
			lastModel = p.model(req)
			if resp.UsageMetadata != nil {
				usage = agent.Usage{
					InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
					OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				}
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if part.Text != "" {
						events <- agent.StreamEvent{Kind: agent.StreamTextDelta, Delta: part.Text}
						textParts = append(textParts, agent.OutputContent{Type: "output_text", Text: part.Text})
					}
					if part.FunctionCall != nil {
						args := marshalArgs(part.FunctionCall.Args)
						item := agent.OutputItem{Type: agent.OutputFunctionCall, Name: part.FunctionCall.Name, Arguments: args}
						events <- agent.StreamEvent{Kind: agent.StreamItemComplete, ItemIndex: len(calls), Item: &item}
						calls = append(calls, item)
					}
				}
			}
		}

		out := &agent.Response{Model: lastModel, Usage: usage, Output: calls}
		if len(textParts) > 0 {
			out.Output = append([]agent.OutputItem{{Type: agent.OutputMessage, Role: "assistant", Content: textParts}}, out.Output...)
		}
		events <- agent.StreamEvent{Kind: agent.StreamDone, Response: out}
	}()
	return events, nil
}

func (p *GeminiResponder) convertResponse(model string, resp *genai.GenerateContentResponse) *agent.Response {
	out := &agent.Response{Model: model}
	if resp.UsageMetadata != nil {
		out.Usage = agent.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	var textParts []agent.OutputContent
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textParts = append(textParts, agent.OutputContent{Type: "output_text", Text: part.Text})
		}
		if part.FunctionCall != nil {
			out.Output = append(out.Output, agent.OutputItem{
				Type: agent.OutputFunctionCall, Name: part.FunctionCall.Name, Arguments: marshalArgs(part.FunctionCall.Args),
			})
		}
	}
	if len(textParts) > 0 {
		out.Output = append([]agent.OutputItem{{Type: agent.OutputMessage, Role: "assistant", Content: textParts}}, out.Output...)
	}
	return out
}

func marshalArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (p *GeminiResponder) wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &agent.TransportError{Cause: fmt.Errorf("gemini: %s", apiErr.Message), Attempts: 1}
	}
	return &agent.TransportError{Cause: err, Attempts: 1}
}
