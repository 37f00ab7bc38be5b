package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/document"

	"github.com/haasonsaas/conclave/internal/agent"
)

// BedrockResponder implements agent.Responder against AWS Bedrock's Converse
// API, the cross-model entry point covering Anthropic, Meta, and Amazon
// foundation models hosted on Bedrock.
type BedrockResponder struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// BedrockConfig configures a BedrockResponder.
type BedrockConfig struct {
	Region       string
	DefaultModel string
}

// NewBedrockResponder loads the default AWS credential chain for Region and
// builds a BedrockResponder. DefaultModel must identify a Converse-capable
// model ARN or ID.
func NewBedrockResponder(ctx context.Context, cfg BedrockConfig) (*BedrockResponder, error) {
	if cfg.DefaultModel == "" {
		return nil, errors.New("providers: bedrock default model is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("providers: bedrock: loading AWS config: %w", err)
	}
	return &BedrockResponder{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *BedrockResponder) model(req *agent.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func (p *BedrockResponder) buildInput(req *agent.Request) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(p.model(req)),
		Messages: p.convertInput(req.InputItems),
	}
	if req.Instructions != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.Instructions}}
	}
	inferCfg := &types.InferenceConfiguration{}
	hasInfer := false
	if req.Temperature != nil {
		inferCfg.Temperature = aws.Float32(float32(*req.Temperature))
		hasInfer = true
	}
	if req.MaxOutputTokens > 0 {
		inferCfg.MaxTokens = aws.Int32(int32(req.MaxOutputTokens))
		hasInfer = true
	}
	if hasInfer {
		input.InferenceConfig = inferCfg
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = p.convertTools(req.Tools)
	}
	return input
}

// Respond performs one non-streaming Converse call.
func (p *BedrockResponder) Respond(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	out, err := p.client.Converse(ctx, p.buildInput(req))
	if err != nil {
		return nil, p.wrapError(err)
	}
	return p.convertOutput(p.model(req), out), nil
}

// Stream performs one ConverseStream call, converting Bedrock's event
// stream into the Responder's StreamEvent contract.
func (p *BedrockResponder) Stream(ctx context.Context, req *agent.Request) (<-chan agent.StreamEvent, error) {
	resp, err := p.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:         p.buildInput(req).ModelId,
		Messages:        p.buildInput(req).Messages,
		System:          p.buildInput(req).System,
		InferenceConfig: p.buildInput(req).InferenceConfig,
		ToolConfig:      p.buildInput(req).ToolConfig,
	})
	if err != nil {
		return nil, p.wrapError(err)
	}

	events := make(chan agent.StreamEvent)
	go func() {
		defer close(events)

		var currentCallID, currentToolName string
		var currentArgs string
		itemIndex := -1
		var usage agent.Usage

		stream := resp.GetStream()
		defer stream.Close()

		for event := range stream.Events() {
			switch v := event.(type) {
			case *types.ConverseStreamOutputMemberContentBlockStart:
				if start, ok := v.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
					itemIndex++
					currentCallID = aws.ToString(start.Value.ToolUseId)
					currentToolName = aws.ToString(start.Value.Name)
					currentArgs = ""
				}
			case *types.ConverseStreamOutputMemberContentBlockDelta:
				switch d := v.Value.Delta.(type) {
				case *types.ContentBlockDeltaMemberText:
					events <- agent.StreamEvent{Kind: agent.StreamTextDelta, Delta: d.Value}
				case *types.ContentBlockDeltaMemberToolUse:
					currentArgs += aws.ToString(d.Value.Input)
				}
			case *types.ConverseStreamOutputMemberContentBlockStop:
				if currentToolName != "" {
					events <- agent.StreamEvent{
						Kind:      agent.StreamItemComplete,
						ItemIndex: itemIndex,
						Item: &agent.OutputItem{
							Type: agent.OutputFunctionCall, CallID: currentCallID,
							Name: currentToolName, Arguments: currentArgs,
						},
					}
					currentToolName = ""
				}
			case *types.ConverseStreamOutputMemberMetadata:
				if v.Value.Usage != nil {
					usage = agent.Usage{
						InputTokens:  int(aws.ToInt32(v.Value.Usage.InputTokens)),
						OutputTokens: int(aws.ToInt32(v.Value.Usage.OutputTokens)),
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			events <- agent.StreamEvent{Kind: agent.StreamError, Err: p.wrapError(err)}
			return
		}
		events <- agent.StreamEvent{Kind: agent.StreamDone, Response: &agent.Response{Model: p.model(req), Usage: usage}}
	}()

	return events, nil
}

func (p *BedrockResponder) convertInput(items []agent.InputItem) []types.Message {
	var messages []types.Message
	for _, item := range items {
		switch item.Type {
		case "function_call_output":
			status := types.ToolResultStatusSuccess
			if item.IsError {
				status = types.ToolResultStatusError
			}
			messages = append(messages, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: aws.String(item.CallID),
						Status:    status,
						Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: item.Output}},
					},
				}},
			})
		default:
			role := types.ConversationRoleUser
			if item.Role == "assistant" {
				role = types.ConversationRoleAssistant
			}
			messages = append(messages, types.Message{
				Role:    role,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: item.Content}},
			})
		}
	}
	return messages
}

func (p *BedrockResponder) convertTools(tools []agent.ToolSpec) *types.ToolConfiguration {
	specs := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		raw, _ := json.Marshal(t.Parameters)
		specs = append(specs, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(json.RawMessage(raw))},
			},
		})
	}
	return &types.ToolConfiguration{Tools: specs}
}

func (p *BedrockResponder) convertOutput(model string, out *bedrockruntime.ConverseOutput) *agent.Response {
	resp := &agent.Response{Model: model, Status: string(out.StopReason)}
	if out.Usage != nil {
		resp.Usage = agent.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	msgOutput, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return resp
	}
	var textParts []agent.OutputContent
	for _, block := range msgOutput.Value.Content {
		switch v := block.(type) {
		case *types.ContentBlockMemberText:
			textParts = append(textParts, agent.OutputContent{Type: "output_text", Text: v.Value})
		case *types.ContentBlockMemberToolUse:
			args, _ := v.Value.Input.MarshalSmithyDocument()
			resp.Output = append(resp.Output, agent.OutputItem{
				Type:      agent.OutputFunctionCall,
				CallID:    aws.ToString(v.Value.ToolUseId),
				Name:      aws.ToString(v.Value.Name),
				Arguments: string(args),
			})
		}
	}
	if len(textParts) > 0 {
		resp.Output = append([]agent.OutputItem{{Type: agent.OutputMessage, Role: "assistant", Content: textParts}}, resp.Output...)
	}
	return resp
}

func (p *BedrockResponder) wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &agent.TransportError{Cause: fmt.Errorf("bedrock: %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage()), Attempts: 1}
	}
	return &agent.TransportError{Cause: err, Attempts: 1}
}
