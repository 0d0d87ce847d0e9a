package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/serialagent/gateway/internal/config"
)

// BedrockProvider adapts AWS Bedrock's Converse API to the Provider
// interface (provider descriptor kind "bedrock_stub", spec §3). Credentials
// are resolved through the standard AWS SDK chain, never from JSON config.
type BedrockProvider struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// NewBedrockProvider builds a Bedrock adapter from the standard AWS config
// chain, scoped to the configured region.
func NewBedrockProvider(cfg config.BedrockConfig) (*BedrockProvider, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	return &BedrockProvider{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: model,
	}, nil
}

func (p *BedrockProvider) Name() string         { return "bedrock" }
func (p *BedrockProvider) DefaultModel() string { return p.defaultModel }

func (p *BedrockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	var system []types.SystemContentBlock
	for _, m := range req.Messages {
		if m.Role == "system" && m.Content != "" {
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
		}
	}

	out, err := p.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:    aws.String(model),
		System:     system,
		Messages:   toBedrockMessages(req.Messages),
		ToolConfig: toBedrockToolConfig(req.Tools),
	})
	if err != nil {
		return nil, &HTTPError{Status: 502, Body: err.Error()}
	}

	return fromBedrockOutput(out), nil
}

// ChatStream has no native Bedrock streaming wired up yet; it falls back to
// a single non-streaming Converse call and synthesises one Done chunk,
// matching §4.1's "a provider that does not stream produces a single
// equivalent Done".
func (p *BedrockProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error) {
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	onChunk(StreamChunk{Content: resp.Content, Done: true})
	return resp, nil
}

func toBedrockMessages(msgs []Message) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			continue // Converse carries system prompts in a separate field; Chat passes them there
		}
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		out = append(out, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}
	return out
}

func toBedrockToolConfig(tools []ToolDefinition) *types.ToolConfiguration {
	if len(tools) == 0 {
		return nil
	}
	specs := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		schema, _ := json.Marshal(t.Function.Parameters)
		specs = append(specs, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Function.Name),
				Description: aws.String(t.Function.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document{raw: schema},
				},
			},
		})
	}
	return &types.ToolConfiguration{Tools: specs}
}

func fromBedrockOutput(out *bedrockruntime.ConverseOutput) *ChatResponse {
	resp := &ChatResponse{FinishReason: string(out.StopReason)}
	if out.Usage != nil {
		resp.Usage = &Usage{
			PromptTokens:     int(aws.ToInt32(out.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return resp
	}
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			resp.Content += b.Value
		case *types.ContentBlockMemberToolUse:
			args := map[string]interface{}{}
			if raw, ok := b.Value.Input.(document); ok {
				_ = json.Unmarshal(raw.raw, &args)
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        aws.ToString(b.Value.ToolUseId),
				Name:      aws.ToString(b.Value.Name),
				Arguments: args,
			})
			resp.FinishReason = "tool_calls"
		}
	}
	return resp
}

// document is a minimal smithydocument.Marshaler/Unmarshaler implementation
// used to pass raw tool schemas/arguments through the Bedrock SDK's
// document.Interface fields without pulling in a JSON-document helper lib.
type document struct {
	raw []byte
}

func (d document) MarshalSmithyDocument() ([]byte, error) { return d.raw, nil }

func (d *document) UnmarshalSmithyDocument(b []byte) error {
	d.raw = b
	return nil
}
