package providers

import "strings"

// Option keys specific to OpenAI-compatible wire formats, beyond the
// generic OptThinkingLevel in types.go: o-series reasoning effort and
// DashScope's native enable_thinking/thinking_budget pair.
const (
	OptReasoningEffort = "reasoning_effort"
	OptEnableThinking  = "enable_thinking"
	OptThinkingBudget  = "thinking_budget"
)

// openAIResponse is the non-streaming chat/completions response shape
// shared by OpenAI and its compatible providers (OpenRouter, DeepSeek,
// DashScope).
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content          string                `json:"content"`
			ReasoningContent string                `json:"reasoning_content"`
			ToolCalls        []openAIWireToolCall  `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIWireUsage `json:"usage"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string                    `json:"content"`
			ReasoningContent string                    `json:"reasoning_content"`
			ToolCalls        []openAIWireToolCallDelta `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIWireUsage `json:"usage"`
}

type openAIWireFunctionCall struct {
	Name             string `json:"name"`
	Arguments        string `json:"arguments"`
	ThoughtSignature string `json:"thought_signature,omitempty"`
}

type openAIWireToolCall struct {
	ID       string                  `json:"id"`
	Function openAIWireFunctionCall `json:"function"`
}

type openAIWireToolCallDelta struct {
	Index    int                     `json:"index"`
	ID       string                  `json:"id"`
	Function openAIWireFunctionCall `json:"function"`
}

type openAIWireUsage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

// toolCallAccumulator collects a streamed tool call's id/name/arguments
// across multiple deltas before the arguments JSON is parseable.
type toolCallAccumulator struct {
	ToolCall
	rawArgs    string
	thoughtSig string
}

// geminiUnsupportedSchemaKeys are JSON-Schema keywords Gemini's function-
// calling validator rejects outside a narrow OpenAPI-3 subset.
var geminiUnsupportedSchemaKeys = map[string]bool{
	"additionalProperties": true,
	"default":              true,
}

// universallyUnsupportedSchemaKeys are stripped for every provider: no
// provider's tool-schema wire format wants a root $schema reference.
var universallyUnsupportedSchemaKeys = map[string]bool{
	"$schema": true,
}

// CleanSchemaForProvider adapts one tool parameter schema to a target
// provider's JSON-Schema dialect quirks.
func CleanSchemaForProvider(providerName string, schema map[string]interface{}) map[string]interface{} {
	strict := strings.Contains(strings.ToLower(providerName), "gemini")
	return cleanSchema(schema, strict)
}

func cleanSchema(schema map[string]interface{}, strict bool) map[string]interface{} {
	if schema == nil {
		return nil
	}
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		if universallyUnsupportedSchemaKeys[k] {
			continue
		}
		if strict && geminiUnsupportedSchemaKeys[k] {
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = cleanSchema(nested, strict)
			continue
		}
		out[k] = v
	}
	return out
}

// CleanToolSchemas adapts a full tool list to a target provider's wire
// format and schema quirks (see CleanSchemaForProvider).
func CleanToolSchemas(providerName string, tools []ToolDefinition) []map[string]interface{} {
	strict := strings.Contains(strings.ToLower(providerName), "gemini")
	out := make([]map[string]interface{}, len(tools))
	for i, t := range tools {
		out[i] = map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Function.Name,
				"description": t.Function.Description,
				"parameters":  cleanSchema(t.Function.Parameters, strict),
			},
		}
	}
	return out
}
