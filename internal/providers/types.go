package providers

import (
	"context"
	"encoding/json"
)

// Provider is the interface all LLM providers must implement.
type Provider interface {
	// Chat sends messages to the LLM and returns a response.
	// tools defines available tool schemas; model overrides the default.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatStream sends messages and streams response chunks via callback.
	// Returns the final complete response after streaming ends.
	ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error)

	// DefaultModel returns the provider's default model name.
	DefaultModel() string

	// Name returns the provider identifier (e.g. "anthropic", "openai").
	Name() string
}

// ChatRequest contains the input for a Chat/ChatStream call.
type ChatRequest struct {
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Model    string           `json:"model,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ChatResponse is the result from an LLM call.
type ChatResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"` // "stop", "tool_calls", "length"
	Usage        *Usage     `json:"usage,omitempty"`
	// RawAssistantContent is the provider's verbatim content-block array for
	// an assistant turn, carried through session history so a follow-up
	// turn's Message.RawAssistantContent can hand it straight back. Required
	// by Anthropic extended thinking: signed thinking blocks can't be
	// reconstructed from Content/ToolCalls alone.
	RawAssistantContent json.RawMessage `json:"raw_assistant_content,omitempty"`
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	Content   string `json:"content,omitempty"`
	Thinking  string `json:"thinking,omitempty"`
	Done      bool   `json:"done,omitempty"`
}

// ImageContent represents a base64-encoded image for vision-capable models.
type ImageContent struct {
	MimeType string `json:"mime_type"` // e.g. "image/jpeg"
	Data     string `json:"data"`      // base64-encoded image bytes
}

// Message represents a conversation message.
type Message struct {
	Role       string         `json:"role"`                  // "system", "user", "assistant", "tool"
	Content    string         `json:"content"`
	Images     []ImageContent `json:"images,omitempty"`      // vision: base64 images
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"` // for role="tool" responses
	// RawAssistantContent, when set on a stored assistant message, is replayed
	// verbatim instead of reconstructing content from Content/ToolCalls. See
	// ChatResponse.RawAssistantContent.
	RawAssistantContent json.RawMessage `json:"raw_assistant_content,omitempty"`
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	// Metadata carries provider-specific side data that must be echoed back
	// verbatim on the next turn (e.g. Gemini's thought_signature).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ToolDefinition describes a tool available to the LLM.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function ToolFunctionSchema `json:"function"`
}

// ToolFunctionSchema is the schema for a function tool.
type ToolFunctionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Option keys recognised in ChatRequest.Options by every adapter.
const (
	OptMaxTokens     = "max_tokens"
	OptTemperature   = "temperature"
	OptThinkingLevel = "thinking_level" // "off", "low", "medium", "high"
)

// ThinkingCapable is implemented by providers that support extended
// thinking, so callers can check support before setting OptThinkingLevel.
type ThinkingCapable interface {
	SupportsThinking() bool
}

type retryHookCtxKey struct{}

// RetryHook is invoked before each retried provider call, letting callers
// surface retry progress (e.g. update a placeholder message) to the user.
type RetryHook func(attempt, maxAttempts int, err error)

// WithRetryHook attaches a retry-progress callback to ctx for adapters that
// report intermediate retry attempts.
func WithRetryHook(ctx context.Context, hook RetryHook) context.Context {
	return context.WithValue(ctx, retryHookCtxKey{}, hook)
}

// RetryHookFromCtx returns the retry hook set by WithRetryHook, or nil.
func RetryHookFromCtx(ctx context.Context) RetryHook {
	hook, _ := ctx.Value(retryHookCtxKey{}).(RetryHook)
	return hook
}

// Embedder is implemented by providers that can produce text embeddings,
// used by the router's auto-classifier (spec §4.2 step 3) to score a
// prompt's centroid distance to the simple/complex/reasoning tiers.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadTokens     int `json:"cache_read_input_tokens,omitempty"`
	ThinkingTokens      int `json:"thinking_tokens,omitempty"`
}
