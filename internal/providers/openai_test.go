package providers

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResolveModelUsesDefaultWhenEmpty(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	if got := p.resolveModel(""); got != "gpt-4o" {
		t.Fatalf("resolveModel(empty) = %q, want gpt-4o", got)
	}
}

func TestResolveModelOpenRouterRequiresPrefix(t *testing.T) {
	p := NewOpenAIProvider("openrouter", "key", "", "anthropic/claude-sonnet-4-5")
	if got := p.resolveModel("gpt-4o"); got != "anthropic/claude-sonnet-4-5" {
		t.Fatalf("resolveModel(unprefixed) = %q, want default fallback", got)
	}
	if got := p.resolveModel("openai/gpt-4o"); got != "openai/gpt-4o" {
		t.Fatalf("resolveModel(prefixed) = %q, want unchanged", got)
	}
}

func TestResolveModelNonOpenRouterPassesThrough(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	if got := p.resolveModel("gpt-4o-mini"); got != "gpt-4o-mini" {
		t.Fatalf("resolveModel = %q, want gpt-4o-mini unchanged", got)
	}
}

func TestNewOpenAIProviderDefaultsAPIBase(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	if p.APIBase() != "https://api.openai.com/v1" {
		t.Fatalf("APIBase() = %q, want default", p.APIBase())
	}
}

func TestNewOpenAIProviderTrimsTrailingSlash(t *testing.T) {
	p := NewOpenAIProvider("custom", "key", "https://example.com/v1/", "model")
	if p.APIBase() != "https://example.com/v1" {
		t.Fatalf("APIBase() = %q, want trailing slash trimmed", p.APIBase())
	}
}

func TestWithChatPathOverridesPath(t *testing.T) {
	p := NewOpenAIProvider("minimax", "key", "", "model").WithChatPath("/text/chatcompletion_v2")
	if p.chatPath != "/text/chatcompletion_v2" {
		t.Fatalf("chatPath = %q, want override", p.chatPath)
	}
}

func TestBuildRequestBodyBasicFields(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	req := ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}
	body := p.buildRequestBody("gpt-4o", req, false)
	if body["model"] != "gpt-4o" {
		t.Fatalf("model = %v, want gpt-4o", body["model"])
	}
	if body["stream"] != false {
		t.Fatalf("stream = %v, want false", body["stream"])
	}
	msgs, ok := body["messages"].([]map[string]interface{})
	if !ok || len(msgs) != 1 {
		t.Fatalf("messages = %v, want 1 entry", body["messages"])
	}
	if msgs[0]["content"] != "hi" {
		t.Fatalf("messages[0].content = %v, want hi", msgs[0]["content"])
	}
}

func TestBuildRequestBodyStreamIncludesUsageOption(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	body := p.buildRequestBody("gpt-4o", ChatRequest{}, true)
	opts, ok := body["stream_options"].(map[string]interface{})
	if !ok || opts["include_usage"] != true {
		t.Fatalf("stream_options = %v, want include_usage=true", body["stream_options"])
	}
}

func TestBuildRequestBodyOmitsToolsWhenNone(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	body := p.buildRequestBody("gpt-4o", ChatRequest{}, false)
	if _, ok := body["tools"]; ok {
		t.Fatal("expected no tools key when no tools are requested")
	}
}

func TestBuildRequestBodyIncludesTools(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	req := ChatRequest{
		Tools: []ToolDefinition{{Type: "function", Function: ToolFunctionSchema{Name: "search"}}},
	}
	body := p.buildRequestBody("gpt-4o", req, false)
	if body["tool_choice"] != "auto" {
		t.Fatalf("tool_choice = %v, want auto", body["tool_choice"])
	}
	tools, ok := body["tools"].([]map[string]interface{})
	if !ok || len(tools) != 1 {
		t.Fatalf("tools = %v, want 1 entry", body["tools"])
	}
}

func TestBuildRequestBodyMergesOptions(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	req := ChatRequest{Options: map[string]interface{}{
		OptMaxTokens:   1024,
		OptTemperature: 0.5,
	}}
	body := p.buildRequestBody("gpt-4o", req, false)
	if body["max_tokens"] != 1024 {
		t.Fatalf("max_tokens = %v, want 1024", body["max_tokens"])
	}
	if body["temperature"] != 0.5 {
		t.Fatalf("temperature = %v, want 0.5", body["temperature"])
	}
}

func TestBuildRequestBodyThinkingLevelBecomesReasoningEffort(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "o3")
	req := ChatRequest{Options: map[string]interface{}{OptThinkingLevel: "high"}}
	body := p.buildRequestBody("o3", req, false)
	if body[OptReasoningEffort] != "high" {
		t.Fatalf("%s = %v, want high", OptReasoningEffort, body[OptReasoningEffort])
	}
}

func TestBuildRequestBodyThinkingOffOmitsReasoningEffort(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "o3")
	req := ChatRequest{Options: map[string]interface{}{OptThinkingLevel: "off"}}
	body := p.buildRequestBody("o3", req, false)
	if _, ok := body[OptReasoningEffort]; ok {
		t.Fatal("expected no reasoning_effort key when thinking is off")
	}
}

func TestBuildRequestBodyVisionMessageUsesParts(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	req := ChatRequest{Messages: []Message{{
		Role:    "user",
		Content: "what's this?",
		Images:  []ImageContent{{MimeType: "image/png", Data: "abc123"}},
	}}}
	body := p.buildRequestBody("gpt-4o", req, false)
	msgs := body["messages"].([]map[string]interface{})
	parts, ok := msgs[0]["content"].([]map[string]interface{})
	if !ok || len(parts) != 2 {
		t.Fatalf("content parts = %v, want image part + text part", msgs[0]["content"])
	}
	if parts[0]["type"] != "image_url" {
		t.Fatalf("parts[0].type = %v, want image_url", parts[0]["type"])
	}
	if parts[1]["type"] != "text" || parts[1]["text"] != "what's this?" {
		t.Fatalf("parts[1] = %v, want text part", parts[1])
	}
}

func TestBuildRequestBodyAssistantToolCallsOmitEmptyContent(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	req := ChatRequest{Messages: []Message{{
		Role:      "assistant",
		ToolCalls: []ToolCall{{ID: "call-1", Name: "search", Arguments: map[string]interface{}{"q": "go"}}},
	}}}
	body := p.buildRequestBody("gpt-4o", req, false)
	msgs := body["messages"].([]map[string]interface{})
	if _, ok := msgs[0]["content"]; ok {
		t.Fatal("expected no content key for an empty-content assistant tool-call message")
	}
	toolCalls, ok := msgs[0]["tool_calls"].([]map[string]interface{})
	if !ok || len(toolCalls) != 1 {
		t.Fatalf("tool_calls = %v, want 1 entry", msgs[0]["tool_calls"])
	}
	fn := toolCalls[0]["function"].(map[string]interface{})
	if fn["name"] != "search" {
		t.Fatalf("function.name = %v, want search", fn["name"])
	}
	if !strings.Contains(fn["arguments"].(string), `"q":"go"`) {
		t.Fatalf("function.arguments = %v, want json-encoded args", fn["arguments"])
	}
}

func TestBuildRequestBodyToolResultSetsToolCallID(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	req := ChatRequest{Messages: []Message{{Role: "tool", Content: "42", ToolCallID: "call-1"}}}
	body := p.buildRequestBody("gpt-4o", req, false)
	msgs := body["messages"].([]map[string]interface{})
	if msgs[0]["tool_call_id"] != "call-1" {
		t.Fatalf("tool_call_id = %v, want call-1", msgs[0]["tool_call_id"])
	}
}

func TestBuildRequestBodyGeminiCollapsesUnsignedToolCalls(t *testing.T) {
	p := NewOpenAIProvider("gemini", "key", "", "gemini-3-flash")
	req := ChatRequest{Messages: []Message{
		{Role: "assistant", Content: "checking", ToolCalls: []ToolCall{{ID: "call-1", Name: "search"}}},
		{Role: "tool", Content: "result", ToolCallID: "call-1"},
		{Role: "user", Content: "thanks"},
	}}
	body := p.buildRequestBody("gemini-3-flash", req, false)
	msgs := body["messages"].([]map[string]interface{})
	if len(msgs) != 2 {
		t.Fatalf("len(messages) = %d, want 2 (tool cycle collapsed)", len(msgs))
	}
	if msgs[0]["content"] != "checking" {
		t.Fatalf("messages[0].content = %v, want checking (text preserved)", msgs[0]["content"])
	}
	if msgs[1]["content"] != "thanks" {
		t.Fatalf("messages[1].content = %v, want thanks", msgs[1]["content"])
	}
}

func TestParseResponseExtractsContentAndUsage(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	var resp openAIResponse
	raw := `{
		"choices": [{"message": {"content": "hello"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
	}`
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	got := p.parseResponse(&resp)
	if got.Content != "hello" || got.FinishReason != "stop" {
		t.Fatalf("parseResponse = %+v, want content=hello finish=stop", got)
	}
	if got.Usage == nil || got.Usage.TotalTokens != 7 {
		t.Fatalf("Usage = %+v, want TotalTokens=7", got.Usage)
	}
}

func TestParseResponseToolCallSetsFinishReason(t *testing.T) {
	p := NewOpenAIProvider("openai", "key", "", "gpt-4o")
	var resp openAIResponse
	raw := `{
		"choices": [{"message": {"tool_calls": [
			{"id": "call-1", "function": {"name": "search", "arguments": "{\"q\":\"go\"}"}}
		]}, "finish_reason": "tool_calls"}]
	}`
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	got := p.parseResponse(&resp)
	if got.FinishReason != "tool_calls" {
		t.Fatalf("FinishReason = %q, want tool_calls", got.FinishReason)
	}
	if len(got.ToolCalls) != 1 || got.ToolCalls[0].Arguments["q"] != "go" {
		t.Fatalf("ToolCalls = %+v, want q=go", got.ToolCalls)
	}
}
