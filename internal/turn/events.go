package turn

import "github.com/serialagent/gateway/internal/providers"

// StreamEvent is the uniform shape a provider's streaming chat response is
// parsed into, independent of the adapter's wire format (spec §4.1
// "Streaming phase"). Exactly one of the pointer fields is set.
type StreamEvent struct {
	AssistantDelta    *string
	Thought           *ThoughtEvent
	ToolCallStart     *ToolCallStartEvent
	ToolCallArgsDelta *ToolCallArgsDeltaEvent
	ToolCallEnd       *string // tool call id
	Usage             *providers.Usage
	Done              *DoneEvent
}

type ThoughtEvent struct {
	Category string
	Text     string
}

type ToolCallStartEvent struct {
	ID   string
	Name string
}

type ToolCallArgsDeltaEvent struct {
	ID    string
	Chunk string
}

type DoneEvent struct {
	FinishReason string // "stop", "tool_calls", "length"
}

// TurnEvent is one item in a turn's event sequence, published on the event
// bus under topic=session_key (spec §4.6 "Events are serialisable and carry
// a monotonic per-process sequence number").
type TurnEvent struct {
	Seq       int64       `json:"seq"`
	RunID     string      `json:"run_id"`
	SessionKey string     `json:"session_key"`
	Name      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Payload shapes for the terminal and structural TurnEvent kinds named in
// bus.Event* constants (run.status, node.started/completed/failed, usage,
// assistant_delta, thought, tool_call, tool_result, final, error, stopped).

type AssistantDeltaPayload struct {
	Text string `json:"text"`
}

type ToolCallPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ToolResultPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsError bool   `json:"is_error"`
}

type FinalPayload struct {
	Content string `json:"content"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type StoppedPayload struct {
	Reason string `json:"reason"`
}

type RunStatusPayload struct {
	Status string `json:"status"`
}

type UsagePayload struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// RunNode records one LLM request or tool call within a turn, for the runs
// API's drill-down view (spec §4.1 "RunNode{llm_request}" / "RunNode{tool_call}").
type RunNode struct {
	Kind      string `json:"kind"` // "llm_request" or "tool_call"
	Name      string `json:"name,omitempty"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at"`
	Preview   string `json:"preview,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}
