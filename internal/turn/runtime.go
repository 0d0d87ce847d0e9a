// Package turn implements the turn runtime (C7): the think-act-observe loop
// that turns one user message into a finished assistant reply, grounded on
// the teacher's internal/agent.Loop.Run/runLoop, trimmed of its multi-tenant
// "managed mode" machinery (agent teams, delegation, bootstrap seeding,
// skills, sandboxing) per the gateway's single-tier agent model.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/serialagent/gateway/internal/agent"
	"github.com/serialagent/gateway/internal/bus"
	"github.com/serialagent/gateway/internal/compact"
	"github.com/serialagent/gateway/internal/errs"
	"github.com/serialagent/gateway/internal/nodes"
	"github.com/serialagent/gateway/internal/providers"
	"github.com/serialagent/gateway/internal/router"
	"github.com/serialagent/gateway/internal/store"
	"github.com/serialagent/gateway/internal/tools"
	"github.com/serialagent/gateway/internal/tracing"
)

// defaultNodeCallTimeout bounds a remote capability call when the tool call
// arguments don't specify their own timeout_ms (spec §4.3 "bounded by agent
// limits" — AgentConfig carries no per-tool timeout field yet, so this
// constant stands in for that bound).
const defaultNodeCallTimeout = 30 * time.Second

// Runtime executes turns against a fixed set of agents, wired once at
// startup (spec §5 "the provider registry is built once and cloned by
// reference"; the turn runtime follows the same pattern for its own
// dependencies).
type Runtime struct {
	Providers *providers.Registry
	Router    *router.Router
	Tools     *tools.Registry
	Policy    *tools.PolicyEngine
	Stores    *store.Stores
	Bus       bus.Publisher
	Agents    map[string]AgentConfig
	Nodes     *nodes.Registry // optional; nil means no remote capabilities are wired

	DefaultAgent string

	cancels *cancelRegistry
	seq     atomic.Int64
}

// New builds a Runtime. agents must contain at least DefaultAgent.
func New(providerRegistry *providers.Registry, r *router.Router, toolRegistry *tools.Registry, policy *tools.PolicyEngine, stores *store.Stores, publisher bus.Publisher, agents map[string]AgentConfig, defaultAgent string) *Runtime {
	return &Runtime{
		Providers:    providerRegistry,
		Router:       r,
		Tools:        toolRegistry,
		Policy:       policy,
		Stores:       stores,
		Bus:          publisher,
		Agents:       agents,
		DefaultAgent: defaultAgent,
		cancels:      newCancelRegistry(),
	}
}

// Cancel interrupts the run in flight on sessionKey, if any (spec §4.1
// "Cancellation semantics"). Returns false if no run is active.
func (rt *Runtime) Cancel(sessionKey string) bool {
	return rt.cancels.cancel(sessionKey)
}

// Run executes one turn end to end: preparation, the streaming tool-call
// loop, and finalisation (spec §4.1).
func (rt *Runtime) Run(ctx context.Context, in Input) (*Result, error) {
	agentID := in.Agent
	if agentID == "" {
		agentID = rt.DefaultAgent
	}
	ac, ok := rt.Agents[agentID]
	if !ok {
		return nil, errs.New(errs.KindConfig, "unknown agent").WithID(agentID)
	}

	runID := in.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	runCtx, release, ok := rt.cancels.begin(ctx, in.SessionKey)
	if !ok {
		return nil, errs.New(errs.KindInternal, fmt.Sprintf("session %q already has a run in flight", in.SessionKey))
	}
	defer release()

	runCtx, span := tracing.StartRunSpan(runCtx, in.SessionKey, agentID)
	runStart := time.Now()

	run := &store.Run{ID: runID, SessionKey: in.SessionKey, Status: store.RunStatusRunning, StartedAt: runStart}
	if rt.Stores.Runs != nil {
		if err := rt.Stores.Runs.Create(runCtx, run); err != nil {
			slog.Warn("turn: failed to persist run record", "run_id", runID, "err", err)
		}
	}
	rt.publish(in.SessionKey, runID, bus.EventRunStatus, RunStatusPayload{Status: "running"})

	result, runErr := rt.runLoop(runCtx, in, agentID, ac, runID)

	run.EndedAt = time.Now()
	if runErr != nil {
		run.Status = store.RunStatusError
		run.Error = runErr.Error()
		if errs.KindOf(runErr) == errs.KindCancelled {
			run.Status = store.RunStatusStopped
		}
	} else {
		run.Status = store.RunStatusDone
		run.Provider = result.Provider
		run.Model = result.Model
	}
	if rt.Stores.Runs != nil {
		if err := rt.Stores.Runs.Update(runCtx, run); err != nil {
			slog.Warn("turn: failed to update run record", "run_id", runID, "err", err)
		}
	}
	rt.publish(in.SessionKey, runID, bus.EventRunStatus, RunStatusPayload{Status: string(run.Status)})

	tracing.End(span, runStart, runErr)
	return result, runErr
}

// runLoop is the think-act-observe body, mirroring the teacher's
// internal/agent.Loop.runLoop control flow (context injection, message
// preparation, iterative provider/tool dispatch, finalisation).
func (rt *Runtime) runLoop(runCtx context.Context, in Input, agentID string, ac AgentConfig, runID string) (*Result, error) {
	session := rt.Stores.Sessions.GetOrCreate(in.SessionKey)

	res, err := rt.Router.Resolve(runCtx, router.Request{
		ExplicitModel:  in.Model,
		Role:           "executor",
		RoutingProfile: in.RoutingProfile,
		Prompt:         in.UserMessage,
		NeedsTools:     true,
	})
	if err != nil {
		wrapped := errs.ProviderUnavailable("router", err)
		rt.publishError(in.SessionKey, runID, wrapped)
		return nil, wrapped
	}
	provider, model := res.Provider, res.Model
	rt.Stores.Sessions.UpdateMetadata(in.SessionKey, model, provider.Name(), session.Channel)

	runCtx = tools.WithToolWorkspace(runCtx, ac.Workspace)

	rt.appendTranscript(runCtx, in.SessionID, store.TranscriptLine{
		Timestamp: time.Now(), SessionID: in.SessionID, Role: "user", Content: in.UserMessage,
	})

	userMsg := providers.Message{Role: "user", Content: in.UserMessage, Images: in.Images}
	pending := []providers.Message{userMsg}

	history := agent.SanitizeHistory(session.GetHistory())
	lastTokens, lastCount := rt.Stores.Sessions.GetLastPromptTokens(in.SessionKey)
	tokenEstimate := compact.EstimateTokens(history, lastTokens, lastCount)

	if rt.Stores.Sessions.GetContextWindow(in.SessionKey) == 0 {
		rt.Stores.Sessions.SetContextWindow(in.SessionKey, ac.ContextWindow)
	}

	if compact.Trigger(history, tokenEstimate, ac.ContextWindow, ac.Compaction) {
		history = rt.compactHistory(runCtx, in, ac, provider, model, history)
	}
	history = compact.PruneMessages(history, ac.ContextPruning)

	messages := make([]providers.Message, 0, len(history)+3)
	if ac.SystemPrompt != "" {
		messages = append(messages, providers.Message{Role: "system", Content: ac.SystemPrompt})
	}
	if summary := rt.Stores.Sessions.GetSummary(in.SessionKey); summary != "" {
		messages = append(messages, providers.Message{Role: "system", Content: "Conversation summary so far: " + summary})
	}
	messages = append(messages, history...)
	messages = append(messages, userMsg)

	var toolDefs []providers.ToolDefinition
	if rt.Policy != nil {
		toolDefs = rt.Policy.FilterTools(rt.Tools, agentID, provider.Name(), ac.ToolPolicy, nil, false, false)
	} else {
		for _, name := range rt.Tools.List() {
			if t, ok := rt.Tools.Get(name); ok {
				toolDefs = append(toolDefs, tools.ToProviderDef(t))
			}
		}
	}

	var finalContent string
	var totalUsage providers.Usage
	iteration := 0

	for {
		iteration++
		if iteration > ac.MaxToolIterations {
			wrapped := errs.ToolLoopExhausted(agentID)
			rt.publishError(in.SessionKey, runID, wrapped)
			rt.flush(in, session, pending)
			return nil, wrapped
		}
		if runCtx.Err() != nil {
			return rt.stopped(in, runID, session, pending, provider, model, iteration)
		}

		chatReq := providers.ChatRequest{
			Messages: messages,
			Tools:    toolDefs,
			Model:    model,
			Options: map[string]interface{}{
				providers.OptMaxTokens:   ac.MaxTokens,
				providers.OptTemperature: ac.Temperature,
			},
		}
		if ac.ThinkingLevel != "" {
			if tc, ok := provider.(providers.ThinkingCapable); ok && tc.SupportsThinking() {
				chatReq.Options[providers.OptThinkingLevel] = ac.ThinkingLevel
			}
		}

		providerCtx, pspan := tracing.StartProviderSpan(runCtx, provider.Name(), model)
		callStart := time.Now()
		resp, callErr := provider.ChatStream(providerCtx, chatReq, func(chunk providers.StreamChunk) {
			if chunk.Thinking != "" {
				rt.publish(in.SessionKey, runID, bus.EventThought, ThoughtEvent{Category: "reasoning", Text: chunk.Thinking})
			}
			if chunk.Content != "" {
				rt.publish(in.SessionKey, runID, bus.EventAssistantDelta, AssistantDeltaPayload{Text: chunk.Content})
			}
		})
		tracing.End(pspan, callStart, callErr)
		if callErr != nil {
			wrapped := errs.ProviderUnavailable(provider.Name(), callErr)
			rt.publishError(in.SessionKey, runID, wrapped)
			rt.flush(in, session, pending)
			return nil, wrapped
		}

		if resp.Usage != nil {
			totalUsage.PromptTokens += resp.Usage.PromptTokens
			totalUsage.CompletionTokens += resp.Usage.CompletionTokens
			totalUsage.TotalTokens += resp.Usage.TotalTokens
			rt.Stores.Sessions.AccumulateTokens(in.SessionKey, int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
			rt.Stores.Sessions.SetLastPromptTokens(in.SessionKey, resp.Usage.PromptTokens, len(messages))
			rt.publish(in.SessionKey, runID, bus.EventUsage, UsagePayload{Input: resp.Usage.PromptTokens, Output: resp.Usage.CompletionTokens})
		}

		if len(resp.ToolCalls) == 0 {
			finalContent = agent.SanitizeAssistantContent(resp.Content)
			if agent.IsSilentReply(finalContent) {
				finalContent = ""
			}
			assistantMsg := providers.Message{Role: "assistant", Content: resp.Content}
			messages = append(messages, assistantMsg)
			pending = append(pending, assistantMsg)
			rt.appendTranscript(runCtx, in.SessionID, store.TranscriptLine{Timestamp: time.Now(), SessionID: in.SessionID, Role: "assistant", Content: finalContent})
			rt.publish(in.SessionKey, runID, bus.EventFinal, FinalPayload{Content: finalContent})
			break
		}

		assistantMsg := providers.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls}
		messages = append(messages, assistantMsg)
		pending = append(pending, assistantMsg)

		for _, call := range resp.ToolCalls {
			if runCtx.Err() != nil {
				return rt.stopped(in, runID, session, pending, provider, model, iteration)
			}
			toolMsg := rt.dispatchTool(runCtx, in, runID, ac, call)
			messages = append(messages, toolMsg)
			pending = append(pending, toolMsg)
		}
	}

	rt.flush(in, session, pending)

	return &Result{
		RunID:      runID,
		Content:    finalContent,
		Iterations: iteration,
		Provider:   provider.Name(),
		Model:      model,
		Usage:      totalUsage,
	}, nil
}

// dispatchTool runs one tool call, gating risky exec commands behind the
// approval manager before execution (spec §4.1, §4.3 "Approval gate").
func (rt *Runtime) dispatchTool(runCtx context.Context, in Input, runID string, ac AgentConfig, call providers.ToolCall) providers.Message {
	rt.publish(in.SessionKey, runID, bus.EventToolCall, ToolCallPayload{ID: call.ID, Name: call.Name})

	impl, found := rt.Tools.Get(call.Name)
	route := "local"
	var node *nodes.Node
	if !found && rt.Nodes != nil {
		node, found = rt.Nodes.FindByCapability(call.Name)
		if found {
			route = "node:" + node.ID
		}
	}

	toolCtx, tspan := tracing.StartToolSpan(runCtx, call.Name, route)
	toolStart := time.Now()

	var result *tools.Result
	switch {
	case node == nil && impl != nil:
		if execTool, ok := impl.(*tools.ExecTool); ok && rt.Stores.Approvals != nil {
			execTool.SetApprovalManager(tools.NewExecApprovalManager(rt.Stores.Approvals, in.SessionID, runID), ac.ID)
		}
		result = impl.Execute(toolCtx, call.Arguments)
	case node != nil:
		result = rt.dispatchNode(toolCtx, node, call)
	default:
		err := errs.ToolNotFound(call.Name)
		result = &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}

	tracing.End(tspan, toolStart, result.Err)
	rt.publish(in.SessionKey, runID, bus.EventToolResult, ToolResultPayload{ID: call.ID, Name: call.Name, IsError: result.IsError})
	rt.appendTranscript(runCtx, in.SessionID, store.TranscriptLine{
		Timestamp: time.Now(), SessionID: in.SessionID, Role: "tool", Content: result.ForLLM,
		Metadata: map[string]string{"tool_call_id": call.ID, "tool_name": call.Name},
	})

	return providers.Message{Role: "tool", Content: result.ForLLM, ToolCallID: call.ID}
}

// dispatchNode routes a tool call with no local implementation to node, the
// first connected node that advertised it (spec §4.3 "Routing"/"Remote
// dispatch").
func (rt *Runtime) dispatchNode(ctx context.Context, node *nodes.Node, call providers.ToolCall) *tools.Result {
	timeout := defaultNodeCallTimeout
	if ms, ok := call.Arguments["timeout_ms"].(float64); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
		if timeout > defaultNodeCallTimeout {
			timeout = defaultNodeCallTimeout
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, isError, err := rt.Nodes.Dispatch(callCtx, node, call.Name, call.Arguments)
	if err != nil {
		wrapped := errs.ToolExecFailed(call.Name, err)
		var gone *nodes.ErrNodeGone
		if errors.As(err, &gone) {
			wrapped = wrapped.WithSub(errs.SubNodeGone)
		}
		return &tools.Result{ForLLM: wrapped.Error(), IsError: true, Err: wrapped}
	}
	return &tools.Result{ForLLM: output, IsError: isError}
}

// compactHistory summarises everything but the last few messages, folding
// the result into the session's running summary (spec §4.4 "Trigger").
func (rt *Runtime) compactHistory(runCtx context.Context, in Input, ac AgentConfig, fallback providers.Provider, fallbackModel string, history []providers.Message) []providers.Message {
	summarizer := providers.Provider(fallback)
	model := fallbackModel
	if p, m, ok := rt.Router.ResolveRole("summariser"); ok {
		summarizer, model = p, m
	}

	existing := rt.Stores.Sessions.GetSummary(in.SessionKey)
	result, err := compact.RunWithTimeout(summarizer, model, history, existing, ac.Compaction)
	if err != nil {
		slog.Warn("turn: compaction failed, proceeding with uncompressed history", "session_key", in.SessionKey, "err", err)
		return history
	}

	rt.Stores.Sessions.SetSummary(in.SessionKey, result.Summary)
	rt.Stores.Sessions.TruncateHistory(in.SessionKey, len(history)-result.TruncatedCount)
	rt.Stores.Sessions.IncrementCompaction(in.SessionKey)
	rt.appendTranscript(runCtx, in.SessionID, store.TranscriptLine{
		Timestamp: time.Now(), SessionID: in.SessionID, Role: "system", Content: result.Summary,
		Metadata: map[string]string{"sa.compaction": "true"},
	})
	return rt.Stores.Sessions.GetHistory(in.SessionKey)
}

// stopped finalises a run that was cancelled mid-flight, flushing whatever
// messages were produced before the cancellation was observed.
func (rt *Runtime) stopped(in Input, runID string, session *store.SessionData, pending []providers.Message, provider providers.Provider, model string, iteration int) (*Result, error) {
	rt.flush(in, session, pending)
	rt.publish(in.SessionKey, runID, bus.EventStopped, StoppedPayload{Reason: "cancelled"})
	providerName := ""
	if provider != nil {
		providerName = provider.Name()
	}
	return &Result{RunID: runID, Iterations: iteration, Provider: providerName, Model: model, Stopped: true}, errs.Cancelled("run cancelled")
}

// flush persists the messages produced during this run to the session store
// only once the run reaches a terminal state, matching the teacher's
// pendingMsgs buffering (avoids interleaving session history across
// concurrently-started runs for the same key, though the per-session
// cancelRegistry already rules that case out here).
func (rt *Runtime) flush(in Input, session *store.SessionData, pending []providers.Message) {
	for _, m := range pending {
		rt.Stores.Sessions.AddMessage(in.SessionKey, m)
	}
	if err := rt.Stores.Sessions.Save(in.SessionKey); err != nil {
		slog.Warn("turn: failed to save session", "session_key", in.SessionKey, "err", err)
	}
}

func (rt *Runtime) appendTranscript(ctx context.Context, sessionID string, line store.TranscriptLine) {
	if rt.Stores.Transcripts == nil {
		return
	}
	if err := rt.Stores.Transcripts.Append(ctx, sessionID, line); err != nil {
		slog.Warn("turn: failed to append transcript line", "session_id", sessionID, "err", err)
	}
}

func (rt *Runtime) publishError(sessionKey, runID string, err *errs.Error) {
	rt.publish(sessionKey, runID, bus.EventError, ErrorPayload{Kind: string(err.Kind), Message: err.Error()})
}

func (rt *Runtime) publish(sessionKey, runID, name string, payload interface{}) {
	if rt.Bus == nil {
		return
	}
	rt.Bus.Publish(bus.Event{
		Name:  name,
		Topic: sessionKey,
		Payload: TurnEvent{
			Seq:        rt.seq.Add(1),
			RunID:      runID,
			SessionKey: sessionKey,
			Name:       name,
			Payload:    payload,
		},
	})
}
