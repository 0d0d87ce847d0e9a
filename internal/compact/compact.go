package compact

import (
	"context"
	"fmt"
	"time"

	"github.com/serialagent/gateway/internal/agent"
	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/providers"
)

// Summarizer is the subset of providers.Provider the compactor needs, kept
// narrow so callers can pass a role-mapped "summariser" provider distinct
// from the one executing the turn (spec §4.4 "The summariser is the
// provider mapped to the summariser role or the same provider...").
type Summarizer interface {
	Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error)
}

// Trigger reports whether compaction should fire, mirroring the teacher's
// maybeSummarize threshold check: history length past MinMessages OR an
// estimated token count past MaxHistoryShare of the context window (spec
// §4.4 "Trigger").
func Trigger(history []providers.Message, tokenEstimate, contextWindow int, cfg *config.CompactionConfig) bool {
	historyShare := 0.75
	minMessages := 50
	if cfg != nil {
		if cfg.MaxHistoryShare > 0 {
			historyShare = cfg.MaxHistoryShare
		}
		if cfg.MinMessages > 0 {
			minMessages = cfg.MinMessages
		}
	}
	threshold := int(float64(contextWindow) * historyShare)
	if len(history) <= minMessages && tokenEstimate <= threshold {
		return false
	}
	return true
}

// Result is the outcome of a successful Run: the new summary text and how
// many leading messages it replaces.
type Result struct {
	Summary        string
	TruncatedCount int
}

// Run summarizes every message except the last keepLast into a single
// summary string, folding in any pre-existing summary as prior context. On
// failure the caller should log and proceed with uncompressed history
// (spec §4.4 "On failure the turn proceeds with uncompressed history").
func Run(ctx context.Context, summarizer Summarizer, model string, history []providers.Message, existingSummary string, cfg *config.CompactionConfig) (*Result, error) {
	keepLast := 4
	if cfg != nil && cfg.KeepLastMessages > 0 {
		keepLast = cfg.KeepLastMessages
	}
	if len(history) <= keepLast {
		return nil, fmt.Errorf("compact: history too short to summarize (%d messages, keeping %d)", len(history), keepLast)
	}

	toSummarize := history[:len(history)-keepLast]

	var transcript string
	for _, m := range toSummarize {
		switch m.Role {
		case "user":
			transcript += fmt.Sprintf("user: %s\n", m.Content)
		case "assistant":
			transcript += fmt.Sprintf("assistant: %s\n", agent.SanitizeAssistantContent(m.Content))
		}
	}

	prompt := "Provide a concise summary of this conversation, preserving key context:\n"
	if existingSummary != "" {
		prompt += "Existing context: " + existingSummary + "\n"
	}
	prompt += "\n" + transcript

	resp, err := summarizer.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{{Role: "user", Content: prompt}},
		Model:    model,
		Options:  map[string]interface{}{"max_tokens": 1024, "temperature": 0.3},
	})
	if err != nil {
		return nil, fmt.Errorf("compact: summarization call failed: %w", err)
	}

	return &Result{
		Summary:        agent.SanitizeAssistantContent(resp.Content),
		TruncatedCount: len(toSummarize),
	}, nil
}

// RunWithTimeout wraps Run with the teacher's fixed 120s summarization
// budget so a hung provider never blocks turn preparation indefinitely.
func RunWithTimeout(summarizer Summarizer, model string, history []providers.Message, existingSummary string, cfg *config.CompactionConfig) (*Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	return Run(ctx, summarizer, model, history, existingSummary, cfg)
}
