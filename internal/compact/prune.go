// Package compact implements transcript compaction (summarizing older
// history into a single line) and message-list pruning (trimming long
// tool-result payloads), grounded on the teacher's
// internal/agent/loop_history.go maybeSummarize/pruneContextMessages pair
// (spec §4.4).
package compact

import (
	"strings"

	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/providers"
)

const defaultPlaceholder = "[Old tool result content cleared]"

// PruneMessages trims long tool-result payloads to a head/tail byte budget,
// protecting the last N assistant turns untouched (spec §4.4 "Pruning").
// Pruning is idempotent: re-running it on an already-pruned list is a
// no-op, since elide returns content that already carries the elision marker
// or the default placeholder unchanged, and a hard clear yields the same
// placeholder again.
func PruneMessages(msgs []providers.Message, cfg *config.ContextPruningConfig) []providers.Message {
	if cfg == nil || cfg.Mode == "" || cfg.Mode == "off" || len(msgs) == 0 {
		return msgs
	}

	keepLastAssistants := cfg.KeepLastAssistants
	if keepLastAssistants <= 0 {
		keepLastAssistants = 3
	}
	minChars := cfg.MinPrunableToolChars
	if minChars <= 0 {
		minChars = 50_000
	}

	protectedFrom := protectedBoundary(msgs, keepLastAssistants)

	out := make([]providers.Message, len(msgs))
	copy(out, msgs)

	var totalToolChars int
	toolIdx := make([]int, 0, len(out))
	for i, m := range out {
		if m.Role == "tool" {
			totalToolChars += len(m.Content)
			if i < protectedFrom {
				toolIdx = append(toolIdx, i)
			}
		}
	}
	if totalToolChars < minChars {
		return out
	}

	for _, i := range toolIdx {
		out[i].Content = elide(out[i].Content, cfg)
	}
	return out
}

// protectedBoundary returns the index at which the last N assistant
// messages begin; tool messages at or after that index are left untouched.
func protectedBoundary(msgs []providers.Message, keepLastAssistants int) int {
	seen := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" {
			seen++
			if seen == keepLastAssistants {
				return i
			}
		}
	}
	return 0
}

// elide trims content to a head/tail budget with a marker or, whenever
// HardClear is configured and not disabled, replaces it outright with the
// placeholder; HardClearRatio is not consulted. It preserves a trailing closing brace
// when the original content looks like a JSON object, so downstream
// parsers that only peek at structure don't choke on a truncated document.
func elide(content string, cfg *config.ContextPruningConfig) string {
	if isAlreadyElided(content) {
		return content
	}

	if cfg.HardClear != nil && (cfg.HardClear.Enabled == nil || *cfg.HardClear.Enabled) {
		placeholder := cfg.HardClear.Placeholder
		if placeholder == "" {
			placeholder = defaultPlaceholder
		}
		return placeholder
	}

	head, tail := 1500, 1500
	maxChars := 4000
	if cfg.SoftTrim != nil {
		if cfg.SoftTrim.HeadChars > 0 {
			head = cfg.SoftTrim.HeadChars
		}
		if cfg.SoftTrim.TailChars > 0 {
			tail = cfg.SoftTrim.TailChars
		}
		if cfg.SoftTrim.MaxChars > 0 {
			maxChars = cfg.SoftTrim.MaxChars
		}
	}
	if len(content) <= maxChars {
		return content
	}

	trailer := ""
	trimmed := strings.TrimRight(content, " \n\t")
	if strings.HasSuffix(trimmed, "}") || strings.HasSuffix(trimmed, "]") {
		trailer = trimmed[len(trimmed)-1:]
	}

	marker := "\n...[elided]...\n"
	out := content[:head] + marker + content[len(content)-tail:]
	if trailer != "" && !strings.HasSuffix(out, trailer) {
		out += trailer
	}
	return out
}

func isAlreadyElided(content string) bool {
	return content == defaultPlaceholder || strings.Contains(content, "...[elided]...")
}
