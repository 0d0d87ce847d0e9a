package compact

import "github.com/serialagent/gateway/internal/providers"

// EstimateTokens gives a rough token count for a message list using the
// same ~4-chars-per-token heuristic the teacher uses for skill summaries,
// calibrated against the provider's last reported prompt token count when
// available so repeated estimates on a growing transcript track reality
// instead of drifting.
func EstimateTokens(msgs []providers.Message, lastPromptTokens, lastMessageCount int) int {
	var chars int
	for _, m := range msgs {
		chars += len(m.Content)
		for _, tc := range m.ToolCalls {
			chars += len(tc.Name) + 20
			for k, v := range tc.Arguments {
				chars += len(k) + len(fmtVal(v))
			}
		}
	}
	estimate := chars / 4

	if lastPromptTokens > 0 && lastMessageCount > 0 && lastMessageCount <= len(msgs) {
		// Scale the heuristic estimate by how well it predicted the last
		// known-good prompt token count, so future estimates self-correct.
		priorChars := 0
		for _, m := range msgs[:lastMessageCount] {
			priorChars += len(m.Content)
		}
		priorEstimate := priorChars / 4
		if priorEstimate > 0 {
			ratio := float64(lastPromptTokens) / float64(priorEstimate)
			estimate = int(float64(estimate) * ratio)
		}
	}
	return estimate
}

func fmtVal(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return "20charplaceholderxx"
	}
}
