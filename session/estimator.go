// Approximate context-window accounting.
//
// Token counts are estimated, not exact: roughly one token per four
// characters of text. The conversation side is measured over the JSON
// serialization of the history, so role labels and structure count
// toward the budget the same way they roughly do on the wire.

package session

import (
	"encoding/json"

	"ecochat/llm"
)

// EstimateTokens approximates the token count of text (~4 chars/token).
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Usage reports approximate context-window consumption.
type Usage struct {
	DocumentTokens     int     `json:"document_tokens"`
	ConversationTokens int     `json:"conversation_tokens"`
	TotalTokens        int     `json:"total_tokens"`
	RemainingTokens    int     `json:"remaining_tokens"`
	UtilizationPct     float64 `json:"utilization_pct"`
}

// computeUsage measures document and conversation size against the budget.
// A zero or negative budget reports 0% utilization rather than dividing
// by zero.
func computeUsage(documentText string, history []llm.ChatMessage, budget int) Usage {
	docTokens := EstimateTokens(documentText)

	convTokens := 0
	if len(history) > 0 {
		if data, err := json.Marshal(history); err == nil {
			convTokens = EstimateTokens(string(data))
		}
	}

	total := docTokens + convTokens
	usage := Usage{
		DocumentTokens:     docTokens,
		ConversationTokens: convTokens,
		TotalTokens:        total,
		RemainingTokens:    budget - total,
	}
	if budget > 0 {
		usage.UtilizationPct = float64(total) / float64(budget) * 100
	}
	return usage
}
