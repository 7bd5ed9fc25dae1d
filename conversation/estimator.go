// Package conversation provides history size management under a token budget.
//
// Information Hiding:
// - Token estimation heuristic hidden behind EstimateTokens/EstimateHistory
// - Truncation and summarization strategies hidden behind Optimize functions
package conversation

import "github.com/richinex/scribe/model"

// messageOverhead approximates the per-message framing cost (role markers,
// separators) a chat API charges on top of the content itself.
const messageOverhead = 4

// EstimateTokens estimates the token cost of a single message.
// Deterministic and strictly positive, so appending a message always
// increases a history estimate.
func EstimateTokens(msg model.Message) int {
	tokens := messageOverhead + len(msg.Content)/4
	for _, tc := range msg.ToolCalls {
		tokens += messageOverhead + (len(tc.Name)+len(tc.Arguments))/4
	}
	return tokens
}

// EstimateHistory estimates the total token cost of a message sequence.
func EstimateHistory(history []model.Message) int {
	total := 0
	for _, msg := range history {
		total += EstimateTokens(msg)
	}
	return total
}
