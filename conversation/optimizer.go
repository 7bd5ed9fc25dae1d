package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/scribe/model"
)

// summaryPrefix marks the synthetic assistant message holding a summary of
// dropped conversation.
const summaryPrefix = "[conversation summary] "

// defaultSummaryPrompt renders the messages to summarize into one LLM prompt.
const defaultSummaryPrompt = `Summarize the following conversation history concisely, preserving key information, decisions, and context that would be important for continuing the conversation.

Conversation to summarize:
%s

Provide a concise summary:`

// Result pairs an optimized history with a report of what was done to it.
type Result struct {
	History []model.Message
	Info    model.OptimizationInfo
}

// ChatService is the minimal LLM surface needed for summarization.
// *llm.Client satisfies it.
type ChatService interface {
	Chat(ctx context.Context, messages []model.Message) (string, error)
}

// Optimize reduces a history to fit a token budget by dropping the oldest
// messages. The last preserveRecent messages are kept verbatim; the dropped
// prefix is never rewritten. Pure: the input slice is not mutated.
func Optimize(history []model.Message, maxTokens, preserveRecent int) Result {
	if len(history) == 0 {
		return Result{
			History: history,
			Info: model.OptimizationInfo{
				Reason: "Empty history",
				Method: model.OptimizationNone,
			},
		}
	}

	if EstimateHistory(history) <= maxTokens {
		return Result{
			History: history,
			Info: model.OptimizationInfo{
				Reason:                "Within token limit",
				OriginalMessageCount:  len(history),
				OptimizedMessageCount: len(history),
				Method:                model.OptimizationNone,
			},
		}
	}

	if preserveRecent >= len(history) {
		return Result{
			History: history,
			Info: model.OptimizationInfo{
				Reason:                "Preserve count covers full history",
				OriginalMessageCount:  len(history),
				OptimizedMessageCount: len(history),
				Method:                model.OptimizationNone,
			},
		}
	}

	removed := len(history) - preserveRecent
	kept := make([]model.Message, preserveRecent)
	copy(kept, history[removed:])

	return Result{
		History: kept,
		Info: model.OptimizationInfo{
			WasOptimized:          true,
			Reason:                fmt.Sprintf("Exceeded token limit; kept last %d messages", preserveRecent),
			OriginalMessageCount:  len(history),
			OptimizedMessageCount: preserveRecent,
			MessagesRemoved:       removed,
			Method:                model.OptimizationTruncation,
		},
	}
}

// OptimizeWithSummary reduces a history by summarizing everything older than
// the last maxKeep conversational messages through the LLM. Leading system
// messages are always preserved and never summarized. On LLM failure it falls
// back to pure truncation; the error is recorded, never propagated.
func OptimizeWithSummary(ctx context.Context, history []model.Message, svc ChatService, maxKeep int, promptTemplate string) Result {
	systemMsgs, tail := splitSystemPrefix(history)

	if len(tail) <= maxKeep {
		return Result{
			History: history,
			Info: model.OptimizationInfo{
				Reason:                "Below threshold after system separation",
				OriginalMessageCount:  len(history),
				OptimizedMessageCount: len(history),
				Method:                model.OptimizationNone,
			},
		}
	}

	toSummarize := tail[:len(tail)-maxKeep]
	recent := tail[len(tail)-maxKeep:]

	if promptTemplate == "" {
		promptTemplate = defaultSummaryPrompt
	}
	prompt := fmt.Sprintf(promptTemplate, renderTranscript(toSummarize))

	summary, err := svc.Chat(ctx, []model.Message{model.UserMessage(prompt)})
	if err != nil {
		// Summarization is best-effort: degrade to truncation.
		kept := make([]model.Message, 0, len(systemMsgs)+maxKeep)
		kept = append(kept, systemMsgs...)
		kept = append(kept, recent...)
		return Result{
			History: kept,
			Info: model.OptimizationInfo{
				WasOptimized:          true,
				Reason:                "Summarization failed; truncated instead",
				OriginalMessageCount:  len(history),
				OptimizedMessageCount: len(kept),
				MessagesRemoved:       len(toSummarize),
				Method:                model.OptimizationFallbackTruncation,
				FallbackError:         err.Error(),
			},
		}
	}

	optimized := make([]model.Message, 0, len(systemMsgs)+1+maxKeep)
	optimized = append(optimized, systemMsgs...)
	optimized = append(optimized, model.AssistantMessage(summaryPrefix+summary))
	optimized = append(optimized, recent...)

	return Result{
		History: optimized,
		Info: model.OptimizationInfo{
			WasOptimized:          true,
			Reason:                fmt.Sprintf("Summarized %d older messages", len(toSummarize)),
			OriginalMessageCount:  len(history),
			OptimizedMessageCount: len(optimized),
			MessagesRemoved:       len(toSummarize),
			Method:                model.OptimizationSummarization,
		},
	}
}

// splitSystemPrefix separates leading system message(s) from the
// conversational tail.
func splitSystemPrefix(history []model.Message) (system, tail []model.Message) {
	i := 0
	for i < len(history) && history[i].Role == model.RoleSystem {
		i++
	}
	return history[:i], history[i:]
}

// renderTranscript renders messages as "role: content" lines for the
// summarization prompt.
func renderTranscript(messages []model.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, msg.Role+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}
