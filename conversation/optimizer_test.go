package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/richinex/scribe/model"
)

func makeHistory(n int) []model.Message {
	history := make([]model.Message, 0, n)
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		history = append(history, model.Message{
			Role:    role,
			Content: fmt.Sprintf("message number %d with some padding text", i),
		})
	}
	return history
}

func TestEstimateMonotonic(t *testing.T) {
	history := makeHistory(5)
	before := EstimateHistory(history)
	after := EstimateHistory(append(history, model.UserMessage("one more")))

	if after <= before {
		t.Errorf("estimate not monotonic: %d -> %d", before, after)
	}
}

func TestEstimateDeterministic(t *testing.T) {
	history := makeHistory(8)
	if EstimateHistory(history) != EstimateHistory(history) {
		t.Error("estimate not deterministic")
	}
}

func TestOptimizeEmptyHistory(t *testing.T) {
	result := Optimize(nil, 100, 3)

	if result.Info.WasOptimized {
		t.Error("empty history should not be optimized")
	}
	if result.Info.Reason != "Empty history" {
		t.Errorf("unexpected reason: %q", result.Info.Reason)
	}
	if len(result.History) != 0 {
		t.Errorf("expected empty history, got %d messages", len(result.History))
	}
}

func TestOptimizeWithinBudget(t *testing.T) {
	history := makeHistory(4)
	result := Optimize(history, 1_000_000, 2)

	if result.Info.WasOptimized {
		t.Error("history within budget should not be optimized")
	}
	if result.Info.Reason != "Within token limit" {
		t.Errorf("unexpected reason: %q", result.Info.Reason)
	}
	if len(result.History) != 4 {
		t.Errorf("expected history unchanged, got %d messages", len(result.History))
	}
}

func TestOptimizeTruncatesToRecent(t *testing.T) {
	history := makeHistory(20)
	result := Optimize(history, 1, 3)

	if !result.Info.WasOptimized {
		t.Fatal("expected optimization")
	}
	if result.Info.MessagesRemoved != 17 {
		t.Errorf("expected 17 removed, got %d", result.Info.MessagesRemoved)
	}
	if len(result.History) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(result.History))
	}
	if result.Info.Method != model.OptimizationTruncation {
		t.Errorf("expected truncation method, got %q", result.Info.Method)
	}

	// Suffix must be byte-identical to the original.
	for i, msg := range result.History {
		orig := history[17+i]
		if msg.Role != orig.Role || msg.Content != orig.Content {
			t.Errorf("message %d mutated: got %+v, want %+v", i, msg, orig)
		}
	}
}

func TestOptimizePreserveExceedsLength(t *testing.T) {
	history := makeHistory(4)
	result := Optimize(history, 1, 10)

	if result.Info.WasOptimized {
		t.Error("nothing can be dropped when preserve count covers full history")
	}
	if len(result.History) != 4 {
		t.Errorf("expected history unchanged, got %d messages", len(result.History))
	}
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	history := makeHistory(10)
	snapshot := make([]model.Message, len(history))
	copy(snapshot, history)

	Optimize(history, 1, 2)

	for i := range history {
		if history[i].Role != snapshot[i].Role || history[i].Content != snapshot[i].Content {
			t.Fatalf("input history mutated at index %d", i)
		}
	}
}

// stubChat returns a canned summary or error.
type stubChat struct {
	summary string
	err     error
	calls   int
	lastMsg string
}

func (s *stubChat) Chat(_ context.Context, messages []model.Message) (string, error) {
	s.calls++
	if len(messages) > 0 {
		s.lastMsg = messages[len(messages)-1].Content
	}
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

func TestOptimizeWithSummaryBelowThreshold(t *testing.T) {
	svc := &stubChat{summary: "unused"}
	history := append([]model.Message{model.SystemMessage("sys")}, makeHistory(3)...)

	result := OptimizeWithSummary(context.Background(), history, svc, 5, "")

	if result.Info.WasOptimized {
		t.Error("short tail should not be summarized")
	}
	if result.Info.Reason != "Below threshold after system separation" {
		t.Errorf("unexpected reason: %q", result.Info.Reason)
	}
	if svc.calls != 0 {
		t.Errorf("LLM should not be called, got %d calls", svc.calls)
	}
}

func TestOptimizeWithSummarySuccess(t *testing.T) {
	svc := &stubChat{summary: "they discussed documents"}
	history := append([]model.Message{model.SystemMessage("sys")}, makeHistory(10)...)

	result := OptimizeWithSummary(context.Background(), history, svc, 4, "")

	if !result.Info.WasOptimized {
		t.Fatal("expected optimization")
	}
	if result.Info.Method != model.OptimizationSummarization {
		t.Errorf("expected summarization method, got %q", result.Info.Method)
	}

	// system + summary + 4 recent
	if len(result.History) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(result.History))
	}
	if result.History[0].Role != model.RoleSystem {
		t.Error("system message not preserved first")
	}
	summaryMsg := result.History[1]
	if summaryMsg.Role != model.RoleAssistant {
		t.Errorf("summary should be an assistant message, got %q", summaryMsg.Role)
	}
	if !strings.HasPrefix(summaryMsg.Content, summaryPrefix) {
		t.Errorf("summary missing prefix: %q", summaryMsg.Content)
	}
	if !strings.Contains(summaryMsg.Content, "they discussed documents") {
		t.Errorf("summary content lost: %q", summaryMsg.Content)
	}

	// Recent tail preserved verbatim.
	orig := history[len(history)-4:]
	recent := result.History[2:]
	for i := range recent {
		if recent[i].Content != orig[i].Content {
			t.Errorf("recent message %d mutated", i)
		}
	}

	// Summarized messages must appear in the prompt sent to the LLM.
	if !strings.Contains(svc.lastMsg, "message number 0") {
		t.Error("oldest message not included in summarization prompt")
	}
}

func TestOptimizeWithSummaryFallbackOnError(t *testing.T) {
	svc := &stubChat{err: errors.New("model overloaded")}
	history := append([]model.Message{model.SystemMessage("sys")}, makeHistory(10)...)

	result := OptimizeWithSummary(context.Background(), history, svc, 4, "")

	if result.Info.Method != model.OptimizationFallbackTruncation {
		t.Fatalf("expected fallback truncation, got %q", result.Info.Method)
	}
	if result.Info.FallbackError == "" {
		t.Error("fallback error not recorded")
	}

	// system + last 4, no synthesized summary
	if len(result.History) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(result.History))
	}
	for _, msg := range result.History {
		if strings.HasPrefix(msg.Content, summaryPrefix) {
			t.Error("fallback must not synthesize a summary message")
		}
	}
}

func TestOptimizeWithSummaryCustomTemplate(t *testing.T) {
	svc := &stubChat{summary: "short"}
	history := makeHistory(10)

	OptimizeWithSummary(context.Background(), history, svc, 2, "CUSTOM TEMPLATE: %s")

	if !strings.HasPrefix(svc.lastMsg, "CUSTOM TEMPLATE:") {
		t.Errorf("custom template not applied: %q", svc.lastMsg)
	}
}
