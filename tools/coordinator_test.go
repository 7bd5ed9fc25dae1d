package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/richinex/scribe/llm"
	"github.com/richinex/scribe/model"
)

// stubProvider records every PrepareOptions/Call pair so tests can assert on
// the followup dispatch.
type stubProvider struct {
	content  string
	usage    model.TokenUsage
	callErr  error
	prepared []llm.ProviderOptions
	called   []llm.ProviderOptions
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }

func (s *stubProvider) PrepareOptions(req llm.PromptRequest) llm.ProviderOptions {
	messages := make([]model.Message, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, model.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, req.History...)
	if req.Prompt != "" {
		messages = append(messages, model.UserMessage(req.Prompt))
	}
	opts := llm.ProviderOptions{Model: "stub-model", Messages: messages, Tools: req.Tools}
	s.prepared = append(s.prepared, opts)
	return opts
}

func (s *stubProvider) Call(ctx context.Context, opts llm.ProviderOptions) (llm.RawResponse, error) {
	s.called = append(s.called, opts)
	if s.callErr != nil {
		return llm.RawResponse{}, s.callErr
	}
	return llm.RawResponse{Content: s.content, Usage: s.usage, Model: "stub-model"}, nil
}

func (s *stubProvider) ConvertResponse(raw llm.RawResponse, opts llm.ProviderOptions) *model.Response {
	return &model.Response{Content: raw.Content, Model: raw.Model, Provider: "stub", Usage: raw.Usage}
}

func (s *stubProvider) Stream(ctx context.Context, opts llm.ProviderOptions, chunks chan<- string) (*model.TokenUsage, error) {
	return nil, errors.New("not implemented")
}

var _ llm.Provider = (*stubProvider)(nil)

func failingTool(name string) Tool {
	return Func{
		Def: model.ToolDefinition{Name: name, Description: "always fails"},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("boom")
		},
	}
}

func toolCall(id, name string, args string) model.ToolCall {
	return model.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func TestRunNoToolCallsIsTerminal(t *testing.T) {
	provider := &stubProvider{content: "should not be used"}
	c := NewCoordinator(NewRegistry(), provider, nil)

	resp := &model.Response{Content: "plain answer"}
	got := c.Run(context.Background(), resp, "hi", nil, "", nil)

	if got != resp {
		t.Error("expected the response to be returned unchanged")
	}
	if len(provider.called) != 0 {
		t.Errorf("expected no followup call, got %d", len(provider.called))
	}
}

func TestRunPreservesOrderAndIsolatesFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a", nil))
	r.Register(failingTool("b"))
	r.Register(echoTool("c", nil))
	provider := &stubProvider{content: "synthesized"}
	c := NewCoordinator(r, provider, nil)

	resp := &model.Response{
		Content: "",
		ToolCalls: []model.ToolCall{
			toolCall("1", "a", `{}`),
			toolCall("2", "b", `{}`),
			toolCall("3", "c", `{}`),
		},
	}
	got := c.Run(context.Background(), resp, "do things", nil, "", nil)

	if len(got.ToolExecutionResults) != 3 {
		t.Fatalf("got %d results, want 3", len(got.ToolExecutionResults))
	}
	wantNames := []string{"a", "b", "c"}
	for i, res := range got.ToolExecutionResults {
		if res.FunctionName != wantNames[i] {
			t.Errorf("result %d: got %q, want %q", i, res.FunctionName, wantNames[i])
		}
	}
	if !got.ToolExecutionResults[0].Succeeded() {
		t.Error("result for a should succeed")
	}
	if got.ToolExecutionResults[1].Succeeded() {
		t.Error("result for b should carry an error")
	}
	if !strings.Contains(got.ToolExecutionResults[1].Error, "boom") {
		t.Errorf("result for b: got error %q", got.ToolExecutionResults[1].Error)
	}
	if !got.ToolExecutionResults[2].Succeeded() {
		t.Error("result for c should succeed despite b failing")
	}
	if got.Content != "synthesized" {
		t.Errorf("got content %q, want followup content", got.Content)
	}
}

func TestRunFollowupNeverRequestsTools(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a", nil))
	provider := &stubProvider{content: "done"}
	c := NewCoordinator(r, provider, nil)

	resp := &model.Response{ToolCalls: []model.ToolCall{toolCall("1", "a", `{}`)}}
	c.Run(context.Background(), resp, "go", nil, "system", nil)

	if len(provider.called) != 1 {
		t.Fatalf("got %d followup calls, want 1", len(provider.called))
	}
	if len(provider.called[0].Tools) != 0 {
		t.Error("followup options must not carry tools")
	}
	if provider.called[0].ToolChoice != "" {
		t.Error("followup options must not carry a tool choice")
	}
}

func TestRunDegradedFollowupKeepsContent(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a", nil))
	provider := &stubProvider{callErr: errors.New("provider down")}
	c := NewCoordinator(r, provider, nil)

	resp := &model.Response{
		Content:   "pre-followup content",
		ToolCalls: []model.ToolCall{toolCall("1", "a", `{}`)},
	}
	got := c.Run(context.Background(), resp, "go", nil, "", nil)

	if got.Content != "pre-followup content" {
		t.Errorf("got content %q, want original kept", got.Content)
	}
	if len(got.ToolExecutionResults) != 1 {
		t.Fatalf("results must be attached even when followup fails, got %d", len(got.ToolExecutionResults))
	}
	if !got.ToolExecutionResults[0].Succeeded() {
		t.Error("tool result should succeed independently of followup")
	}
}

func TestRunSumsUsage(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a", nil))
	provider := &stubProvider{
		content: "done",
		usage:   model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
	c := NewCoordinator(r, provider, nil)

	resp := &model.Response{
		ToolCalls: []model.ToolCall{toolCall("1", "a", `{}`)},
		Usage:     model.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}
	got := c.Run(context.Background(), resp, "go", nil, "", nil)

	if got.Usage.PromptTokens != 110 || got.Usage.CompletionTokens != 25 || got.Usage.TotalTokens != 135 {
		t.Errorf("got usage %+v, want summed original+followup", got.Usage)
	}
	if resp.Usage.TotalTokens != 120 {
		t.Error("input response must not be mutated")
	}
}

func TestRunRecordsBadArgumentsAndUnknownTools(t *testing.T) {
	r := NewRegistry()
	provider := &stubProvider{content: "done"}
	c := NewCoordinator(r, provider, nil)

	resp := &model.Response{ToolCalls: []model.ToolCall{
		toolCall("1", "nowhere", `{}`),
		toolCall("2", "nowhere", `{not json`),
	}}
	got := c.Run(context.Background(), resp, "go", nil, "", nil)

	if len(got.ToolExecutionResults) != 2 {
		t.Fatalf("got %d results, want 2", len(got.ToolExecutionResults))
	}
	if !strings.Contains(got.ToolExecutionResults[0].Error, "unknown tool") {
		t.Errorf("got %q, want unknown tool error", got.ToolExecutionResults[0].Error)
	}
	if !strings.Contains(got.ToolExecutionResults[1].Error, "invalid tool arguments") {
		t.Errorf("got %q, want parse error", got.ToolExecutionResults[1].Error)
	}
}

func TestRunFollowupConversationShape(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a", nil))
	provider := &stubProvider{content: "done"}
	c := NewCoordinator(r, provider, nil)

	history := []model.Message{
		model.UserMessage("earlier question"),
		model.AssistantMessage("earlier answer"),
	}
	resp := &model.Response{ToolCalls: []model.ToolCall{toolCall("1", "a", `{}`)}}
	c.Run(context.Background(), resp, "current question", history, "system prompt", nil)

	if len(provider.called) != 1 {
		t.Fatalf("got %d calls, want 1", len(provider.called))
	}
	msgs := provider.called[0].Messages
	// system, 2 history, user prompt, assistant tool line, user results prompt
	if len(msgs) != 6 {
		t.Fatalf("got %d messages, want 6", len(msgs))
	}
	if msgs[0].Role != model.RoleSystem {
		t.Errorf("message 0: got role %q, want system", msgs[0].Role)
	}
	if msgs[3].Content != "current question" {
		t.Errorf("message 3: got %q, want the original prompt", msgs[3].Content)
	}
	if msgs[4].Role != model.RoleAssistant || !strings.Contains(msgs[4].Content, "a") {
		t.Errorf("message 4 should be the assistant line naming invoked tools, got %+v", msgs[4])
	}
	last := msgs[5]
	if last.Role != model.RoleUser || !strings.Contains(last.Content, "succeeded") {
		t.Errorf("final message should embed tool outcomes, got %+v", last)
	}
}

func TestRunInjectsRepositoryContext(t *testing.T) {
	var seen map[string]any
	r := NewRegistry()
	r.Register(Func{
		Def: model.ToolDefinition{
			Name: "create_git_issue",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":              map[string]any{"type": "string"},
					"repository_context": map[string]any{"type": "object"},
				},
				"required": []any{"title"},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			seen = args
			return "created", nil
		},
	})
	provider := &stubProvider{content: "done"}
	c := NewCoordinator(r, provider, nil)

	repo := &model.RepositoryContext{Owner: "acme", Repo: "docs", Ref: "main", CurrentPath: "guide.md"}
	resp := &model.Response{ToolCalls: []model.ToolCall{
		toolCall("1", "create_git_issue", `{"title":"broken link"}`),
	}}
	got := c.Run(context.Background(), resp, "file an issue", nil, "", repo)

	if !got.ToolExecutionResults[0].Succeeded() {
		t.Fatalf("unexpected error: %s", got.ToolExecutionResults[0].Error)
	}
	injected, ok := seen["repository_context"].(map[string]any)
	if !ok {
		t.Fatal("expected repository_context to be injected")
	}
	if injected["owner"] != "acme" || injected["repo"] != "docs" {
		t.Errorf("got injected context %+v", injected)
	}
}

func TestRunSkipsInjectionWhenSchemaOmitsContext(t *testing.T) {
	var seen map[string]any
	r := NewRegistry()
	r.Register(Func{
		Def: model.ToolDefinition{
			Name: "check_git_status",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"branch": map[string]any{"type": "string"},
				},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			seen = args
			return "clean", nil
		},
	})
	provider := &stubProvider{content: "done"}
	c := NewCoordinator(r, provider, nil)

	repo := &model.RepositoryContext{Owner: "acme", Repo: "docs"}
	resp := &model.Response{ToolCalls: []model.ToolCall{
		toolCall("1", "check_git_status", `{"branch":"main"}`),
	}}
	got := c.Run(context.Background(), resp, "check status", nil, "", repo)

	if !got.ToolExecutionResults[0].Succeeded() {
		t.Fatalf("tool without a context slot must still validate: %s", got.ToolExecutionResults[0].Error)
	}
	if _, ok := seen["repository_context"]; ok {
		t.Error("context must not be injected into a schema that does not declare it")
	}
}

func TestRunConvertsToolPanicToError(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("a", nil))
	r.Register(Func{
		Def: model.ToolDefinition{Name: "explode"},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			panic("nil map write")
		},
	})
	provider := &stubProvider{content: "synthesized"}
	c := NewCoordinator(r, provider, nil)

	resp := &model.Response{ToolCalls: []model.ToolCall{
		toolCall("1", "explode", `{}`),
		toolCall("2", "a", `{}`),
	}}
	got := c.Run(context.Background(), resp, "do things", nil, "", nil)

	first := got.ToolExecutionResults[0]
	if first.Succeeded() {
		t.Fatal("panicking tool must report an error")
	}
	if !strings.Contains(first.Error, "tool panicked") || !strings.Contains(first.Error, "nil map write") {
		t.Errorf("unexpected error: %q", first.Error)
	}
	if !got.ToolExecutionResults[1].Succeeded() {
		t.Error("sibling tool must still run after a panic")
	}
}

func TestCurrentTimeTool(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	tool := NewCurrentTimeTool(func() time.Time { return fixed })

	out, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2025-03-14T09:26:53Z" {
		t.Errorf("got %q", out)
	}
	if tool.Definition().Name != "get_current_time" {
		t.Errorf("got name %q", tool.Definition().Name)
	}
}

func TestHTTPFetchToolRejectsDisallowed(t *testing.T) {
	tool := NewHTTPFetchTool(time.Second, []string{"example.com"})

	if _, err := tool.Execute(context.Background(), map[string]any{"url": "https://evil.test/x"}); err == nil {
		t.Error("expected disallowed domain to be rejected")
	}
	if _, err := tool.Execute(context.Background(), map[string]any{"url": "ftp://example.com/x"}); err == nil {
		t.Error("expected non-http scheme to be rejected")
	}
	if _, err := tool.Execute(context.Background(), map[string]any{"url": "https://example.com/x", "method": "DELETE"}); err == nil {
		t.Error("expected unsupported method to be rejected")
	}
	if _, err := tool.Execute(context.Background(), map[string]any{}); err == nil {
		t.Error("expected missing url to be rejected")
	}
}
