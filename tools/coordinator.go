// Tool execution coordination: runs the tool calls a provider response
// requested, then drives one followup provider call to synthesize a final
// natural-language answer from the results.
//
// Information Hiding:
// - Argument parsing and validation failures internalized per call
// - Followup conversation synthesis hidden
// - Followup failure degradation hidden

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	ijson "github.com/richinex/scribe/internal/json"
	"github.com/richinex/scribe/llm"
	"github.com/richinex/scribe/model"
)

// Coordinator executes the tool calls contained in a provider response and
// performs a single bounded followup query. The followup is always dispatched
// with tools disabled so it can never itself request tools.
type Coordinator struct {
	registry *Registry
	provider llm.Provider
	logger   *slog.Logger
}

// NewCoordinator creates a coordinator over the given registry and provider.
// A nil logger falls back to slog.Default().
func NewCoordinator(registry *Registry, provider llm.Provider, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		registry: registry,
		provider: provider,
		logger:   logger,
	}
}

// Run executes resp's tool calls sequentially and, when any were present,
// replaces resp.Content with the followup synthesis. Individual tool failures
// and followup failure are non-fatal: the worst case is a response carrying
// per-call errors and the original content. The input response is not
// modified.
func (c *Coordinator) Run(ctx context.Context, resp *model.Response, prompt string, history []model.Message, systemPrompt string, repo *model.RepositoryContext) *model.Response {
	if resp == nil || len(resp.ToolCalls) == 0 {
		return resp
	}

	results := make([]model.ToolExecutionResult, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		results = append(results, c.executeOne(ctx, call, repo))
	}

	final := *resp
	final.ToolExecutionResults = results

	followup, usage, err := c.followup(ctx, resp.ToolCalls, results, prompt, history, systemPrompt)
	if err != nil {
		c.logger.Warn("followup synthesis failed, keeping tool-call response",
			"provider", c.provider.Name(),
			"tool_calls", len(resp.ToolCalls),
			"error", err)
		return &final
	}

	final.Content = followup
	final.Usage.Add(usage)
	return &final
}

// executeOne parses, validates and invokes a single tool call. Every failure
// mode lands in the result's Error field so one bad call never aborts the
// batch.
func (c *Coordinator) executeOne(ctx context.Context, call model.ToolCall, repo *model.RepositoryContext) model.ToolExecutionResult {
	result := model.ToolExecutionResult{
		ToolCallID:   call.ID,
		FunctionName: call.Name,
	}

	args, err := ijson.DecodeArguments(call.Arguments)
	if err != nil {
		result.Error = fmt.Sprintf("invalid tool arguments: %v", err)
		return result
	}

	tool, exists := c.registry.Get(call.Name)
	if !exists {
		result.Error = fmt.Sprintf("unknown tool %q", call.Name)
		return result
	}

	def := tool.Definition()
	if repo != nil && needsRepositoryContext(call.Name) && declaresRepositoryContext(def) {
		args["repository_context"] = map[string]any{
			"owner":        repo.Owner,
			"repo":         repo.Repo,
			"ref":          repo.Ref,
			"current_path": repo.CurrentPath,
		}
	}

	if err := ValidateArguments(args, def); err != nil {
		result.Error = err.Error()
		return result
	}

	output, err := c.invoke(ctx, tool, args)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Result = output
	return result
}

// invoke runs the tool, converting a panic into an error so misbehaving tool
// implementations stay isolated.
func (c *Coordinator) invoke(ctx context.Context, tool Tool, args map[string]any) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return tool.Execute(ctx, args)
}

// followup builds the synthesis conversation and dispatches it with tools
// absent. Returns the followup content and its token usage.
func (c *Coordinator) followup(ctx context.Context, calls []model.ToolCall, results []model.ToolExecutionResult, prompt string, history []model.Message, systemPrompt string) (string, model.TokenUsage, error) {
	conversation := make([]model.Message, 0, len(history)+3)
	conversation = append(conversation, history...)
	conversation = append(conversation, model.UserMessage(prompt))
	conversation = append(conversation, model.AssistantMessage(invokedToolsLine(calls)))

	req := llm.PromptRequest{
		Prompt:       resultsPrompt(results),
		History:      conversation,
		SystemPrompt: systemPrompt,
	}
	opts := c.provider.PrepareOptions(req)
	opts.Tools = nil
	opts.ToolChoice = ""

	raw, err := c.provider.Call(ctx, opts)
	if err != nil {
		return "", model.TokenUsage{}, fmt.Errorf("followup call: %w", err)
	}

	converted := c.provider.ConvertResponse(raw, opts)
	return converted.Content, converted.Usage, nil
}

// invokedToolsLine renders the synthetic assistant message naming the tools
// that were invoked.
func invokedToolsLine(calls []model.ToolCall) string {
	names := make([]string, 0, len(calls))
	for _, call := range calls {
		names = append(names, call.Name)
	}
	return fmt.Sprintf("I invoked the following tools: %s.", strings.Join(names, ", "))
}

// resultsPrompt renders the synthetic user message embedding each tool's
// outcome and asking for a single comprehensive answer.
func resultsPrompt(results []model.ToolExecutionResult) string {
	var b strings.Builder
	b.WriteString("Here are the tool execution results:\n\n")
	for i, r := range results {
		if r.Succeeded() {
			fmt.Fprintf(&b, "%d. %s succeeded: %s\n", i+1, r.FunctionName, r.Result)
		} else {
			fmt.Fprintf(&b, "%d. %s failed: %s\n", i+1, r.FunctionName, r.Error)
		}
	}
	b.WriteString("\nPlease provide a single comprehensive answer to my original question based on these results.")
	return b.String()
}

// needsRepositoryContext reports whether a tool receives the repository
// context as an implicit argument.
func needsRepositoryContext(name string) bool {
	return strings.HasPrefix(name, "create_git_") || strings.HasPrefix(name, "check_git_")
}

// declaresRepositoryContext reports whether a tool's schema has a
// repository_context property. Injection is skipped for schemas without the
// slot so the injected argument can never fail validation.
func declaresRepositoryContext(def model.ToolDefinition) bool {
	props, ok := def.Parameters["properties"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = props["repository_context"]
	return ok
}
