// Package llm provides the provider gateway consumed by the orchestration core.
//
// Provider is the abstract interface for LLM backends. Each implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling
//
// The gateway is split into a pure options-assembly step (PrepareOptions), the
// actual API call (Call), a pure response-conversion step (ConvertResponse),
// and a streaming variant (Stream). The orchestrator depends only on this
// interface.
package llm

import (
	"context"

	"github.com/richinex/scribe/model"
)

// PromptRequest is the provider-independent input to PrepareOptions.
type PromptRequest struct {
	Prompt       string
	History      []model.Message
	SystemPrompt string
	Tools        []model.ToolDefinition
	ToolChoice   string
	Extra        map[string]any
}

// ProviderOptions is the assembled request for one provider call. The
// well-known dynamic option keys ("model", "max_tokens", "temperature")
// override the named fields during PrepareOptions; everything else a caller
// passes through the dynamic option map lands in Extra.
type ProviderOptions struct {
	Model       string
	Messages    []model.Message
	MaxTokens   int
	Temperature float32
	Tools       []model.ToolDefinition
	ToolChoice  string
	Extra       map[string]any
}

// RawResponse is the neutral shape of a provider API response before it is
// converted into a model.Response.
type RawResponse struct {
	Content      string
	ToolCalls    []model.ToolCall
	Usage        model.TokenUsage
	Model        string
	FinishReason string
}

// Provider defines the abstract interface for LLM providers.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// PrepareOptions assembles provider options from a prompt request.
	// Pure: no I/O, deterministic.
	PrepareOptions(req PromptRequest) ProviderOptions

	// Call sends the request to the provider API.
	Call(ctx context.Context, opts ProviderOptions) (RawResponse, error)

	// ConvertResponse converts a raw API response into a domain response.
	// Pure: no I/O.
	ConvertResponse(raw RawResponse, opts ProviderOptions) *model.Response

	// Stream streams a completion, sending text chunks to the provided channel.
	// Returns token usage when the provider reports it in the final chunk.
	Stream(ctx context.Context, opts ProviderOptions, chunks chan<- string) (*model.TokenUsage, error)
}

// prepareOptions is the shared PrepareOptions implementation: system prompt
// first, then history, then the user prompt as the final message.
func prepareOptions(modelName string, maxTokens int, temperature float32, req PromptRequest) ProviderOptions {
	messages := make([]model.Message, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, model.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, req.History...)
	if req.Prompt != "" {
		messages = append(messages, model.UserMessage(req.Prompt))
	}

	opts := ProviderOptions{
		Model:       modelName,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Tools:       req.Tools,
		ToolChoice:  req.ToolChoice,
		Extra:       req.Extra,
	}
	applyExtra(&opts, req.Extra)
	return opts
}

// applyExtra maps the well-known dynamic option keys onto the wire fields so
// a caller's per-request overrides actually reach the provider. Unknown keys
// stay in Extra untouched.
func applyExtra(opts *ProviderOptions, extra map[string]any) {
	if v, ok := extra["model"].(string); ok && v != "" {
		opts.Model = v
	}
	if v, ok := asInt(extra["max_tokens"]); ok && v > 0 {
		opts.MaxTokens = v
	}
	if v, ok := asFloat32(extra["temperature"]); ok {
		opts.Temperature = v
	}
}

// asInt accepts the numeric shapes a dynamic option map can carry.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asFloat32(v any) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	case int:
		return float32(n), true
	}
	return 0, false
}

// convertResponse is the shared ConvertResponse implementation.
func convertResponse(providerName string, raw RawResponse, opts ProviderOptions) *model.Response {
	modelName := raw.Model
	if modelName == "" {
		modelName = opts.Model
	}
	return &model.Response{
		Content:   raw.Content,
		Model:     modelName,
		Provider:  providerName,
		Usage:     raw.Usage,
		ToolCalls: raw.ToolCalls,
	}
}
