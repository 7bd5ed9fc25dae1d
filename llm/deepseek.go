// DeepSeek Provider implementation using go-openai library.
//
// Information Hiding:
// - Uses OpenAI-compatible API with different base URL
// - Supports deepseek-chat and deepseek-reasoner models
// - Streaming via go-openai library

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/scribe/model"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements the Provider interface for DeepSeek.
type DeepSeekProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(apiKey, model string, maxTokens uint32, temperature float32) *DeepSeekProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = deepseekBaseURL

	return &DeepSeekProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// Model returns the current model.
func (p *DeepSeekProvider) Model() string {
	return p.model
}

// PrepareOptions assembles provider options from a prompt request.
func (p *DeepSeekProvider) PrepareOptions(req PromptRequest) ProviderOptions {
	return prepareOptions(p.model, p.maxTokens, p.temperature, req)
}

// ConvertResponse converts a raw API response into a domain response.
func (p *DeepSeekProvider) ConvertResponse(raw RawResponse, opts ProviderOptions) *model.Response {
	return convertResponse(p.Name(), raw, opts)
}

// Call sends a chat completion request.
func (p *DeepSeekProvider) Call(ctx context.Context, opts ProviderOptions) (RawResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:               opts.Model,
		Messages:            convertToOpenAIMessages(opts.Messages),
		MaxCompletionTokens: opts.MaxTokens,
		Temperature:         opts.Temperature,
	}

	if len(opts.Tools) > 0 {
		req.Tools = convertToOpenAITools(opts.Tools)
		if opts.ToolChoice != "" {
			req.ToolChoice = opts.ToolChoice
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return RawResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	raw := RawResponse{Model: resp.Model}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		raw.Content = choice.Message.Content
		raw.FinishReason = string(choice.FinishReason)
		for _, tc := range choice.Message.ToolCalls {
			raw.ToolCalls = append(raw.ToolCalls, model.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: []byte(tc.Function.Arguments),
			})
		}
	}

	raw.Usage = model.TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}

	return raw, nil
}

// Stream streams a chat completion.
func (p *DeepSeekProvider) Stream(ctx context.Context, opts ProviderOptions, chunks chan<- string) (*model.TokenUsage, error) {
	req := openai.ChatCompletionRequest{
		Model:               opts.Model,
		Messages:            convertToOpenAIMessages(opts.Messages),
		MaxCompletionTokens: opts.MaxTokens,
		Temperature:         opts.Temperature,
		Stream:              true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("stream creation failed: %w", err)
	}
	defer stream.Close()

	var usage *model.TokenUsage
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return usage, nil
		}
		if err != nil {
			return usage, fmt.Errorf("stream recv failed: %w", err)
		}

		if response.Usage != nil {
			usage = &model.TokenUsage{
				PromptTokens:     uint32(response.Usage.PromptTokens),
				CompletionTokens: uint32(response.Usage.CompletionTokens),
				TotalTokens:      uint32(response.Usage.TotalTokens),
			}
		}

		if len(response.Choices) > 0 {
			content := response.Choices[0].Delta.Content
			if content != "" {
				select {
				case chunks <- content:
				case <-ctx.Done():
					return usage, ctx.Err()
				}
			}
		}
	}
}

// Verify DeepSeekProvider implements Provider
var _ Provider = (*DeepSeekProvider)(nil)
