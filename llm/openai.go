// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API
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

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// PrepareOptions assembles provider options from a prompt request.
func (p *OpenAIProvider) PrepareOptions(req PromptRequest) ProviderOptions {
	return prepareOptions(p.model, p.maxTokens, p.temperature, req)
}

// ConvertResponse converts a raw API response into a domain response.
func (p *OpenAIProvider) ConvertResponse(raw RawResponse, opts ProviderOptions) *model.Response {
	return convertResponse(p.Name(), raw, opts)
}

// Call sends a chat completion request.
func (p *OpenAIProvider) Call(ctx context.Context, opts ProviderOptions) (RawResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    convertToOpenAIMessages(opts.Messages),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
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
func (p *OpenAIProvider) Stream(ctx context.Context, opts ProviderOptions, chunks chan<- string) (*model.TokenUsage, error) {
	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    convertToOpenAIMessages(opts.Messages),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      true,
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

		// Usage arrives in the final chunk
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

// convertToOpenAIMessages converts model.Message to openai.ChatCompletionMessage,
// carrying tool calls and tool results through.
func convertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}

		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}

		if msg.ToolCallID != "" {
			oaiMsg.ToolCallID = msg.ToolCallID
		}

		result[i] = oaiMsg
	}
	return result
}

// convertToOpenAITools converts tool definitions to OpenAI format.
func convertToOpenAITools(tools []model.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
