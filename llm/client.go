// Client - simple wrapper around providers for plain (tool-free) chat.

package llm

import (
	"context"

	"github.com/richinex/scribe/model"
)

// Client wraps a Provider with a simple interface. Used wherever a component
// needs a plain completion without the full orchestration path, e.g. the
// conversation summarizer.
type Client struct {
	provider Provider
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Chat sends the messages as-is and returns just the content.
func (c *Client) Chat(ctx context.Context, messages []model.Message) (string, error) {
	opts := c.provider.PrepareOptions(PromptRequest{History: messages})
	raw, err := c.provider.Call(ctx, opts)
	if err != nil {
		return "", err
	}
	return raw.Content, nil
}

// ChatWithUsage sends the messages as-is and returns content with token usage.
func (c *Client) ChatWithUsage(ctx context.Context, messages []model.Message) (string, model.TokenUsage, error) {
	opts := c.provider.PrepareOptions(PromptRequest{History: messages})
	raw, err := c.provider.Call(ctx, opts)
	if err != nil {
		return "", model.TokenUsage{}, err
	}
	return raw.Content, raw.Usage, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
