// Package orchestrator composes the query engine: response caching, system
// prompt assembly, provider dispatch, tool-call execution and conversation
// annotation.
//
// Information Hiding:
// - Cache key derivation and cache interaction hidden
// - Degradation policy internalized: prompt-assembly and cache failures
//   never fail a query, only the original provider call is fatal
// - Tool coordination delegated and hidden
package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/richinex/scribe/cache"
	"github.com/richinex/scribe/conversation"
	"github.com/richinex/scribe/llm"
	"github.com/richinex/scribe/model"
	"github.com/richinex/scribe/prompt"
	"github.com/richinex/scribe/tools"
)

const (
	defaultMaxHistoryTokens = 4000
	defaultPreserveRecent   = 10
)

// Request carries everything a single orchestrated query depends on.
type Request struct {
	Prompt          string
	History         []model.Message
	Options         map[string]any
	Repository      *model.RepositoryContext
	Document        *model.DocumentMetadata
	DocumentContent string
	TemplateID      string
	IncludeDocument bool
}

// Config tunes the conversation annotation attached to outgoing responses.
// With SummarizeHistory set, over-budget histories are condensed through an
// LLM summary (keeping the last SummaryMaxKeep messages) instead of plain
// truncation; summarization failure falls back to truncation.
type Config struct {
	MaxHistoryTokens int
	PreserveRecent   int
	SummarizeHistory bool
	SummaryMaxKeep   int
}

// Orchestrator drives the three user-facing operations: plain query,
// query-with-tools and streaming query. All collaborators are injected
// explicitly; there is no package-level state.
type Orchestrator struct {
	provider         llm.Provider
	registry         *tools.Registry
	coordinator      *tools.Coordinator
	cache            *cache.ResponseCache
	assembler        *prompt.Assembler
	summarizer       conversation.ChatService
	logger           *slog.Logger
	maxHistoryTokens int
	preserveRecent   int
	summarizeHistory bool
	summaryMaxKeep   int
}

// New creates an orchestrator. Registry, cache and assembler may be nil, in
// which case the corresponding stage is skipped (no tools offered, no
// caching, no system prompt). A nil logger falls back to slog.Default().
func New(provider llm.Provider, registry *tools.Registry, respCache *cache.ResponseCache, assembler *prompt.Assembler, logger *slog.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxHistoryTokens <= 0 {
		cfg.MaxHistoryTokens = defaultMaxHistoryTokens
	}
	if cfg.PreserveRecent <= 0 {
		cfg.PreserveRecent = defaultPreserveRecent
	}
	if cfg.SummaryMaxKeep <= 0 {
		cfg.SummaryMaxKeep = defaultPreserveRecent
	}
	return &Orchestrator{
		provider:         provider,
		registry:         registry,
		coordinator:      tools.NewCoordinator(registry, provider, logger),
		cache:            respCache,
		assembler:        assembler,
		summarizer:       llm.NewClient(provider),
		logger:           logger,
		maxHistoryTokens: cfg.MaxHistoryTokens,
		preserveRecent:   cfg.PreserveRecent,
		summarizeHistory: cfg.SummarizeHistory,
		summaryMaxKeep:   cfg.SummaryMaxKeep,
	}
}

// Query answers a prompt without tools. Responses are cached by request
// fingerprint; a cache hit short-circuits the provider entirely.
func (o *Orchestrator) Query(ctx context.Context, req Request) (*model.Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	key := o.cacheKey(req)
	if o.cache != nil && key != "" {
		if cached, ok := o.cache.Get(ctx, key); ok {
			o.logger.Debug("cache hit", "key", key)
			return cached, nil
		}
	}

	resp, err := o.dispatch(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	o.annotate(ctx, resp, req.History)

	if o.cache != nil && key != "" {
		o.cache.Set(ctx, key, resp)
	}
	return resp, nil
}

// QueryWithTools answers a prompt with the registry's tools offered to the
// provider. When the provider requests tool calls, they are executed and a
// followup call synthesizes the final answer. Tool-bearing results are never
// cached.
func (o *Orchestrator) QueryWithTools(ctx context.Context, req Request) (*model.Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var defs []model.ToolDefinition
	if o.registry != nil {
		defs = o.registry.Definitions()
	}

	systemPrompt := o.buildSystemPrompt(req)
	resp, err := o.dispatchWithPrompt(ctx, req, systemPrompt, defs)
	if err != nil {
		return nil, err
	}

	resp = o.coordinator.Run(ctx, resp, req.Prompt, req.History, systemPrompt, req.Repository)

	o.annotate(ctx, resp, req.History)
	return resp, nil
}

// QueryStream streams the answer's text chunks to the provided channel. The
// channel is not closed; the caller owns it. Streaming queries are never
// cached and never tool-augmented.
func (o *Orchestrator) QueryStream(ctx context.Context, req Request, chunks chan<- string) (*model.TokenUsage, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	opts := o.provider.PrepareOptions(llm.PromptRequest{
		Prompt:       req.Prompt,
		History:      req.History,
		SystemPrompt: o.buildSystemPrompt(req),
		Extra:        req.Options,
	})

	usage, err := o.provider.Stream(ctx, opts, chunks)
	if err != nil {
		return usage, &ProviderError{Provider: o.provider.Name(), Op: "stream", Err: err}
	}
	return usage, nil
}

func validate(req Request) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// cacheKey derives the fingerprint for a request. A derivation failure is
// logged and disables caching for this query, never fails it.
func (o *Orchestrator) cacheKey(req Request) string {
	key, err := cache.Fingerprint(cache.Request{
		Prompt:          req.Prompt,
		History:         req.History,
		Options:         req.Options,
		Repository:      req.Repository,
		Document:        req.Document,
		DocumentContent: req.DocumentContent,
		TemplateID:      req.TemplateID,
	})
	if err != nil {
		o.logger.Warn("cache key derivation failed, skipping cache", "error", err)
		return ""
	}
	return key
}

// buildSystemPrompt invokes the assembler. Assembly can yield an empty prompt
// but never an error; a nil assembler degrades to no system prompt.
func (o *Orchestrator) buildSystemPrompt(req Request) string {
	if o.assembler == nil {
		return ""
	}
	return o.assembler.Build(req.Repository, req.Document, req.DocumentContent, req.TemplateID, req.IncludeDocument)
}

// dispatch runs the prepare/call/convert provider chain. Any provider failure
// here is fatal to the query and wrapped as a ProviderError.
func (o *Orchestrator) dispatch(ctx context.Context, req Request, defs []model.ToolDefinition) (*model.Response, error) {
	return o.dispatchWithPrompt(ctx, req, o.buildSystemPrompt(req), defs)
}

func (o *Orchestrator) dispatchWithPrompt(ctx context.Context, req Request, systemPrompt string, defs []model.ToolDefinition) (*model.Response, error) {
	opts := o.provider.PrepareOptions(llm.PromptRequest{
		Prompt:       req.Prompt,
		History:      req.History,
		SystemPrompt: systemPrompt,
		Tools:        defs,
		Extra:        req.Options,
	})

	raw, err := o.provider.Call(ctx, opts)
	if err != nil {
		return nil, &ProviderError{Provider: o.provider.Name(), Op: "call", Err: err}
	}
	return o.provider.ConvertResponse(raw, opts), nil
}

// annotate attaches the optimized input history and its report to an outgoing
// response, so callers always see a consistently shaped response.
func (o *Orchestrator) annotate(ctx context.Context, resp *model.Response, history []model.Message) {
	var result conversation.Result
	if o.summarizeHistory {
		result = conversation.OptimizeWithSummary(ctx, history, o.summarizer, o.summaryMaxKeep, "")
	} else {
		result = conversation.Optimize(history, o.maxHistoryTokens, o.preserveRecent)
	}
	resp.OptimizedHistory = result.History
	resp.OptimizationInfo = result.Info
}
