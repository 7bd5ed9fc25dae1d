// Command execution for CLI commands.
//
// Information Hiding:
// - Engine assembly (provider, cache, registry, assembler) hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/scribe/cache"
	"github.com/richinex/scribe/config"
	"github.com/richinex/scribe/llm"
	"github.com/richinex/scribe/model"
	"github.com/richinex/scribe/orchestrator"
	"github.com/richinex/scribe/prompt"
	"github.com/richinex/scribe/storage"
	"github.com/richinex/scribe/tools"
)

const defaultHTTPTimeout = 30 * time.Second

// Options holds CLI execution options.
type Options struct {
	Provider string
	Repo     string
	Ref      string
	Path     string
	Verbose  bool
}

// Ask runs a single query and prints the answer. With tools enabled the
// provider may call the builtin tools before the final answer is synthesized.
func Ask(ctx context.Context, question string, withTools bool, opts Options) error {
	engine, err := buildEngine(opts)
	if err != nil {
		return err
	}

	req := orchestrator.Request{
		Prompt:          question,
		Repository:      repositoryFromOptions(opts),
		IncludeDocument: opts.Repo != "",
	}

	var resp *model.Response
	if withTools {
		resp, err = engine.QueryWithTools(ctx, req)
	} else {
		resp, err = engine.Query(ctx, req)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", resp.Content)

	if opts.Verbose {
		printToolResults(resp.ToolExecutionResults)
		fmt.Printf("\n(model %s via %s, %d tokens)\n", resp.Model, resp.Provider, resp.Usage.TotalTokens)
		if resp.OptimizationInfo.WasOptimized {
			fmt.Printf("(history optimized: %s, %d messages removed)\n",
				resp.OptimizationInfo.Reason, resp.OptimizationInfo.MessagesRemoved)
		}
	}
	return nil
}

// Stream runs a single query and prints the answer chunk by chunk as the
// provider produces it.
func Stream(ctx context.Context, question string, opts Options) error {
	engine, err := buildEngine(opts)
	if err != nil {
		return err
	}

	chunks := make(chan string, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range chunks {
			fmt.Print(chunk)
		}
	}()

	usage, err := engine.QueryStream(ctx, orchestrator.Request{
		Prompt:          question,
		Repository:      repositoryFromOptions(opts),
		IncludeDocument: opts.Repo != "",
	}, chunks)
	close(chunks)
	<-done
	fmt.Println()

	if err != nil {
		return err
	}
	if opts.Verbose && usage != nil {
		fmt.Printf("\n(%d tokens)\n", usage.TotalTokens)
	}
	return nil
}

// ListTools prints the builtin tool registry.
func ListTools(verbose bool) {
	registry := defaultRegistry()

	fmt.Println("Available tools:")
	fmt.Println()
	for _, def := range registry.Definitions() {
		fmt.Printf("  %s\n", def.Name)
		fmt.Printf("    %s\n", def.Description)
		if verbose {
			if props, ok := def.Parameters["properties"].(map[string]any); ok && len(props) > 0 {
				fmt.Println("    Parameters:")
				for name, raw := range props {
					p, _ := raw.(map[string]any)
					fmt.Printf("      %s: %v - %v\n", name, p["type"], p["description"])
				}
			}
		}
		fmt.Println()
	}
}

// buildEngine assembles the orchestrator from configuration.
func buildEngine(opts Options) (*orchestrator.Orchestrator, error) {
	provider, settings, err := createProvider(opts.Provider)
	if err != nil {
		return nil, err
	}

	store, err := openStore(settings.Cache)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(opts.Verbose),
	})).With("session", uuid.NewString())

	return orchestrator.New(
		provider,
		defaultRegistry(),
		cache.New(store, logger),
		prompt.NewAssembler(settings.Engine.PromptCacheTTL, logger),
		logger,
		orchestrator.Config{
			MaxHistoryTokens: settings.Engine.MaxHistoryTokens,
			PreserveRecent:   settings.Engine.PreserveRecent,
			SummarizeHistory: settings.Engine.SummarizeHistory,
			SummaryMaxKeep:   settings.Engine.SummaryMaxKeep,
		},
	), nil
}

// defaultRegistry registers the builtin tools.
func defaultRegistry() *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(tools.NewCurrentTimeTool(nil))
	registry.Register(tools.NewHTTPFetchTool(defaultHTTPTimeout, nil))
	return registry
}

// openStore creates the response-cache backend selected by configuration.
func openStore(cfg config.CacheConfig) (storage.Store, error) {
	switch cfg.Backend {
	case config.CacheSqlite:
		store, err := storage.OpenSqlite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		return store, nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

func repositoryFromOptions(opts Options) *model.RepositoryContext {
	if opts.Repo == "" {
		return nil
	}
	owner, repo, _ := strings.Cut(opts.Repo, "/")
	if repo == "" {
		owner, repo = "", owner
	}
	return &model.RepositoryContext{
		Owner:       owner,
		Repo:        repo,
		Ref:         opts.Ref,
		CurrentPath: opts.Path,
	}
}

func createProvider(providerName string) (llm.Provider, config.Settings, error) {
	if providerName == "" {
		return nil, config.Settings{}, fmt.Errorf("--provider is required for this command")
	}

	providerType, err := llm.ParseProviderType(providerName)
	if err != nil {
		return nil, config.Settings{}, err
	}

	settings, err := config.New(providerName)
	if err != nil {
		return nil, config.Settings{}, err
	}

	apiKey, err := config.APIKeyFor(providerName)
	if err != nil {
		return nil, config.Settings{}, err
	}

	provider, err := providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
	if err != nil {
		return nil, config.Settings{}, err
	}
	return provider, settings, nil
}

func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func printToolResults(results []model.ToolExecutionResult) {
	if len(results) == 0 {
		return
	}
	fmt.Println("\n--- Tool calls ---")
	for _, r := range results {
		if r.Succeeded() {
			fmt.Printf("  %s: %s\n", r.FunctionName, truncateString(r.Result, 200))
		} else {
			fmt.Printf("  %s: error: %s\n", r.FunctionName, r.Error)
		}
	}
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
