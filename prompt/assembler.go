// Package prompt builds context-aware system prompts for document queries.
//
// Information Hiding:
// - Template rendering and fallback chain hidden behind Build
// - TTL cache keyed on repository/document identity hidden from callers
package prompt

import (
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/richinex/scribe/model"
)

// toolContractPreamble instructs the model to translate natural-language tool
// requests into actual tool invocations and summarize their results.
const toolContractPreamble = `You are a documentation assistant for a source repository.
When the user asks for an action that matches an available tool (for example creating an issue or checking repository state), you must request the corresponding tool invocation rather than describing the action in prose, and then summarize the tool results in your reply.`

// genericPrompt is the last-resort prompt when no usable context exists.
const genericPrompt = "You are a helpful documentation assistant."

// defaultTemplate renders the full context-aware prompt.
const defaultTemplate = `{{.Preamble}}

Repository: {{.RepoFullName}}{{if .Ref}} (ref {{.Ref}}){{end}}
{{- if .CurrentPath}}
Current file: {{.CurrentPath}}
{{- end}}
{{- if .Classification}}
The current document is {{.Classification}}.
{{- end}}
{{- if .DocumentContent}}

Document content:
{{.DocumentContent}}
{{- end}}
{{- if .CustomInstructions}}

Additional instructions:
{{.CustomInstructions}}
{{- end}}`

// cacheKey identifies one rendered prompt. Custom instructions never appear
// here: they bypass the cache entirely.
type cacheKey struct {
	owner           string
	repo            string
	currentPath     string
	ref             string
	templateID      string
	isDocumentation bool
	isCode          bool
}

type cacheEntry struct {
	prompt    string
	createdAt time.Time
}

// Assembler builds system prompts and caches them with a TTL. Expired entries
// are evicted lazily on the next read. Safe for concurrent use.
type Assembler struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	tmpl   *template.Template
	named  map[string]*template.Template

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

// NewAssembler creates an assembler with the given cache TTL.
// A nil logger means slog.Default().
func NewAssembler(ttl time.Duration, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.New("system").Parse(defaultTemplate)
	if err != nil {
		// The default template is a constant; a parse failure is a
		// programming error surfaced on first Build via the fallback.
		logger.Error("system prompt template failed to parse", "error", err)
		tmpl = nil
	}
	return &Assembler{
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
		tmpl:   tmpl,
		named:  make(map[string]*template.Template),
		cache:  make(map[cacheKey]cacheEntry),
	}
}

// WithClock overrides the time source (for tests).
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// RegisterTemplate registers a named template that Build selects by template
// id. The template receives the same data as the default template. Returns
// the parse error, if any; a registered id with a bad template is rejected.
func (a *Assembler) RegisterTemplate(id, text string) error {
	tmpl, err := template.New(id).Parse(text)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.named[id] = tmpl
	a.mu.Unlock()
	return nil
}

// Build assembles the system prompt for a query. Returns the empty string when
// includeDocument is false or no repository context is given, meaning no
// system prompt is injected. templateID selects a template registered with
// RegisterTemplate; unknown ids use the default template. Never fails:
// rendering errors degrade to a minimal prompt.
func (a *Assembler) Build(repo *model.RepositoryContext, meta *model.DocumentMetadata, documentContent, templateID string, includeDocument bool) string {
	if !includeDocument || repo == nil {
		return ""
	}

	// Custom instructions make the prompt request-specific; skip the cache.
	if repo.CustomInstructions != "" {
		return a.render(repo, meta, documentContent, templateID)
	}

	key := cacheKey{
		owner:       repo.Owner,
		repo:        repo.Repo,
		currentPath: repo.CurrentPath,
		ref:         repo.Ref,
		templateID:  templateID,
	}
	if meta != nil {
		key.isDocumentation = meta.IsDocumentation
		key.isCode = meta.IsCode
	}

	a.mu.Lock()
	entry, ok := a.cache[key]
	if ok && a.now().Sub(entry.createdAt) < a.ttl {
		a.mu.Unlock()
		return entry.prompt
	}
	if ok {
		delete(a.cache, key)
	}
	a.mu.Unlock()

	rendered := a.render(repo, meta, documentContent, templateID)

	a.mu.Lock()
	a.cache[key] = cacheEntry{prompt: rendered, createdAt: a.now()}
	a.mu.Unlock()

	return rendered
}

// render produces the prompt text, degrading on failure rather than erroring.
func (a *Assembler) render(repo *model.RepositoryContext, meta *model.DocumentMetadata, documentContent, templateID string) string {
	data := struct {
		Preamble           string
		RepoFullName       string
		Ref                string
		CurrentPath        string
		Classification     string
		DocumentContent    string
		CustomInstructions string
	}{
		Preamble:           toolContractPreamble,
		RepoFullName:       repo.FullName(),
		Ref:                repo.Ref,
		CurrentPath:        repo.CurrentPath,
		Classification:     classify(meta),
		DocumentContent:    documentContent,
		CustomInstructions: repo.CustomInstructions,
	}

	// Unknown or empty template ids fall back to the default template.
	tmpl := a.tmpl
	if templateID != "" {
		a.mu.Lock()
		if named, ok := a.named[templateID]; ok {
			tmpl = named
		}
		a.mu.Unlock()
	}

	if tmpl != nil {
		var sb strings.Builder
		if err := tmpl.Execute(&sb, data); err == nil {
			return sb.String()
		} else {
			a.logger.Warn("system prompt render failed, using minimal prompt", "error", err)
		}
	}

	if repo.Owner != "" || repo.Repo != "" {
		return "You are a documentation assistant for the repository " + repo.FullName() + "."
	}
	return genericPrompt
}

// classify returns the human-readable document classification, or empty when
// no metadata distinguishes it.
func classify(meta *model.DocumentMetadata) string {
	if meta == nil {
		return ""
	}
	switch {
	case meta.IsDocumentation && meta.IsCode:
		return "documentation containing code"
	case meta.IsDocumentation:
		return "documentation"
	case meta.IsCode:
		return "source code"
	default:
		return ""
	}
}

// CacheLen returns the number of live cache entries (for tests and metrics).
func (a *Assembler) CacheLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cache)
}
