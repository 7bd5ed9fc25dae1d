package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/richinex/scribe/model"
)

const maxFetchBodySize = 1 << 20 // 1MB

// NewCurrentTimeTool returns a tool reporting the current time in RFC 3339.
// The clock is injectable; nil means time.Now.
func NewCurrentTimeTool(now func() time.Time) Tool {
	if now == nil {
		now = time.Now
	}
	return &Func{
		Def: model.ToolDefinition{
			Name:        "get_current_time",
			Description: "Get the current date and time",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			return now().UTC().Format(time.RFC3339), nil
		},
	}
}

// HTTPFetchTool fetches a URL over HTTP. Requests are restricted to an
// optional domain allowlist and to GET and POST.
type HTTPFetchTool struct {
	client         *http.Client
	allowedDomains []string
}

// NewHTTPFetchTool creates the http_fetch tool. An empty allowlist permits
// any domain.
func NewHTTPFetchTool(timeout time.Duration, allowedDomains []string) *HTTPFetchTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetchTool{
		client:         &http.Client{Timeout: timeout},
		allowedDomains: allowedDomains,
	}
}

func (t *HTTPFetchTool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        "http_fetch",
		Description: "Fetch the contents of a URL via HTTP GET or POST",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to fetch",
				},
				"method": map[string]any{
					"type":        "string",
					"description": "HTTP method, GET or POST (default GET)",
				},
				"body": map[string]any{
					"type":        "string",
					"description": "Request body for POST requests",
				},
			},
			"required": []string{"url"},
		},
	}
}

func (t *HTTPFetchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return "", fmt.Errorf("url is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if !t.domainAllowed(parsed.Hostname()) {
		return "", fmt.Errorf("domain %q is not in the allowed list", parsed.Hostname())
	}

	method := http.MethodGet
	if m, ok := args["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != http.MethodGet && method != http.MethodPost {
		return "", fmt.Errorf("unsupported method %q", method)
	}

	var body io.Reader
	if b, ok := args["body"].(string); ok && b != "" {
		body = strings.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodySize))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	return fmt.Sprintf("Status: %s\n\n%s", resp.Status, data), nil
}

func (t *HTTPFetchTool) domainAllowed(host string) bool {
	if len(t.allowedDomains) == 0 {
		return true
	}
	for _, domain := range t.allowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

var _ Tool = (*Func)(nil)
var _ Tool = (*HTTPFetchTool)(nil)
