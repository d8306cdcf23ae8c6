// Web search and fetch tools backed by the Ollama web API.
//
// Information Hiding:
// - HTTP transport, endpoint URLs, and bearer auth hidden
// - Request/response JSON handling abstracted

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultWebAPIBase is the Ollama web tools endpoint.
const DefaultWebAPIBase = "https://ollama.com/api"

const webRequestTimeout = 20 * time.Second

// ErrUnauthorized means the web API credential is missing or rejected.
// Tools fail fast on a missing key rather than issuing doomed requests.
var ErrUnauthorized = errors.New("web API unauthorized")

// SearchClient calls the Ollama web_search / web_fetch endpoints with a
// bearer credential.
type SearchClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSearchClient creates a client for the Ollama web API. An empty
// baseURL selects DefaultWebAPIBase. The key may be empty; calls then
// fail with ErrUnauthorized.
func NewSearchClient(apiKey, baseURL string) *SearchClient {
	if baseURL == "" {
		baseURL = DefaultWebAPIBase
	}
	return &SearchClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: webRequestTimeout},
	}
}

// Search queries the web_search endpoint.
func (c *SearchClient) Search(ctx context.Context, query string, maxResults int) (string, error) {
	return c.post(ctx, "/web_search", map[string]any{
		"query":       query,
		"max_results": maxResults,
	})
}

// Fetch retrieves a page via the web_fetch endpoint.
func (c *SearchClient) Fetch(ctx context.Context, url string) (string, error) {
	return c.post(ctx, "/web_fetch", map[string]any{
		"url": url,
	})
}

func (c *SearchClient) post(ctx context.Context, path string, payload map[string]any) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrUnauthorized)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("web API error: status %d: %s", resp.StatusCode, data)
	}
	return string(data), nil
}

// WebSearchTool exposes web search to the model.
type WebSearchTool struct {
	client *SearchClient
}

// NewWebSearchTool creates the web_search tool.
func NewWebSearchTool(client *SearchClient) *WebSearchTool {
	return &WebSearchTool{client: client}
}

// Metadata returns the tool metadata.
func (t *WebSearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "web_search",
		Description: "Search the web for relevant, current information",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "The search query", Required: true},
			{Name: "max_results", ParamType: "integer", Description: "Number of results to return (default 5)", Required: false},
		},
	}
}

// Execute runs the search.
func (t *WebSearchTool) Execute(ctx context.Context, args Arguments) (string, error) {
	query := args.String("query", "")
	if query == "" {
		return "", fmt.Errorf("query cannot be empty")
	}
	maxResults := args.Int("max_results", 5)
	return t.client.Search(ctx, query, maxResults)
}

// WebFetchTool exposes single-page fetching to the model.
type WebFetchTool struct {
	client *SearchClient
}

// NewWebFetchTool creates the web_fetch tool.
func NewWebFetchTool(client *SearchClient) *WebFetchTool {
	return &WebFetchTool{client: client}
}

// Metadata returns the tool metadata.
func (t *WebFetchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "web_fetch",
		Description: "Fetch a webpage and return its content and links",
		Parameters: []ToolParameter{
			{Name: "url", ParamType: "string", Description: "The URL to fetch", Required: true},
		},
	}
}

// Execute fetches the page.
func (t *WebFetchTool) Execute(ctx context.Context, args Arguments) (string, error) {
	url := args.String("url", "")
	if url == "" {
		return "", fmt.Errorf("url cannot be empty")
	}
	return t.client.Fetch(ctx, url)
}

// WebRegistry builds a registry holding the standard web tool set.
func WebRegistry(client *SearchClient) *Registry {
	r := NewRegistry()
	// Registration of fresh tools into a fresh registry cannot collide.
	_ = r.Register(NewWebSearchTool(client))
	_ = r.Register(NewWebFetchTool(client))
	return r
}
