// Ollama runtime implementation using the official ollama API client.
//
// Information Hiding:
// - HTTP client and endpoint configuration
// - Conversion between our chat types and api.Message / api.Tool
// - Streaming callback plumbing

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/parser"
)

// DefaultOllamaURL is used when no base URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaRuntime implements Runtime against a local Ollama server.
type OllamaRuntime struct {
	client *api.Client
}

// NewOllamaRuntime creates a runtime for the Ollama server at baseURL.
// An empty baseURL defaults to DefaultOllamaURL.
func NewOllamaRuntime(baseURL string) (*OllamaRuntime, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}
	return &OllamaRuntime{client: api.NewClient(parsed, http.DefaultClient)}, nil
}

// Name returns the runtime name.
func (r *OllamaRuntime) Name() string {
	return "ollama"
}

// CheckModel verifies the model is present locally. The caller is expected
// to surface a "pull it first" hint on failure.
func (r *OllamaRuntime) CheckModel(ctx context.Context, model string) error {
	if _, err := r.client.Show(ctx, &api.ShowRequest{Model: model}); err != nil {
		return fmt.Errorf("model %q not found: %w", model, err)
	}
	return nil
}

// Chat sends a blocking (non-streaming) chat request.
func (r *OllamaRuntime) Chat(ctx context.Context, model string, messages []ChatMessage, opts Options) (string, error) {
	req := r.chatRequest(model, messages, opts, false, nil)

	var reply strings.Builder
	respFunc := func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	}
	if err := r.client.Chat(ctx, req, respFunc); err != nil {
		return "", fmt.Errorf("chat failed: %w", err)
	}
	return reply.String(), nil
}

// StreamChat streams a chat request, forwarding each fragment to fn.
func (r *OllamaRuntime) StreamChat(ctx context.Context, model string, messages []ChatMessage, opts Options, fn StreamFunc) error {
	req := r.chatRequest(model, messages, opts, true, nil)

	respFunc := func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		return fn(resp.Message.Content)
	}
	if err := r.client.Chat(ctx, req, respFunc); err != nil {
		return fmt.Errorf("stream failed: %w", err)
	}
	return nil
}

// ChatWithTools sends a chat request carrying tool declarations and returns
// the assistant content together with any requested tool calls.
func (r *OllamaRuntime) ChatWithTools(ctx context.Context, model string, messages []ChatMessage, tools []ToolDefinition) (ToolTurn, error) {
	req := r.chatRequest(model, messages, Options{Temperature: 0.7, NumPredict: -1}, false, toAPITools(tools))

	var turn ToolTurn
	var content strings.Builder
	respFunc := func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		turn.ToolCalls = append(turn.ToolCalls, fromAPIToolCalls(resp.Message.ToolCalls)...)
		return nil
	}
	if err := r.client.Chat(ctx, req, respFunc); err != nil {
		return ToolTurn{}, fmt.Errorf("tool chat failed: %w", err)
	}
	turn.Content = content.String()
	return turn, nil
}

// ListModels lists the models installed on the Ollama server.
func (r *OllamaRuntime) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := r.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	models := make([]ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = ModelInfo{Name: m.Name, Size: m.Size}
	}
	return models, nil
}

// PullModel downloads a model to the Ollama server.
func (r *OllamaRuntime) PullModel(ctx context.Context, name string) error {
	progress := func(api.ProgressResponse) error { return nil }
	if err := r.client.Pull(ctx, &api.PullRequest{Model: name}, progress); err != nil {
		return fmt.Errorf("failed to pull %q: %w", name, err)
	}
	return nil
}

// CreateModel builds a model from Modelfile text. A FROM naming an
// installed model becomes the create request's source; SYSTEM,
// TEMPLATE, and PARAMETER directives are carried through.
func (r *OllamaRuntime) CreateModel(ctx context.Context, name, modelfile string) error {
	parsed, err := parser.ParseFile(strings.NewReader(modelfile))
	if err != nil {
		return fmt.Errorf("invalid modelfile: %w", err)
	}
	req, err := parsed.CreateRequest("")
	if err != nil {
		return fmt.Errorf("invalid modelfile: %w", err)
	}
	req.Model = name

	progress := func(api.ProgressResponse) error { return nil }
	if err := r.client.Create(ctx, req, progress); err != nil {
		return fmt.Errorf("failed to create %q: %w", name, err)
	}
	return nil
}

// DeleteModel removes a model from the Ollama server.
func (r *OllamaRuntime) DeleteModel(ctx context.Context, name string) error {
	if err := r.client.Delete(ctx, &api.DeleteRequest{Model: name}); err != nil {
		return fmt.Errorf("failed to delete %q: %w", name, err)
	}
	return nil
}

func (r *OllamaRuntime) chatRequest(model string, messages []ChatMessage, opts Options, stream bool, tools []api.Tool) *api.ChatRequest {
	req := &api.ChatRequest{
		Model:    model,
		Messages: toAPIMessages(messages),
		Tools:    tools,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": opts.Temperature,
			"num_predict": opts.NumPredict,
		},
	}
	if opts.Think {
		req.Think = &api.ThinkValue{Value: true}
	}
	return req
}

func toAPIMessages(messages []ChatMessage) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		m := api.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
		for _, img := range msg.Images {
			m.Images = append(m.Images, api.ImageData(img))
		}
		for _, tc := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: api.ToolCallFunctionArguments(argumentsMap(tc.Arguments)),
				},
			})
		}
		result[i] = m
	}
	return result
}

func toAPITools(tools []ToolDefinition) []api.Tool {
	result := make([]api.Tool, 0, len(tools))
	for _, t := range tools {
		params := api.ToolFunctionParameters{
			Type:       "object",
			Properties: make(map[string]api.ToolProperty),
		}
		for _, p := range t.Parameters {
			params.Properties[p.Name] = api.ToolProperty{
				Type:        api.PropertyType{p.Type},
				Description: p.Description,
			}
			if p.Required {
				params.Required = append(params.Required, p.Name)
			}
		}
		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return result
}

func fromAPIToolCalls(calls []api.ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]ToolCall, len(calls))
	for i, tc := range calls {
		result[i] = ToolCall{
			Name:      tc.Function.Name,
			Arguments: map[string]any(tc.Function.Arguments),
		}
	}
	return result
}

// argumentsMap coerces stored tool-call arguments back into a map for
// history replay. Unknown shapes round-trip through JSON.
func argumentsMap(raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err == nil {
			return m
		}
		return map[string]any{}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return map[string]any{}
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return map[string]any{}
		}
		return m
	}
}

// Verify OllamaRuntime implements Runtime and ModelManager.
var (
	_ Runtime      = (*OllamaRuntime)(nil)
	_ ModelManager = (*OllamaRuntime)(nil)
)
