// OpenAI-compatible runtime using the go-openai library.
//
// Works against any server speaking the Chat Completions API, including
// local ones (llama.cpp server, vLLM, LM Studio).
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for the Chat Completions API
// - Streaming via go-openai library

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIRuntime implements Runtime against an OpenAI-compatible server.
type OpenAIRuntime struct {
	client *openai.Client
}

// NewOpenAIRuntime creates a runtime for an OpenAI-compatible server.
// An empty baseURL targets the official API.
func NewOpenAIRuntime(apiKey, baseURL string) *OpenAIRuntime {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIRuntime{client: openai.NewClientWithConfig(cfg)}
}

// Name returns the runtime name.
func (r *OpenAIRuntime) Name() string {
	return "openai"
}

// CheckModel verifies the model is served.
func (r *OpenAIRuntime) CheckModel(ctx context.Context, model string) error {
	list, err := r.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	for _, m := range list.Models {
		if m.ID == model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found", model)
}

// Chat sends a blocking chat completion request.
func (r *OpenAIRuntime) Chat(ctx context.Context, model string, messages []ChatMessage, opts Options) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertToOpenAIMessages(messages),
		Temperature: float32(opts.Temperature),
	}
	if opts.NumPredict > 0 {
		req.MaxTokens = opts.NumPredict
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChat streams a chat completion, forwarding each delta to fn.
func (r *OpenAIRuntime) StreamChat(ctx context.Context, model string, messages []ChatMessage, opts Options, fn StreamFunc) error {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertToOpenAIMessages(messages),
		Temperature: float32(opts.Temperature),
		Stream:      true,
	}
	if opts.NumPredict > 0 {
		req.MaxTokens = opts.NumPredict
	}

	stream, err := r.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("stream creation failed: %w", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream recv failed: %w", err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		content := response.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		if err := fn(content); err != nil {
			return err
		}
	}
}

// ChatWithTools sends a chat completion request with tool definitions.
func (r *OpenAIRuntime) ChatWithTools(ctx context.Context, model string, messages []ChatMessage, tools []ToolDefinition) (ToolTurn, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: convertToOpenAIMessagesWithTools(messages),
		Tools:    convertToOpenAITools(tools),
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ToolTurn{}, fmt.Errorf("chat completion failed: %w", err)
	}

	var turn ToolTurn
	if len(resp.Choices) > 0 {
		turn.Content = resp.Choices[0].Message.Content
		for _, tc := range resp.Choices[0].Message.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				// Leave malformed arguments as the raw string; the tool
				// layer reports these as invocation errors.
				turn.ToolCalls = append(turn.ToolCalls, ToolCall{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
				continue
			}
			turn.ToolCalls = append(turn.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
			})
		}
	}
	return turn, nil
}

// ListModels lists the models served by the endpoint.
func (r *OpenAIRuntime) ListModels(ctx context.Context) ([]ModelInfo, error) {
	list, err := r.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	models := make([]ModelInfo, len(list.Models))
	for i, m := range list.Models {
		models[i] = ModelInfo{Name: m.ID}
	}
	return models, nil
}

// convertToOpenAIMessages converts our ChatMessage to openai.ChatCompletionMessage
func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}

// convertToOpenAIMessagesWithTools handles tool calls and tool responses.
func convertToOpenAIMessagesWithTools(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}

		// Handle tool calls from assistant
		for _, tc := range msg.ToolCalls {
			args, _ := json.Marshal(argumentsMap(tc.Arguments))
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}

		// Tool responses carry the tool name in this API dialect.
		if msg.Role == "tool" {
			oaiMsg.Name = msg.ToolName
		}

		result[i] = oaiMsg
	}
	return result
}

// convertToOpenAITools converts tool definitions to OpenAI format.
func convertToOpenAITools(tools []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		properties := make(map[string]any)
		var required []string
		for _, p := range t.Parameters {
			properties[p.Name] = map[string]any{
				"type":        p.Type,
				"description": p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		}
	}
	return result
}

// Verify OpenAIRuntime implements Runtime
var _ Runtime = (*OpenAIRuntime)(nil)
