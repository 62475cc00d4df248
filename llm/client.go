package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultModel = "gpt-4o"

// Roles used in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config holds LLM client configuration.
type Config struct {
	APIKey  string
	BaseURL string // Optional: custom endpoint, e.g. GitHub Models or a proxy
	Model   string
}

// Message is one prior turn of the conversation.
type Message struct {
	Role    string
	Content string
}

// Request is a single prompt: system instructions, the conversation so far
// and the new user message.
type Request struct {
	Instructions string
	History      []Message
	Text         string
}

// Client sends chat completions to an OpenAI-compatible API.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a chat client. The SDK's automatic retries are disabled.
func NewClient(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Complete requests one full response.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices in response")
	}

	slog.DebugContext(ctx, "chat completed",
		"component", "llm",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

// Stream requests a streamed response, calling onChunk for every non-empty
// content delta in arrival order. It returns the concatenated reply. An error
// from onChunk aborts the stream.
func (c *Client) Stream(ctx context.Context, req Request, onChunk func(string) error) (string, error) {
	start := time.Now()
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(req))
	defer func() { _ = stream.Close() }()

	var acc openai.ChatCompletionAccumulator
	chunks := 0
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		chunks++
		if err := onChunk(delta); err != nil {
			return "", fmt.Errorf("deliver chunk: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("openai chat stream: %w", err)
	}

	slog.DebugContext(ctx, "chat stream completed",
		"component", "llm",
		"model", c.model,
		"chunks", chunks,
		"duration_ms", time.Since(start).Milliseconds())

	if len(acc.Choices) == 0 {
		return "", nil
	}
	return acc.Choices[0].Message.Content, nil
}

func (c *Client) params(req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, m := range req.History {
		switch m.Role {
		case RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.Text))

	return openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	}
}
