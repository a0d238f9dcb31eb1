package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Client is a chat-completions client for any OpenAI-compatible endpoint
type Client struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

// NewClient creates a new client. An empty baseURL uses the OpenAI default.
func NewClient(apiKey, baseURL, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	if logger == nil {
		logger = slog.Default()
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		log:    logger.With("component", "openai"),
	}
}

// StructuredRequest describes one structured-output chat call
type StructuredRequest struct {
	SystemPrompt string
	UserMessage  string
	SchemaName   string
	Schema       *jsonschema.Definition
	Temperature  float32
	MaxTokens    int
}

// ChatStructured sends a message constrained to a JSON schema and returns the raw content
func (c *Client) ChatStructured(ctx context.Context, req StructuredRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserMessage})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Schema != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Schema: req.Schema,
				Strict: true,
			},
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	content := resp.Choices[0].Message.Content
	c.log.Debug("Chat completion", "model", c.model, "finish_reason", resp.Choices[0].FinishReason, "content", content)
	return content, nil
}

// DecodeStructured validates content against schema and unmarshals it into v.
// Markdown code fences around the JSON are tolerated.
func DecodeStructured(content string, schema *jsonschema.Definition, v any) error {
	raw := StripCodeFence(content)
	if raw == "" {
		return fmt.Errorf("empty response content")
	}
	if !json.Valid([]byte(raw)) {
		return fmt.Errorf("response is not valid JSON: %s", truncate(raw, 120))
	}
	if schema == nil {
		return json.Unmarshal([]byte(raw), v)
	}
	if err := jsonschema.VerifySchemaAndUnmarshal(*schema, []byte(raw), v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}

// StripCodeFence removes a surrounding ``` block if present, including any
// info string (json, JSON, ...) on the opening fence line
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		// Single line: ```json {...}```
		s = strings.TrimLeftFunc(s, func(r rune) bool { return r != '{' && r != '[' })
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
