package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
}

// OpenAIClient renders the same prompts as Service and sends them to an
// OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature *float64
}

// NewOpenAIClient creates a Translator backed by openai-go.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Translate implements Translator.
func (c *OpenAIClient) Translate(ctx context.Context, req Request) (string, error) {
	return c.complete(ctx, OpTranslate, req)
}

// Transliterate implements Translator.
func (c *OpenAIClient) Transliterate(ctx context.Context, req Request) (string, error) {
	return c.complete(ctx, OpTransliterate, req)
}

func (c *OpenAIClient) complete(ctx context.Context, op string, req Request) (string, error) {
	rendered, err := newTemplate(op).Format(ctx, req.vars())
	if err != nil {
		return "", fmt.Errorf("%w: format %s prompt: %v", ErrTranslationFailed, op, err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: convertMessages(rendered),
	}
	if c.temperature != nil {
		params.Temperature = openai.Float(*c.temperature)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: openai %s: %v", ErrTranslationFailed, op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai %s: no choices in response", ErrTranslationFailed, op)
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: openai %s returned empty output", ErrTranslationFailed, op)
	}

	slog.DebugContext(ctx, "openai completion finished",
		"component", "translate",
		"op", op,
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return cleanOutput(content), nil
}

func convertMessages(msgs []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case schema.System:
			result = append(result, openai.SystemMessage(msg.Content))
		case schema.Assistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}
