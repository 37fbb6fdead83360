package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Service runs the translate and transliterate prompts through an eino chain.
type Service struct {
	translate     compose.Runnable[map[string]any, *schema.Message]
	transliterate compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles one prompt chain per operation on top of chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	translate, err := compileChain(ctx, chatModel, OpTranslate)
	if err != nil {
		return nil, err
	}

	transliterate, err := compileChain(ctx, chatModel, OpTransliterate)
	if err != nil {
		return nil, err
	}

	return &Service{
		translate:     translate,
		transliterate: transliterate,
	}, nil
}

func compileChain(ctx context.Context, chatModel model.ChatModel, op string) (compose.Runnable[map[string]any, *schema.Message], error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(newTemplate(op))
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s chain: %w", op, err)
	}
	return runnable, nil
}

// Translate returns req.Text translated into req.TargetLanguage.
func (s *Service) Translate(ctx context.Context, req Request) (string, error) {
	return s.run(ctx, OpTranslate, s.translate, req)
}

// Transliterate returns req.Text translated into req.TargetLanguage, written in Roman script.
func (s *Service) Transliterate(ctx context.Context, req Request) (string, error) {
	return s.run(ctx, OpTransliterate, s.transliterate, req)
}

func (s *Service) run(ctx context.Context, op string, chain compose.Runnable[map[string]any, *schema.Message], req Request) (string, error) {
	response, err := chain.Invoke(ctx, req.vars())
	if err != nil {
		return "", fmt.Errorf("%w: %s chain: %v", ErrTranslationFailed, op, err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", fmt.Errorf("%w: %s returned empty output", ErrTranslationFailed, op)
	}

	text := cleanOutput(response.Content)
	slog.DebugContext(ctx, "prompt completed",
		"component", "translate",
		"op", op,
		"source", req.SourceLanguage,
		"target", req.TargetLanguage,
		"length", len(text))
	return text, nil
}
