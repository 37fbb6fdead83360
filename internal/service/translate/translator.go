package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrTranslationFailed wraps every downstream failure (auth, quota, malformed output).
var ErrTranslationFailed = errors.New("translation request failed")

// Request is the input of both prompt operations.
type Request struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

// Translator turns text from one language into another. Transliterate keeps
// the meaning of Translate but romanizes the output script.
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
	Transliterate(ctx context.Context, req Request) (string, error)
}

// Operation names used in logs and telemetry.
const (
	OpTranslate     = "translate"
	OpTransliterate = "transliterate"
)

func (r Request) vars() map[string]any {
	return map[string]any{
		"text":           r.Text,
		"sourceLanguage": r.SourceLanguage,
		"targetLanguage": r.TargetLanguage,
	}
}

// cleanOutput strips the framing models tend to add around a one-line answer.
func cleanOutput(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "Output:")
	text = strings.TrimSpace(text)
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		inner := text[1 : len(text)-1]
		if (first == '"' || first == '\'') && last == first && !strings.ContainsRune(inner, rune(first)) {
			text = strings.TrimSpace(inner)
		}
	}
	return text
}

// Unavailable is used when no model backend is configured. Every call fails,
// so messages settle with the error text instead of hanging.
var Unavailable Translator = unavailable{}

type unavailable struct{}

func (unavailable) Translate(context.Context, Request) (string, error) {
	return "", fmt.Errorf("%w: no translation backend configured", ErrTranslationFailed)
}

func (unavailable) Transliterate(context.Context, Request) (string, error) {
	return "", fmt.Errorf("%w: no translation backend configured", ErrTranslationFailed)
}
