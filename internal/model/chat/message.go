package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ErrorText replaces the translation of a message whose request failed.
const ErrorText = "Error"

// Message is one chat turn. Only TranslatedText and IsTranslating change after
// creation, and only once.
type Message struct {
	ID             string    `json:"id"`
	Sender         Sender    `json:"sender"`
	OriginalText   string    `json:"originalText"`
	TranslatedText string    `json:"translatedText"`
	SourceLang     string    `json:"sourceLang"`
	TargetLang     string    `json:"targetLang"`
	Timestamp      time.Time `json:"timestamp"`
	IsTranslating  bool      `json:"isTranslating,omitempty"`
}

// Failed reports whether the message settled with the error sentinel.
func (m Message) Failed() bool {
	return !m.IsTranslating && m.TranslatedText == ErrorText
}
