package chat

import (
	"time"

	"github.com/zhouzirui/lingualink/backend/internal/model/language"
)

// State is a point-in-time copy of a conversation.
type State struct {
	ID                   string              `json:"id"`
	Messages             []Message           `json:"messages"`
	SourceLang           string              `json:"sourceLang"`
	TargetLang           string              `json:"targetLang"`
	UseTransliteration   bool                `json:"useTransliteration"`
	IsSending            bool                `json:"isSending"`
	AvailableTargetLangs []language.Language `json:"availableTargetLangs"`
}

// Summary describes a conversation without its transcript.
type Summary struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  int       `json:"messages"`
}
