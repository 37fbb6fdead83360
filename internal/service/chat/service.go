package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/lingualink/backend/internal/model/chat"
	"github.com/zhouzirui/lingualink/backend/internal/model/language"
	"github.com/zhouzirui/lingualink/backend/internal/model/user"
	"github.com/zhouzirui/lingualink/backend/internal/service/translate"
)

var (
	ErrTranslatorRequired   = errors.New("translator is required")
	ErrUserRequired         = errors.New("user is required")
	ErrConversationNotFound = errors.New("conversation not found")
)

// WelcomeMessageID identifies the seeded greeting of every conversation.
const WelcomeMessageID = "welcome"

// DefaultBotReplyDelay is how long the simulated bot waits before answering.
const DefaultBotReplyDelay = time.Second

// Config controls new conversations.
type Config struct {
	SourceLang    string
	TargetLang    string
	BotReplyDelay time.Duration
}

// Option customises a Service.
type Option func(*Service)

// WithScheduler replaces the timer used for bot replies.
func WithScheduler(s Scheduler) Option {
	return func(svc *Service) { svc.scheduler = s }
}

// WithIDGenerator replaces the message id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(svc *Service) { svc.ids = g }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// Service keeps the live conversations of every signed-in user in memory.
type Service struct {
	translator translate.Translator
	cfg        Config
	scheduler  Scheduler
	ids        IDGenerator
	now        func() time.Time

	mu            sync.RWMutex
	conversations map[string]*Conversation
	byUser        map[string]map[string]struct{}
}

// NewService bootstraps the in-memory conversation registry.
func NewService(translator translate.Translator, cfg Config, opts ...Option) (*Service, error) {
	if translator == nil {
		return nil, ErrTranslatorRequired
	}

	if cfg.SourceLang == "" {
		cfg.SourceLang = language.English
	}
	if cfg.TargetLang == "" {
		cfg.TargetLang = language.Hindi
	}
	if _, ok := language.Find(cfg.SourceLang); !ok || language.IsSentinel(cfg.SourceLang) {
		return nil, fmt.Errorf("%w: source %q", ErrUnknownLanguage, cfg.SourceLang)
	}
	if _, ok := language.Find(cfg.TargetLang); !ok || language.IsSentinel(cfg.TargetLang) {
		return nil, fmt.Errorf("%w: target %q", ErrUnknownLanguage, cfg.TargetLang)
	}
	if cfg.BotReplyDelay < 0 {
		cfg.BotReplyDelay = DefaultBotReplyDelay
	}

	svc := &Service{
		translator:    translator,
		cfg:           cfg,
		scheduler:     timerScheduler{},
		now:           func() time.Time { return time.Now().UTC() },
		conversations: make(map[string]*Conversation),
		byUser:        make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.ids == nil {
		ids, err := NewSnowflakeIDs(1)
		if err != nil {
			return nil, err
		}
		svc.ids = ids
	}

	return svc, nil
}

// CreateConversation starts a conversation for owner, seeded with a welcome message.
func (s *Service) CreateConversation(ctx context.Context, owner user.User) (*Conversation, error) {
	if owner.ID == "" {
		return nil, ErrUserRequired
	}

	conv := newConversation(ctx, uuid.NewString(), owner.ID, s.cfg.SourceLang, s.cfg.TargetLang, conversationDeps{
		translator: s.translator,
		scheduler:  s.scheduler,
		ids:        s.ids,
		botDelay:   s.cfg.BotReplyDelay,
		now:        s.now,
	})
	conv.seed(welcomeMessage(owner, s.now()))

	s.mu.Lock()
	s.conversations[conv.ID()] = conv
	if s.byUser[owner.ID] == nil {
		s.byUser[owner.ID] = make(map[string]struct{})
	}
	s.byUser[owner.ID][conv.ID()] = struct{}{}
	s.mu.Unlock()

	slog.InfoContext(ctx, "conversation created", "component", "chat", "conversation", conv.ID(), "user", owner.ID)
	return conv, nil
}

// GetConversation retrieves a conversation owned by userID.
func (s *Service) GetConversation(_ context.Context, userID, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok || conv.UserID() != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// ListConversations summarises the conversations of userID, oldest first.
func (s *Service) ListConversations(_ context.Context, userID string) []chat.Summary {
	s.mu.RLock()
	convs := make([]*Conversation, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		convs = append(convs, s.conversations[id])
	}
	s.mu.RUnlock()

	summaries := make([]chat.Summary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, conv.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries
}

// CloseConversation discards one conversation of userID.
func (s *Service) CloseConversation(_ context.Context, userID, id string) error {
	s.mu.Lock()
	conv, ok := s.conversations[id]
	if !ok || conv.UserID() != userID {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	delete(s.conversations, id)
	delete(s.byUser[userID], id)
	if len(s.byUser[userID]) == 0 {
		delete(s.byUser, userID)
	}
	s.mu.Unlock()

	conv.Close()
	return nil
}

// DiscardUser closes every conversation of userID. Called on logout.
func (s *Service) DiscardUser(ctx context.Context, userID string) int {
	s.mu.Lock()
	ids := s.byUser[userID]
	delete(s.byUser, userID)
	convs := make([]*Conversation, 0, len(ids))
	for id := range ids {
		convs = append(convs, s.conversations[id])
		delete(s.conversations, id)
	}
	s.mu.Unlock()

	for _, conv := range convs {
		conv.Close()
	}
	if len(convs) > 0 {
		slog.InfoContext(ctx, "discarded conversations", "component", "chat", "user", userID, "count", len(convs))
	}
	return len(convs)
}

// Shutdown closes every conversation and waits for translations already in
// flight to settle, or for ctx to end. Pending bot replies are cancelled.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	convs := make([]*Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		convs = append(convs, conv)
	}
	s.conversations = make(map[string]*Conversation)
	s.byUser = make(map[string]map[string]struct{})
	s.mu.Unlock()

	cancelled := 0
	for _, conv := range convs {
		cancelled += conv.PendingBotReplies()
		conv.Close()
	}

	drained := make(chan struct{})
	go func() {
		for _, conv := range convs {
			conv.Wait()
		}
		close(drained)
	}()

	select {
	case <-drained:
		slog.InfoContext(ctx, "conversations drained", "component", "chat", "count", len(convs), "cancelled_replies", cancelled)
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "conversation drain interrupted", "component", "chat", "count", len(convs), "error", ctx.Err())
		return ctx.Err()
	}
}

func welcomeMessage(owner user.User, at time.Time) chat.Message {
	name := owner.NameOrDefault()
	return chat.Message{
		ID:             WelcomeMessageID,
		Sender:         chat.SenderBot,
		OriginalText:   fmt.Sprintf("Welcome, %s! How can I help you translate today?", name),
		TranslatedText: fmt.Sprintf("नमस्ते, %s! आज मैं आपकी अनुवाद में कैसे मदद कर सकता हूँ?", name),
		SourceLang:     language.English,
		TargetLang:     language.Hindi,
		Timestamp:      at,
	}
}
