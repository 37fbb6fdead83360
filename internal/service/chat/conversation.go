package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/lingualink/backend/internal/model/chat"
	"github.com/zhouzirui/lingualink/backend/internal/model/language"
	"github.com/zhouzirui/lingualink/backend/internal/service/translate"
)

var (
	ErrEmptyMessage          = errors.New("message cannot be empty")
	ErrUnknownLanguage       = errors.New("unknown language")
	ErrSwapInTransliteration = errors.New("cannot swap languages in transliteration mode")
	ErrConversationClosed    = errors.New("conversation closed")
)

var (
	swapNotification = chat.Notification{
		Title:       "Can't swap in transliteration mode",
		Description: "Please turn off transliteration to swap languages.",
		Variant:     chat.VariantDestructive,
	}
	translationErrorNotification = chat.Notification{
		Title:       "Error",
		Description: "Failed to get translation. Please try again.",
		Variant:     chat.VariantDestructive,
	}
)

// Conversation owns the language selection and message lifecycle of one chat
// session. All methods are safe for concurrent use; translation calls run
// outside the lock so several messages can be in flight at once.
type Conversation struct {
	id        string
	userID    string
	createdAt time.Time

	ctx        context.Context
	translator translate.Translator
	scheduler  Scheduler
	ids        IDGenerator
	botDelay   time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu                 sync.Mutex
	store              *messageStore
	sourceLang         string
	targetLang         string
	useTransliteration bool
	sending            int
	botReplies         map[string]Task
	closed             bool
	done               chan struct{}
	// work counts translations started before Close.
	work sync.WaitGroup

	// deliverMu is taken before mu is released so observers see events in
	// the order the state changed.
	deliverMu    sync.Mutex
	observersMu  sync.RWMutex
	observers    map[int]func(chat.Event)
	nextObserver int
}

type conversationDeps struct {
	translator translate.Translator
	scheduler  Scheduler
	ids        IDGenerator
	botDelay   time.Duration
	now        func() time.Time
}

func newConversation(ctx context.Context, id, userID, source, target string, deps conversationDeps) *Conversation {
	return &Conversation{
		id:         id,
		userID:     userID,
		createdAt:  deps.now(),
		ctx:        context.WithoutCancel(ctx),
		translator: deps.translator,
		scheduler:  deps.scheduler,
		ids:        deps.ids,
		botDelay:   deps.botDelay,
		now:        deps.now,
		logger:     slog.Default().With("component", "chat", "conversation", id),
		store:      newMessageStore(),
		sourceLang: source,
		targetLang: target,
		botReplies: make(map[string]Task),
		done:       make(chan struct{}),
		observers:  make(map[int]func(chat.Event)),
	}
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string {
	return c.id
}

// UserID returns the owner of the conversation.
func (c *Conversation) UserID() string {
	return c.userID
}

// Summary describes the conversation without its transcript.
func (c *Conversation) Summary() chat.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return chat.Summary{
		ID:        c.id,
		UserID:    c.userID,
		CreatedAt: c.createdAt,
		Messages:  c.store.len(),
	}
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() chat.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Messages returns the transcript in append order.
func (c *Conversation) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.list()
}

// Message looks a message up by id.
func (c *Conversation) Message(id string) (chat.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.get(id)
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. Events are delivered one at a time in state order. fn must
// not block or call back into the conversation.
func (c *Conversation) Subscribe(fn func(chat.Event)) func() {
	c.observersMu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.observersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.observersMu.Lock()
			delete(c.observers, id)
			c.observersMu.Unlock()
		})
	}
}

// SetSourceLanguage selects the language the user writes in.
func (c *Conversation) SetSourceLanguage(value string) error {
	return c.SetLanguages(&value, nil)
}

// SetTargetLanguage selects the language messages are translated into. While
// transliteration mode is on the target stays pinned to the sentinel.
func (c *Conversation) SetTargetLanguage(value string) error {
	return c.SetLanguages(nil, &value)
}

// SetLanguages updates source and/or target as one change. Both values are
// validated before either is applied; nil leaves a side untouched.
func (c *Conversation) SetLanguages(source, target *string) error {
	if source != nil {
		if _, ok := language.Find(*source); !ok || language.IsSentinel(*source) {
			return ErrUnknownLanguage
		}
	}
	if target != nil {
		if _, ok := language.Find(*target); !ok {
			return ErrUnknownLanguage
		}
	}
	if source == nil && target == nil {
		return nil
	}

	c.mu.Lock()
	if source != nil {
		c.sourceLang = *source
	}
	if target != nil && !c.useTransliteration {
		c.targetLang = *target
	}
	c.reconcileTargetLocked()
	c.publishLocked(c.stateEventLocked())
	return nil
}

// SwapLanguages exchanges source and target. It is refused in transliteration
// mode, where the target is fixed.
func (c *Conversation) SwapLanguages() error {
	c.mu.Lock()
	if c.useTransliteration {
		c.publishLocked(notificationEvent(swapNotification))
		return ErrSwapInTransliteration
	}
	c.sourceLang, c.targetLang = c.targetLang, c.sourceLang
	c.publishLocked(c.stateEventLocked())
	return nil
}

// SetTransliterationMode toggles romanized output. Turning it on forces the
// sentinel target; turning it off moves a sentinel target back to a real
// language different from the source.
func (c *Conversation) SetTransliterationMode(enabled bool) {
	c.mu.Lock()
	c.useTransliteration = enabled
	c.reconcileTargetLocked()
	c.publishLocked(c.stateEventLocked())
}

func (c *Conversation) reconcileTargetLocked() {
	sentinel := language.TransliterationTarget().Value
	if c.useTransliteration {
		c.targetLang = sentinel
		return
	}
	if c.targetLang == sentinel {
		c.targetLang = language.FirstOtherThan(c.sourceLang)
	}
}

// SendMessage appends a user message, translates it and, on success,
// schedules the bot reply. It returns the settled user message. Translation
// failures settle the message with chat.ErrorText and are not returned.
func (c *Conversation) SendMessage(ctx context.Context, text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return chat.Message{}, ErrConversationClosed
	}

	source, target := c.sourceLang, c.targetLang
	transliterate := c.useTransliteration || language.RequiresTransliteration(target)
	finalTarget := target
	if c.useTransliteration {
		finalTarget = language.TransliterationTarget().Value
	}

	msg := chat.Message{
		ID:            c.ids.Next(),
		Sender:        chat.SenderUser,
		OriginalText:  text,
		SourceLang:    source,
		TargetLang:    finalTarget,
		Timestamp:     c.now(),
		IsTranslating: true,
	}
	c.store.append(msg)
	c.sending++
	c.work.Add(1)
	defer c.work.Done()
	c.publishLocked(messageEvent(chat.EventMessageAppended, msg), c.stateEventLocked())

	req := translate.Request{Text: text, SourceLanguage: source, TargetLanguage: finalTarget}
	callCtx := context.WithoutCancel(ctx)

	var (
		result string
		err    error
	)
	if transliterate {
		result, err = c.translator.Transliterate(callCtx, req)
	} else {
		result, err = c.translator.Translate(callCtx, req)
	}

	if err != nil {
		c.logger.Error("translation failed", "message", msg.ID, "transliterate", transliterate, "error", err)
		settled := c.settle(msg.ID, chat.ErrorText)
		c.notify(translationErrorNotification)
		c.finishSend()
		return settled, nil
	}

	settled := c.settle(msg.ID, result)
	c.finishSend()
	c.scheduleBotReply(msg.ID, result, target, source)
	return settled, nil
}

// settle patches id and notifies observers. It returns the stored message
// even when the patch was ignored.
func (c *Conversation) settle(id, translated string) chat.Message {
	c.mu.Lock()
	patched, ok := c.store.settle(id, translated)
	if !ok {
		patched, _ = c.store.get(id)
		c.mu.Unlock()
		return patched
	}
	c.publishLocked(messageEvent(chat.EventMessagePatched, patched))
	return patched
}

func (c *Conversation) finishSend() {
	c.mu.Lock()
	if c.sending > 0 {
		c.sending--
	}
	c.publishLocked(c.stateEventLocked())
}

// scheduleBotReply arms the delayed bot answer for userMessageID. The bot
// speaks in the user's target language and is translated back to the source.
func (c *Conversation) scheduleBotReply(userMessageID, text, botSource, botTarget string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	// The callback takes c.mu first, so registering under the lock cannot race it.
	c.botReplies[userMessageID] = c.scheduler.AfterFunc(c.botDelay, func() {
		c.replyAsBot(userMessageID, text, botSource, botTarget)
	})
}

func (c *Conversation) replyAsBot(userMessageID, text, botSource, botTarget string) {
	c.mu.Lock()
	delete(c.botReplies, userMessageID)
	if c.closed {
		c.mu.Unlock()
		return
	}

	bot := chat.Message{
		ID:            c.ids.Next(),
		Sender:        chat.SenderBot,
		OriginalText:  text,
		SourceLang:    botSource,
		TargetLang:    botTarget,
		Timestamp:     c.now(),
		IsTranslating: true,
	}
	c.store.append(bot)
	c.work.Add(1)
	defer c.work.Done()
	c.publishLocked(messageEvent(chat.EventMessageAppended, bot))

	result, err := c.translator.Translate(c.ctx, translate.Request{
		Text:           text,
		SourceLanguage: botSource,
		TargetLanguage: botTarget,
	})
	if err != nil {
		c.logger.Error("bot reply translation failed", "message", bot.ID, "reply_to", userMessageID, "error", err)
		c.settle(bot.ID, chat.ErrorText)
		c.notify(translationErrorNotification)
		return
	}

	c.settle(bot.ID, result)
}

// PendingBotReplies returns the number of armed bot replies.
func (c *Conversation) PendingBotReplies() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.botReplies)
}

// Close cancels pending bot replies and drops every observer. Translations
// already in flight still settle their messages, unobserved.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	for id, task := range c.botReplies {
		task.Stop()
		delete(c.botReplies, id)
	}
	c.mu.Unlock()

	c.observersMu.Lock()
	c.observers = make(map[int]func(chat.Event))
	c.observersMu.Unlock()

	c.logger.Info("conversation closed")
}

// Done is closed once the conversation has been closed.
func (c *Conversation) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until every translation started before Close has settled.
// Call it only after Close.
func (c *Conversation) Wait() {
	c.work.Wait()
}

// seed appends an already settled message.
func (c *Conversation) seed(msg chat.Message) {
	c.mu.Lock()
	c.store.append(msg)
	c.mu.Unlock()
}

func (c *Conversation) snapshotLocked() chat.State {
	return chat.State{
		ID:                   c.id,
		Messages:             c.store.list(),
		SourceLang:           c.sourceLang,
		TargetLang:           c.targetLang,
		UseTransliteration:   c.useTransliteration,
		IsSending:            c.sending > 0,
		AvailableTargetLangs: language.TargetOptions(c.sourceLang, c.useTransliteration),
	}
}

func (c *Conversation) notify(n chat.Notification) {
	c.mu.Lock()
	c.publishLocked(notificationEvent(n))
}

func (c *Conversation) stateEventLocked() chat.Event {
	state := c.snapshotLocked()
	return chat.Event{Type: chat.EventStateChanged, State: &state}
}

func messageEvent(eventType chat.EventType, msg chat.Message) chat.Event {
	return chat.Event{Type: eventType, Message: &msg}
}

func notificationEvent(n chat.Notification) chat.Event {
	return chat.Event{Type: chat.EventNotification, Notification: &n}
}

// publishLocked must be called with c.mu held and releases it. The delivery
// lock is taken first, so a later change cannot overtake these events.
func (c *Conversation) publishLocked(events ...chat.Event) {
	c.deliverMu.Lock()
	c.mu.Unlock()
	defer c.deliverMu.Unlock()

	c.observersMu.RLock()
	observers := make([]func(chat.Event), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.observersMu.RUnlock()

	for _, event := range events {
		event.ConversationID = c.id
		for _, fn := range observers {
			fn(event)
		}
	}
}
