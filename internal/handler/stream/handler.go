package stream

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lingualink/backend/internal/model/chat"
	authService "github.com/zhouzirui/lingualink/backend/internal/service/auth"
	chatService "github.com/zhouzirui/lingualink/backend/internal/service/chat"
	"github.com/zhouzirui/lingualink/backend/pkg/utils"
)

// Event names that are not conversation events.
const (
	EventClosed = "closed"
	EventLagged = "lagged"
)

// Handler pushes conversation events to browsers via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	heartbeat time.Duration
	buffer    int
}

// Option customises a Handler.
type Option func(*Handler)

// WithHeartbeat sets the keep-alive comment interval.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) { h.heartbeat = d }
}

// WithBuffer sets how many events may queue for a slow client before the
// stream is ended.
func WithBuffer(n int) Option {
	return func(h *Handler) { h.buffer = n }
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, opts ...Option) *Handler {
	h := &Handler{
		chatSvc:   chatSvc,
		heartbeat: 15 * time.Second,
		buffer:    64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the event stream route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/events", h.handleEvents)
}

// handleEvents streams a state snapshot followed by every conversation event
// until the client disconnects or the conversation is closed.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	u, ok := authService.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conv, err := h.chatSvc.GetConversation(r.Context(), u.ID, chi.URLParam(r, "conversationID"))
	if errors.Is(err, chatService.ErrConversationNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events := make(chan chat.Event, h.buffer)
	lagged := make(chan struct{})
	var lagOnce sync.Once
	unsubscribe := conv.Subscribe(func(event chat.Event) {
		select {
		case events <- event:
		default:
			lagOnce.Do(func() { close(lagged) })
		}
	})
	defer unsubscribe()

	logger := slog.With("component", "stream", "conversation", conv.ID(), "user", u.ID)
	logger.Info("event stream opened")
	defer logger.Info("event stream closed")

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	state := conv.Snapshot()
	snapshot := chat.Event{Type: chat.EventStateChanged, ConversationID: conv.ID(), State: &state}
	if err := utils.SendSSEEvent(w, flusher, string(snapshot.Type), snapshot); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-conv.Done():
			utils.SendSSEEvent(w, flusher, EventClosed, map[string]string{"conversationId": conv.ID()})
			return
		case <-lagged:
			logger.Warn("client too slow, ending stream", "buffer", h.buffer)
			utils.SendSSEEvent(w, flusher, EventLagged, map[string]string{"conversationId": conv.ID()})
			return
		case event := <-events:
			if err := utils.SendSSEEvent(w, flusher, string(event.Type), event); err != nil {
				logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
