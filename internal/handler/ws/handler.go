package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/lingualink/backend/internal/model/chat"
	authService "github.com/zhouzirui/lingualink/backend/internal/service/auth"
	chatService "github.com/zhouzirui/lingualink/backend/internal/service/chat"
	"github.com/zhouzirui/lingualink/backend/pkg/utils"
)

// Inbound message types.
const (
	TypeSend            = "send"
	TypeSwap            = "swap"
	TypeLanguages       = "languages"
	TypeTransliteration = "transliteration"
)

// Outbound message types.
const (
	TypeEvent = "event"
	TypeError = "error"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	eventBuffer  = 64
)

// Handler WebSocket会话处理器
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
	Data           any    `json:"data,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

type sendPayload struct {
	Text string `json:"text"`
}

type languagesPayload struct {
	SourceLang *string `json:"sourceLang"`
	TargetLang *string `json:"targetLang"`
}

type transliterationPayload struct {
	Enabled *bool `json:"enabled"`
}

// connection serialises writes to one socket. gorilla/websocket allows a
// single concurrent writer.
type connection struct {
	conn    *websocket.Conn
	conv    *chatService.Conversation
	logger  *slog.Logger
	writeMu sync.Mutex
	sends   sync.WaitGroup
}

func (c *connection) write(msgType string, data any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(outgoingMessage{
		Type:           msgType,
		ConversationID: c.conv.ID(),
		Data:           data,
		Timestamp:      time.Now().Unix(),
	})
}

func (c *connection) sendError(message string) {
	if err := c.write(TypeError, map[string]string{"message": message}); err != nil {
		c.logger.Debug("write error failed", "error", err)
	}
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *connection) closeWith(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.conn.Close()
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
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

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "component", "websocket", "error", err)
		return
	}
	defer ws.Close()

	c := &connection{
		conn:   ws,
		conv:   conv,
		logger: slog.With("component", "websocket", "conversation", conv.ID(), "user", u.ID),
	}
	c.logger.Info("websocket connected")
	defer c.logger.Info("websocket disconnected")
	defer c.sends.Wait()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan chat.Event, eventBuffer)
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

	state := conv.Snapshot()
	if err := c.write(TypeEvent, chat.Event{Type: chat.EventStateChanged, ConversationID: conv.ID(), State: &state}); err != nil {
		return
	}

	go c.pump(ctx, events, lagged)

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", "error", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))

		c.handleMessage(ctx, &msg)
	}
}

// pump forwards conversation events and keeps the connection alive.
func (c *connection) pump(ctx context.Context, events <-chan chat.Event, lagged <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.conv.Done():
			c.closeWith(websocket.CloseNormalClosure, "conversation closed")
			return
		case <-lagged:
			c.logger.Warn("client too slow, closing", "buffer", eventBuffer)
			c.closeWith(websocket.CloseTryAgainLater, "too slow")
			return
		case event := <-events:
			if err := c.write(TypeEvent, event); err != nil {
				c.logger.Debug("write event failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (c *connection) handleMessage(ctx context.Context, msg *inboundMessage) {
	switch msg.Type {
	case TypeSend:
		var payload sendPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("invalid send payload")
			return
		}
		// Sends are not serialised; each translation runs on its own.
		c.sends.Add(1)
		go func() {
			defer c.sends.Done()
			if _, err := c.conv.SendMessage(ctx, payload.Text); err != nil {
				c.sendError(err.Error())
			}
		}()

	case TypeSwap:
		if err := c.conv.SwapLanguages(); err != nil {
			c.sendError(err.Error())
		}

	case TypeLanguages:
		var payload languagesPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil || (payload.SourceLang == nil && payload.TargetLang == nil) {
			c.sendError("sourceLang or targetLang is required")
			return
		}
		if err := c.conv.SetLanguages(payload.SourceLang, payload.TargetLang); err != nil {
			c.sendError(err.Error())
		}

	case TypeTransliteration:
		var payload transliterationPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Enabled == nil {
			c.sendError("enabled is required")
			return
		}
		c.conv.SetTransliterationMode(*payload.Enabled)

	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}
