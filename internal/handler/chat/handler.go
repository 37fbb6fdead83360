package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authService "github.com/zhouzirui/lingualink/backend/internal/service/auth"
	chatService "github.com/zhouzirui/lingualink/backend/internal/service/chat"
	"github.com/zhouzirui/lingualink/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由，调用方负责挂载鉴权中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations", h.handleCreateConversation)
	r.Get("/conversations", h.handleListConversations)

	r.Get("/conversations/{conversationID}", h.handleGetConversation)
	r.Delete("/conversations/{conversationID}", h.handleCloseConversation)
	r.Post("/conversations/{conversationID}/messages", h.handleSendMessage)
	r.Post("/conversations/{conversationID}/swap", h.handleSwapLanguages)
	r.Put("/conversations/{conversationID}/languages", h.handleSetLanguages)
	r.Put("/conversations/{conversationID}/transliteration", h.handleSetTransliteration)
}

// handleCreateConversation 创建会话
func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	u, ok := authService.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conv, err := h.chatSvc.CreateConversation(r.Context(), u)
	if err != nil {
		respondChatError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, conv.Snapshot())
}

// handleListConversations 列出当前用户的会话
func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	u, ok := authService.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.chatSvc.ListConversations(r.Context(), u.ID))
}

// handleGetConversation 返回会话快照
func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv.Snapshot())
}

// handleCloseConversation 关闭会话，取消未发出的机器人回复
func (h *Handler) handleCloseConversation(w http.ResponseWriter, r *http.Request) {
	u, ok := authService.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.chatSvc.CloseConversation(r.Context(), u.ID, chi.URLParam(r, "conversationID")); err != nil {
		respondChatError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage 发送消息并等待翻译完成
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := conv.SendMessage(r.Context(), payload.Text)
	if err != nil {
		respondChatError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, msg)
}

// handleSwapLanguages 交换源语言和目标语言
func (h *Handler) handleSwapLanguages(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	if err := conv.SwapLanguages(); err != nil {
		respondChatError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv.Snapshot())
}

// handleSetLanguages 更新源语言和/或目标语言
func (h *Handler) handleSetLanguages(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var payload struct {
		SourceLang *string `json:"sourceLang"`
		TargetLang *string `json:"targetLang"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SourceLang == nil && payload.TargetLang == nil {
		utils.RespondError(w, http.StatusBadRequest, "sourceLang or targetLang is required")
		return
	}

	if err := conv.SetLanguages(payload.SourceLang, payload.TargetLang); err != nil {
		respondChatError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, conv.Snapshot())
}

// handleSetTransliteration 切换罗马字转写模式
func (h *Handler) handleSetTransliteration(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var payload struct {
		Enabled *bool `json:"enabled"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil || payload.Enabled == nil {
		utils.RespondError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	conv.SetTransliterationMode(*payload.Enabled)
	utils.RespondJSON(w, http.StatusOK, conv.Snapshot())
}

// conversation resolves the {conversationID} of the signed-in user and
// writes the error response itself when it cannot.
func (h *Handler) conversation(w http.ResponseWriter, r *http.Request) (*chatService.Conversation, bool) {
	u, ok := authService.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}

	conv, err := h.chatSvc.GetConversation(r.Context(), u.ID, chi.URLParam(r, "conversationID"))
	if err != nil {
		respondChatError(w, r, err)
		return nil, false
	}
	return conv, true
}

// StatusFor maps chat service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrEmptyMessage), errors.Is(err, chatService.ErrUnknownLanguage):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrSwapInTransliteration), errors.Is(err, chatService.ErrConversationClosed):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrUserRequired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondChatError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "chat request failed", "component", "chat", "path", r.URL.Path, "error", err)
		utils.RespondError(w, status, "internal error")
		return
	}
	utils.RespondError(w, status, err.Error())
}
