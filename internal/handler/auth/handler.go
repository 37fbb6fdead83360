package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lingualink/backend/internal/middleware"
	authService "github.com/zhouzirui/lingualink/backend/internal/service/auth"
	"github.com/zhouzirui/lingualink/backend/pkg/utils"
)

// SessionReaper discards per-user state when a session ends.
type SessionReaper interface {
	DiscardUser(ctx context.Context, userID string) int
}

// Handler 账号服务的HTTP处理器
type Handler struct {
	authSvc *authService.Service
	reaper  SessionReaper
}

// New 创建账号处理器
func New(authSvc *authService.Service, reaper SessionReaper) *Handler {
	return &Handler{authSvc: authSvc, reaper: reaper}
}

// RegisterRoutes 注册公开的账号路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.handleSignUp)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
}

// RegisterProtectedRoutes 注册需要登录的账号路由
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

// handleSignUp 注册并登录
func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var payload authService.SignUpRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.authSvc.SignUp(r.Context(), payload)
	if err != nil {
		respondAuthError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleLogin 登录
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.authSvc.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		respondAuthError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, session)
}

// handleLogout 注销并丢弃该用户的全部会话
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	u, ok := h.authSvc.Logout(r.Context(), middleware.Token(r))
	if ok && h.reaper != nil {
		h.reaper.DiscardUser(r.Context(), u.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe 返回当前用户
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := authService.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	utils.RespondJSON(w, http.StatusOK, u)
}

func respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authService.ErrInvalidInput):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, authService.ErrEmailTaken):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, authService.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, authService.ErrTooManyAttempts):
		w.Header().Set("Retry-After", "60")
		utils.RespondError(w, http.StatusTooManyRequests, err.Error())
	default:
		slog.ErrorContext(r.Context(), "auth request failed", "component", "auth", "path", r.URL.Path, "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
