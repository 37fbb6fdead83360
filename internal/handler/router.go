package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/zhouzirui/lingualink/backend/internal/handler/auth"
	"github.com/zhouzirui/lingualink/backend/internal/handler/chat"
	"github.com/zhouzirui/lingualink/backend/internal/handler/language"
	"github.com/zhouzirui/lingualink/backend/internal/handler/stream"
	"github.com/zhouzirui/lingualink/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/lingualink/backend/internal/middleware"
	authService "github.com/zhouzirui/lingualink/backend/internal/service/auth"
	chatService "github.com/zhouzirui/lingualink/backend/internal/service/chat"
	"github.com/zhouzirui/lingualink/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(authSvc *authService.Service, chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	languageHandler := language.New()
	accountHandler := authHandler.New(authSvc, chatSvc)
	chatHandler := chat.New(chatSvc)
	streamHandler := stream.New(chatSvc)
	wsHandler := ws.New(chatSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		languageHandler.RegisterRoutes(api)
		accountHandler.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.RequireUser(authSvc))

			accountHandler.RegisterProtectedRoutes(protected)
			chatHandler.RegisterRoutes(protected)
			streamHandler.RegisterRoutes(protected)
			wsHandler.RegisterRoutes(protected)
		})
	})

	return r
}
