package language

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lingualink/backend/internal/model/language"
	"github.com/zhouzirui/lingualink/backend/pkg/utils"
)

// Handler 语言目录的HTTP处理器
type Handler struct{}

// New 创建语言处理器
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes 注册语言相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/languages", h.handleListLanguages)
}

type languagesResponse struct {
	Languages               []language.Language `json:"languages"`
	TransliterationTarget   language.Language   `json:"transliterationTarget"`
	TransliterationRequired []string            `json:"transliterationRequired"`
}

// handleListLanguages 列出可选语言
func (h *Handler) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	all := language.List()
	required := make([]string, 0, len(all))
	for _, lang := range all {
		if language.RequiresTransliteration(lang.Value) {
			required = append(required, lang.Value)
		}
	}

	utils.RespondJSON(w, http.StatusOK, languagesResponse{
		Languages:               all,
		TransliterationTarget:   language.TransliterationTarget(),
		TransliterationRequired: required,
	})
}
