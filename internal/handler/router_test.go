package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authService "github.com/zhouzirui/lingualink/backend/internal/service/auth"
	chatService "github.com/zhouzirui/lingualink/backend/internal/service/chat"
	"github.com/zhouzirui/lingualink/backend/internal/service/translate"
)

type passthrough struct{}

func (passthrough) Translate(_ context.Context, req translate.Request) (string, error) {
	return req.Text, nil
}

func (passthrough) Transliterate(_ context.Context, req translate.Request) (string, error) {
	return req.Text, nil
}

func newTestRouter(t *testing.T) (http.Handler, *chatService.Service) {
	t.Helper()

	store, err := authService.OpenStore(":memory:")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	authSvc := authService.NewService(store, authService.Config{Iterations: 1000})
	chatSvc, err := chatService.NewService(passthrough{}, chatService.Config{BotReplyDelay: time.Hour})
	if err != nil {
		t.Fatalf("chat NewService: %v", err)
	}
	return NewRouter(authSvc, chatSvc), chatSvc
}

func request(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestPublicRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	if resp := request(r, http.MethodGet, "/healthz", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", resp.Code)
	}
	if resp := request(r, http.MethodGet, "/api/languages", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("languages: expected 200, got %d", resp.Code)
	}
	if resp := request(r, http.MethodGet, "/api/conversations", "", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("conversations without token: expected 401, got %d", resp.Code)
	}
}

func TestLogoutDiscardsConversations(t *testing.T) {
	r, chatSvc := newTestRouter(t)

	resp := request(r, http.MethodPost, "/api/auth/signup", "",
		`{"name":"Kiran","mobile":"9123456780","email":"kiran@example.com","password":"hunter2"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var session authService.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	if resp := request(r, http.MethodPost, "/api/conversations", session.Token, ""); resp.Code != http.StatusCreated {
		t.Fatalf("create conversation: expected 201, got %d", resp.Code)
	}
	if got := len(chatSvc.ListConversations(context.Background(), session.User.ID)); got != 1 {
		t.Fatalf("expected 1 conversation, got %d", got)
	}

	if resp := request(r, http.MethodPost, "/api/auth/logout", session.Token, ""); resp.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.Code)
	}
	if got := len(chatSvc.ListConversations(context.Background(), session.User.ID)); got != 0 {
		t.Fatalf("expected conversations discarded, got %d", got)
	}
	if resp := request(r, http.MethodGet, "/api/conversations", session.Token, ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", resp.Code)
	}
}

func TestPreflightSkipsAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := request(r, http.MethodOptions, "/api/conversations", "", "")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}
