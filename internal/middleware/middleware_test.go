package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/lingualink/backend/internal/model/user"
	"github.com/zhouzirui/lingualink/backend/internal/service/auth"
)

type stubAuthenticator map[string]user.User

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (user.User, error) {
	u, ok := s[token]
	if !ok {
		return user.User{}, errors.New("unknown token")
	}
	return u, nil
}

func TestRequireUser(t *testing.T) {
	authn := stubAuthenticator{"good": {ID: "u1", DisplayName: "Asha"}}

	var seen user.User
	h := RequireUser(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{name: "missing", setup: func(*http.Request) {}, status: http.StatusUnauthorized},
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, status: http.StatusNoContent},
		{name: "query", setup: func(r *http.Request) { r.URL.RawQuery = "token=good" }, status: http.StatusNoContent},
		{name: "wrong scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, status: http.StatusUnauthorized},
		{name: "unknown", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, status: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = user.User{}
			req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.status == http.StatusNoContent && seen.ID != "u1" {
				t.Fatalf("expected user in context, got %+v", seen)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/api/languages", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if called {
		t.Fatalf("preflight must not reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing allow-origin header")
	}
}
