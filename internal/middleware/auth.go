package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/lingualink/backend/internal/model/user"
	"github.com/zhouzirui/lingualink/backend/internal/service/auth"
	"github.com/zhouzirui/lingualink/backend/pkg/utils"
)

// Authenticator resolves bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.User, error)
}

// RequireUser rejects requests without a valid session token and stores the
// signed-in user in the request context. Browsers cannot set headers on
// EventSource and WebSocket requests, so the token may also arrive as ?token=.
func RequireUser(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := authn.Authenticate(r.Context(), Token(r))
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}
}

// Token extracts the session token from the Authorization header or the
// token query parameter.
func Token(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
