package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/OnkarJ/youtube-backend/internal/pkg/log"
	"github.com/OnkarJ/youtube-backend/internal/security/token"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/apierrors"
)

// CookieAccessToken - имя cookie с access-токеном.
const CookieAccessToken = "accessToken"

// TokenValidator проверяет access-токен.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, accessToken string) (*token.Claims, error)
}

type claimsKey struct{}

// Authenticate требует действительный access-токен из cookie accessToken
// или заголовка Authorization: Bearer. Claims кладутся в контекст.
func Authenticate(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.ValidateAccessToken(r.Context(), accessToken(r))
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = log.With(ctx, slog.String("account_id", claims.AccountID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom возвращает claims аутентифицированного запроса.
func ClaimsFrom(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*token.Claims)
	return c, ok && c != nil
}

// AccountID возвращает идентификатор аутентифицированной учётной записи.
func AccountID(ctx context.Context) string {
	if c, ok := ClaimsFrom(ctx); ok {
		return c.AccountID
	}

	return ""
}

// accessToken достаёт токен: сначала cookie, затем Bearer.
func accessToken(r *http.Request) string {
	if c, err := r.Cookie(CookieAccessToken); err == nil && c.Value != "" {
		return c.Value
	}

	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}

	return ""
}
