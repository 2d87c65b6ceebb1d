package handlers

import (
	"net/http"
	"time"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/middleware"
)

// Имена cookie с токенами сессии.
const (
	CookieAccessToken  = middleware.CookieAccessToken
	CookieRefreshToken = "refreshToken"
)

func (h *Handlers) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.opts.Cookie.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.opts.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// setTokenCookies выставляет cookie с токенами; срок жизни равен сроку токена.
func (h *Handlers) setTokenCookies(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, h.cookie(CookieAccessToken, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, h.cookie(CookieRefreshToken, pair.RefreshToken, pair.RefreshExpiresAt))
}

// clearTokenCookies удаляет cookie с токенами.
func (h *Handlers) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{CookieAccessToken, CookieRefreshToken} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}
