package handlers

import (
	"errors"
	"net/http"

	"github.com/OnkarJ/youtube-backend/internal/service"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/apierrors"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/middleware"
)

// Login - POST /login. Токены возвращаются в теле и в cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), service.LoginInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setTokenCookies(w, res.Tokens)
	writeSuccess(w, http.StatusOK, loginResponse{
		Account:      res.Account,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// Logout - POST /logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), middleware.AccountID(r.Context())); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearTokenCookies(w)
	writeSuccess(w, http.StatusOK, struct{}{}, "User logged out")
}

// RefreshToken - POST /refresh-token. Токен берётся из cookie refreshToken,
// иначе из JSON-поля refresh_token.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(CookieRefreshToken); err == nil {
		presented = c.Value
	}

	if presented == "" && r.Body != nil && r.Body != http.NoBody {
		var in refreshRequest
		if err := h.decodeStrict(w, r, &in); err != nil && !errors.Is(err, errEmptyBody) {
			apierrors.WriteError(w, r, err)
			return
		}
		presented = in.RefreshToken
	}

	pair, err := h.svc.RefreshAccessToken(r.Context(), presented)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeSuccess(w, http.StatusOK, tokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Access token refreshed")
}

// ChangePassword - POST /change-password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), middleware.AccountID(r.Context()), in.OldPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, struct{}{}, "Password changed successfully")
}
