package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/pkg/log"
	"github.com/OnkarJ/youtube-backend/internal/pkg/redact"
	"github.com/OnkarJ/youtube-backend/internal/security/password"
	"github.com/OnkarJ/youtube-backend/internal/security/token"
	"github.com/OnkarJ/youtube-backend/internal/storage"
)

// LoginInput - учётные данные для входа. Достаточно username или email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult - результат успешного входа.
type LoginResult struct {
	Account *models.Account
	Tokens  models.TokenPair
}

// Login проверяет пароль и открывает новую сессию.
// Новый refresh-токен перезаписывает сохранённый: у учётной записи
// одновременно активна одна сессия.
func (s *Service) Login(ctx context.Context, in LoginInput) (res *LoginResult, err error) {
	const op = "service.sessions.Login"

	defer func() { s.metrics.AuthEvent("login", err) }()

	lg := log.From(ctx)

	username := normalizeHandle(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" && email == "" {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "username or email is required"))
	}

	acc, err := s.storage.AccountByHandleOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_unknown_account",
				slog.String("username", redact.Identifier(username)),
				slog.String("email", redact.Email(email)))
			return nil, fmt.Errorf("%s: %w", op, newError(ErrNotFound, "user does not exist"))
		}

		lg.Error("login_lookup_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	if !s.hasher.Verify(in.Password, acc.PasswordHash) {
		lg.Info("login_bad_password", slog.String("account_id", acc.ID))
		return nil, fmt.Errorf("%s: %w", op, newError(ErrUnauthorized, "invalid user credentials"))
	}

	pair, err := s.issueTokenPair(acc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetRefreshToken(context.WithoutCancel(ctx), acc.ID, pair.RefreshToken); err != nil {
		lg.Error("login_store_refresh_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, mapStoreErr(err))
	}

	lg.Info("login_ok", slog.String("account_id", acc.ID))

	return &LoginResult{Account: acc.Public(), Tokens: pair}, nil
}

// Logout отзывает refresh-токен учётной записи. Повторный выход не ошибка.
func (s *Service) Logout(ctx context.Context, accountID string) (err error) {
	const op = "service.sessions.Logout"

	defer func() { s.metrics.AuthEvent("logout", err) }()

	err = s.storage.SetRefreshToken(context.WithoutCancel(ctx), accountID, "")
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.From(ctx).Error("logout_failed", slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	return nil
}

// RefreshAccessToken обменивает действующий refresh-токен на новую пару.
// Предъявленный токен одноразовый: замена выполняется сравнением-и-обменом,
// поэтому из двух конкурентных обменов одного токена успешен ровно один.
func (s *Service) RefreshAccessToken(ctx context.Context, presented string) (pair models.TokenPair, err error) {
	const op = "service.sessions.RefreshAccessToken"

	defer func() { s.metrics.AuthEvent("refresh", err) }()

	lg := log.From(ctx)

	if strings.TrimSpace(presented) == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, newError(ErrUnauthorized, "unauthorized request"))
	}

	claims, err := s.tokens.Verify(presented, token.KindRefresh)
	if err != nil {
		lg.Info("refresh_token_rejected",
			slog.String("token", redact.Token()),
			slog.String("reason", err.Error()))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, newError(ErrUnauthorized, "invalid or expired refresh token"))
	}

	acc, err := s.storage.AccountByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, newError(ErrUnauthorized, "invalid refresh token"))
		}

		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	if acc.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(acc.RefreshToken), []byte(presented)) != 1 {
		lg.Warn("refresh_token_reused", slog.String("account_id", acc.ID))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, newError(ErrUnauthorized, "refresh token is expired or used"))
	}

	pair, err = s.issueTokenPair(acc)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	swapped, err := s.storage.RotateRefreshToken(context.WithoutCancel(ctx), acc.ID, presented, pair.RefreshToken)
	if err != nil {
		lg.Error("refresh_rotate_failed", slog.String("op", op), slog.String("err", err.Error()))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, mapStoreErr(err))
	}
	if !swapped {
		lg.Warn("refresh_token_race_lost", slog.String("account_id", acc.ID))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, newError(ErrUnauthorized, "refresh token is expired or used"))
	}

	return pair, nil
}

// ChangePassword меняет пароль после проверки старого и отзывает
// сохранённый refresh-токен.
func (s *Service) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) (err error) {
	const op = "service.sessions.ChangePassword"

	defer func() { s.metrics.AuthEvent("change_password", err) }()

	if anyBlank(oldPassword, newPassword) {
		return fmt.Errorf("%s: %w", op, newError(ErrValidation, "old and new passwords are required"))
	}

	acc, err := s.accountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(oldPassword, acc.PasswordHash) {
		return fmt.Errorf("%s: %w", op, newError(ErrUnauthorized, "invalid old password"))
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return fmt.Errorf("%s: %w", op, newError(ErrValidation, "password is too long"))
		}

		return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	wctx := context.WithoutCancel(ctx)

	if _, err := s.storage.UpdatePassword(wctx, acc.ID, hash); err != nil {
		return fmt.Errorf("%s: %w", op, mapStoreErr(err))
	}

	if err := s.storage.SetRefreshToken(wctx, acc.ID, ""); err != nil {
		return fmt.Errorf("%s: %w", op, mapStoreErr(err))
	}

	log.From(ctx).Info("password_changed", slog.String("account_id", acc.ID))

	return nil
}

// ValidateAccessToken проверяет access-токен и возвращает его claims.
// Проверка не обращается к хранилищу.
func (s *Service) ValidateAccessToken(_ context.Context, accessToken string) (*token.Claims, error) {
	const op = "service.sessions.ValidateAccessToken"

	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrUnauthorized, "unauthorized request"))
	}

	claims, err := s.tokens.Verify(accessToken, token.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrUnauthorized, "invalid access token"))
	}

	return claims, nil
}

// issueTokenPair выпускает access и refresh токены для учётной записи.
func (s *Service) issueTokenPair(acc *models.Account) (models.TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(token.AccessClaims{
		AccountID: acc.ID,
		Username:  acc.Username,
		Email:     acc.Email,
		FullName:  acc.FullName,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: issue access token: %w", ErrInternal, err)
	}

	refresh, refreshExp, err := s.tokens.IssueRefresh(acc.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: issue refresh token: %w", ErrInternal, err)
	}

	return models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
