package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/pkg/log"
	"github.com/OnkarJ/youtube-backend/internal/pkg/redact"
	"github.com/OnkarJ/youtube-backend/internal/security/password"
	"github.com/OnkarJ/youtube-backend/internal/storage"
)

// RegisterInput - данные регистрации. Attachments должен содержать аватар,
// обложка опциональна.
type RegisterInput struct {
	Username    string
	Email       string
	FullName    string
	Password    string
	Attachments models.Attachments
}

// Register создаёт учётную запись и возвращает её публичное представление.
// Токены не выпускаются: после регистрации клиент выполняет Login.
func (s *Service) Register(ctx context.Context, in RegisterInput) (acc *models.Account, err error) {
	const op = "service.accounts.Register"

	defer func() { s.metrics.AuthEvent("register", err) }()

	lg := log.From(ctx)

	if anyBlank(in.Username, in.Email, in.FullName, in.Password) {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "all fields are required"))
	}

	email, ok := normalizeEmail(in.Email)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "email is invalid"))
	}
	username := normalizeHandle(in.Username)

	_, err = s.storage.AccountByHandleOrEmail(ctx, username, email)
	switch {
	case err == nil:
		lg.Info("register_conflict", slog.String("email", redact.Email(email)))
		return nil, fmt.Errorf("%s: %w", op, newError(ErrConflict, "user with email or username already exists"))
	case !errors.Is(err, storage.ErrNotFound):
		lg.Error("register_lookup_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	avatarFile := in.Attachments.Get(models.RoleAvatar)
	if avatarFile == nil {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "avatar file is required"))
	}

	avatarURL, coverURL, err := s.publishProfileMedia(ctx, avatarFile, in.Attachments.Get(models.RoleCoverImage))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.removePublished(ctx, avatarURL, coverURL)
		if errors.Is(err, password.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "password is too long"))
		}

		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	// Запись не должна обрываться из-за отключившегося клиента.
	wctx := context.WithoutCancel(ctx)

	created, err := s.storage.CreateAccount(wctx, &models.Account{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
	})
	if err != nil {
		s.removePublished(ctx, avatarURL, coverURL)
		if errors.Is(err, storage.ErrAlreadyExists) {
			lg.Info("register_conflict_on_insert", slog.String("email", redact.Email(email)))
			return nil, fmt.Errorf("%s: %w", op, newError(ErrConflict, "user with email or username already exists"))
		}

		lg.Error("register_insert_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	stored, err := s.storage.AccountByID(wctx, created.ID)
	if err != nil {
		lg.Error("register_readback_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, newError(ErrInternal, "something went wrong while registering the user"))
	}

	lg.Info("account_registered", slog.String("account_id", stored.ID))

	return stored.Public(), nil
}

// publishProfileMedia публикует аватар и обложку параллельно.
// Ошибка аватара прерывает регистрацию, ошибка обложки только логируется.
func (s *Service) publishProfileMedia(ctx context.Context, avatar, cover *models.StagedFile) (string, string, error) {
	lg := log.From(ctx)
	pctx := context.WithoutCancel(ctx)

	var (
		avatarURL string
		coverURL  string
		g         errgroup.Group
	)

	g.Go(func() error {
		url, err := s.publisher.Publish(pctx, avatar)
		if err != nil {
			return newError(ErrUploadFailed, "avatar file upload failed")
		}
		avatarURL = url
		return nil
	})

	if cover != nil {
		g.Go(func() error {
			url, err := s.publisher.Publish(pctx, cover)
			if err != nil {
				lg.Warn("cover_image_publish_failed", slog.String("err", err.Error()))
				return nil
			}
			coverURL = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", "", err
	}

	if avatarURL == "" {
		return "", "", newError(ErrUploadFailed, "avatar file upload failed")
	}

	return avatarURL, coverURL, nil
}

// removePublished удаляет объекты, опубликованные для учётной записи,
// которая так и не была создана. Ошибки только логируются.
func (s *Service) removePublished(ctx context.Context, urls ...string) {
	rctx := context.WithoutCancel(ctx)

	for _, u := range urls {
		if u == "" {
			continue
		}

		if err := s.publisher.Remove(rctx, u); err != nil {
			log.From(ctx).Warn("published_media_remove_failed", slog.String("err", err.Error()))
		}
	}
}

// CurrentAccount возвращает учётную запись аутентифицированного пользователя.
func (s *Service) CurrentAccount(ctx context.Context, accountID string) (*models.Account, error) {
	const op = "service.accounts.CurrentAccount"

	acc, err := s.accountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc.Public(), nil
}

// AccountByID возвращает публичный профиль по идентификатору.
func (s *Service) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "service.accounts.AccountByID"

	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "user id is required"))
	}

	acc, err := s.accountByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc.Public(), nil
}

// UpdateAccountDetails меняет отображаемое имя и email.
func (s *Service) UpdateAccountDetails(ctx context.Context, accountID, fullName, email string) (*models.Account, error) {
	const op = "service.accounts.UpdateAccountDetails"

	if anyBlank(fullName, email) {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "all fields are required"))
	}

	norm, ok := normalizeEmail(email)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "email is invalid"))
	}

	acc, err := s.storage.UpdateDetails(context.WithoutCancel(ctx), accountID, strings.TrimSpace(fullName), norm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapStoreErr(err))
	}

	return acc.Public(), nil
}

// UpdateAvatar публикует новый аватар и сохраняет ссылку на него.
func (s *Service) UpdateAvatar(ctx context.Context, accountID string, f *models.StagedFile) (*models.Account, error) {
	const op = "service.accounts.UpdateAvatar"

	if f == nil {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "avatar file is missing"))
	}

	url, err := s.publisher.Publish(context.WithoutCancel(ctx), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrUploadFailed, "error while uploading avatar"))
	}

	acc, err := s.storage.UpdateAvatar(context.WithoutCancel(ctx), accountID, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapStoreErr(err))
	}

	return acc.Public(), nil
}

// UpdateCoverImage публикует новую обложку и сохраняет ссылку на неё.
func (s *Service) UpdateCoverImage(ctx context.Context, accountID string, f *models.StagedFile) (*models.Account, error) {
	const op = "service.accounts.UpdateCoverImage"

	if f == nil {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrValidation, "cover image file is missing"))
	}

	url, err := s.publisher.Publish(context.WithoutCancel(ctx), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, newError(ErrUploadFailed, "error while uploading cover image"))
	}

	acc, err := s.storage.UpdateCoverImage(context.WithoutCancel(ctx), accountID, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapStoreErr(err))
	}

	return acc.Public(), nil
}

// accountByID читает полную запись и переводит ошибки хранилища в ошибки сервиса.
func (s *Service) accountByID(ctx context.Context, id string) (*models.Account, error) {
	acc, err := s.storage.AccountByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	return acc, nil
}

// mapStoreErr переводит ошибки storage в сентинелы сервиса.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return newError(ErrNotFound, "user does not exist")
	case errors.Is(err, storage.ErrAlreadyExists):
		return newError(ErrConflict, "email is already in use")
	default:
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
}
