package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const accountColumns = `id, username, email, full_name, password_hash, avatar, cover_image,
	COALESCE(refresh_token, ''), created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		acc models.Account
		id  uuid.UUID
	)

	err := row.Scan(
		&id,
		&acc.Username,
		&acc.Email,
		&acc.FullName,
		&acc.PasswordHash,
		&acc.Avatar,
		&acc.CoverImage,
		&acc.RefreshToken,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	acc.ID = id.String()
	acc.CreatedAt = acc.CreatedAt.UTC()
	acc.UpdatedAt = acc.UpdatedAt.UTC()

	return &acc, nil
}

// mapErr переводит ошибки драйвера в ошибки storage.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return storage.ErrAlreadyExists
	}

	return err
}

// parseID трактует некорректный UUID как отсутствующую запись.
func parseID(id string) (uuid.UUID, bool) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	return uid, err == nil
}

// CreateAccount вставляет учётную запись; UNIQUE-нарушение - storage.ErrAlreadyExists.
func (s *Storage) CreateAccount(ctx context.Context, acc *models.Account) (*models.Account, error) {
	const op = "storage.postgres.CreateAccount"

	query := `
		INSERT INTO users(id, username, email, full_name, password_hash, avatar, cover_image, refresh_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING ` + accountColumns

	out, err := scanAccount(s.db.QueryRow(ctx, query,
		uuid.New(),
		acc.Username,
		acc.Email,
		acc.FullName,
		acc.PasswordHash,
		acc.Avatar,
		acc.CoverImage,
		acc.RefreshToken,
	))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}

	return out, nil
}

// AccountByHandleOrEmail ищет по username ИЛИ email; пустые значения не участвуют в поиске.
// При совпадении с двумя разными строками возвращается любая из них.
func (s *Storage) AccountByHandleOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	const op = "storage.postgres.AccountByHandleOrEmail"

	if username == "" && email == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	query := `
		SELECT ` + accountColumns + `
		FROM users
		WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		LIMIT 1
	`

	out, err := scanAccount(s.db.QueryRow(ctx, query, username, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}

	return out, nil
}

// AccountByID находит учётную запись по ID.
func (s *Storage) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.postgres.AccountByID"

	uid, ok := parseID(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`

	out, err := scanAccount(s.db.QueryRow(ctx, query, uid))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}

	return out, nil
}

// SetRefreshToken перезаписывает refresh-токен; пустая строка записывает NULL.
func (s *Storage) SetRefreshToken(ctx context.Context, id, token string) error {
	const op = "storage.postgres.SetRefreshToken"

	uid, ok := parseID(id)
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	query := `
		UPDATE users
		SET refresh_token = NULLIF($2, ''), updated_at = now()
		WHERE id = $1
	`

	tag, err := s.db.Exec(ctx, query, uid, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RotateRefreshToken - compare-and-swap одним UPDATE с условием на текущее значение.
func (s *Storage) RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error) {
	const op = "storage.postgres.RotateRefreshToken"

	uid, ok := parseID(id)
	if !ok {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if presented == "" {
		return false, nil
	}

	query := `
		UPDATE users
		SET refresh_token = $3, updated_at = now()
		WHERE id = $1 AND refresh_token = $2
	`

	tag, err := s.db.Exec(ctx, query, uid, presented, next)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdatePassword сохраняет новый хэш пароля.
func (s *Storage) UpdatePassword(ctx context.Context, id, passwordHash string) (*models.Account, error) {
	const op = "storage.postgres.UpdatePassword"

	out, err := s.updateOne(ctx, id, `password_hash = $2`, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// UpdateDetails меняет full_name и email.
func (s *Storage) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Account, error) {
	const op = "storage.postgres.UpdateDetails"

	out, err := s.updateOne(ctx, id, `full_name = $2, email = $3`, fullName, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// UpdateAvatar сохраняет ссылку на аватар.
func (s *Storage) UpdateAvatar(ctx context.Context, id, url string) (*models.Account, error) {
	const op = "storage.postgres.UpdateAvatar"

	out, err := s.updateOne(ctx, id, `avatar = $2`, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// UpdateCoverImage сохраняет ссылку на обложку.
func (s *Storage) UpdateCoverImage(ctx context.Context, id, url string) (*models.Account, error) {
	const op = "storage.postgres.UpdateCoverImage"

	out, err := s.updateOne(ctx, id, `cover_image = $2`, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// updateOne выполняет UPDATE ... RETURNING для одной строки.
// set - фрагмент SET с параметрами, начиная с $2.
func (s *Storage) updateOne(ctx context.Context, id, set string, args ...any) (*models.Account, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	query := `
		UPDATE users
		SET ` + set + `, updated_at = now()
		WHERE id = $1
		RETURNING ` + accountColumns

	out, err := scanAccount(s.db.QueryRow(ctx, query, append([]any{uid}, args...)...))
	if err != nil {
		return nil, mapErr(err)
	}

	return out, nil
}
