// storage описывает контракты хранилищ accounts-service: учётные записи
// и объектное хранилище для опубликованных медиафайлов.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/OnkarJ/youtube-backend/internal/models"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists - нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
)

// AccountStorage выполняет операции над учётными записями.
// Все реализации обязаны обеспечивать уникальность username и email
// на уровне самого хранилища.
type AccountStorage interface {
	// CreateAccount атомарно вставляет запись, если username и email свободны.
	// ID, CreatedAt и UpdatedAt выставляет хранилище. Конфликт - ErrAlreadyExists.
	CreateAccount(ctx context.Context, acc *models.Account) (*models.Account, error)
	// AccountByHandleOrEmail ищет запись по username ИЛИ email; пустые значения игнорируются.
	// Если username и email принадлежат разным записям, возвращается любая из них.
	AccountByHandleOrEmail(ctx context.Context, username, email string) (*models.Account, error)
	// AccountByID возвращает полную запись (включая хэш пароля и refresh-токен).
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	// SetRefreshToken перезаписывает refresh-токен; пустая строка очищает его.
	SetRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken заменяет токен, только если сохранённое значение равно presented.
	// false без ошибки - значение уже было заменено или очищено.
	RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error)
	// UpdatePassword сохраняет новый хэш пароля.
	UpdatePassword(ctx context.Context, id, passwordHash string) (*models.Account, error)
	// UpdateDetails меняет отображаемое имя и email. Занятый email - ErrAlreadyExists.
	UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Account, error)
	// UpdateAvatar сохраняет ссылку на опубликованный аватар.
	UpdateAvatar(ctx context.Context, id, url string) (*models.Account, error)
	// UpdateCoverImage сохраняет ссылку на опубликованную обложку.
	UpdateCoverImage(ctx context.Context, id, url string) (*models.Account, error)
	// Close закрывает соединения/ресурсы хранилища.
	Close(ctx context.Context) error
}

// ObjectStorage - удалённое хранилище опубликованных файлов.
type ObjectStorage interface {
	// PutObject загружает локальный файл под ключом key и возвращает публичный URL.
	PutObject(ctx context.Context, key, localPath, contentType string) (string, error)
	// RemoveObject удаляет объект; отсутствие объекта не считается ошибкой.
	RemoveObject(ctx context.Context, key string) error
}

// ObjectURL собирает публичный URL объекта: publicBase/key, если публичная база
// задана, иначе endpoint/bucket/key (path-style).
func ObjectURL(publicBase, endpoint, bucket, key string) string {
	if base := strings.TrimRight(publicBase, "/"); base != "" {
		return base + "/" + key
	}

	return strings.TrimRight(endpoint, "/") + "/" + bucket + "/" + key
}
