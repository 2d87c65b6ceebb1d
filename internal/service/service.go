// service содержит бизнес-логику accounts-service: регистрацию, вход,
// ротацию токенов сессии, смену пароля и обновление профиля с медиафайлами.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования при потокобезопасном хранилище.
//   - Уникальность username/email обеспечивает хранилище; предварительная
//     проверка нужна только для понятного сообщения об ошибке.
//   - Ошибки классифицируются сентинелами ниже и маппятся транспортом
//     на HTTP-статусы; Error несёт безопасное для клиента сообщение.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/OnkarJ/youtube-backend/internal/metrics"
	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/security/token"
	"github.com/OnkarJ/youtube-backend/internal/storage"
)

var (
	// ErrValidation - входные данные не прошли проверку. Транспорт: HTTP 400.
	ErrValidation = errors.New("validation failed")

	// ErrConflict - username или email уже заняты. Транспорт: HTTP 409.
	ErrConflict = errors.New("already exists")

	// ErrNotFound - учётная запись не найдена. Транспорт: HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized - неверные учётные данные или недействительный токен.
	// Транспорт: HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUploadFailed - обязательный файл не удалось опубликовать. Транспорт: HTTP 502.
	ErrUploadFailed = errors.New("upload failed")

	// ErrInternal - нарушен инвариант или упало хранилище. Транспорт: HTTP 500.
	ErrInternal = errors.New("internal error")
)

// Error - классифицированная ошибка с сообщением, которое можно показать клиенту.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Hasher - хэширование и проверка паролей.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// Tokens - выпуск и проверка токенов сессии.
type Tokens interface {
	IssueAccess(c token.AccessClaims) (string, time.Time, error)
	IssueRefresh(accountID string) (string, time.Time, error)
	Verify(tokenStr string, kind token.Kind) (*token.Claims, error)
}

// Publisher - публикация временного файла в удалённое хранилище.
type Publisher interface {
	Publish(ctx context.Context, f *models.StagedFile) (string, error)
	Remove(ctx context.Context, publicURL string) error
}

// Service описывает бизнес-логику accounts-service.
type Service struct {
	storage   storage.AccountStorage
	hasher    Hasher
	tokens    Tokens
	publisher Publisher
	metrics   *metrics.Metrics // может быть nil
}

// New создаёт новый экземпляр Service.
func New(st storage.AccountStorage, hasher Hasher, tokens Tokens, publisher Publisher) *Service {
	return &Service{
		storage:   st,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
	}
}

// SetMetrics подключает прикладные метрики (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}
