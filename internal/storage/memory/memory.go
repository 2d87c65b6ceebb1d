// memory - потокобезопасная реализация storage.AccountStorage в памяти процесса.
// Используется драйвером "memory" (local/dev) и в тестах сервиса.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/storage"

	"github.com/google/uuid"
)

// Storage хранит учётные записи в map под одним мьютексом:
// проверка уникальности и вставка выполняются атомарно.
type Storage struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	now      func() time.Time
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		accounts: make(map[string]*models.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func clone(a *models.Account) *models.Account {
	out := *a
	return &out
}

// conflict проверяет занятость username/email другой записью. Вызывать под мьютексом.
func (s *Storage) conflict(exceptID, username, email string) bool {
	for id, a := range s.accounts {
		if id == exceptID {
			continue
		}
		if (username != "" && a.Username == username) || (email != "" && a.Email == email) {
			return true
		}
	}

	return false
}

// CreateAccount вставляет запись, если username и email свободны.
func (s *Storage) CreateAccount(_ context.Context, acc *models.Account) (*models.Account, error) {
	const op = "storage.memory.CreateAccount"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflict("", acc.Username, acc.Email) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	now := s.now()
	stored := clone(acc)
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.accounts[stored.ID] = stored

	return clone(stored), nil
}

// AccountByHandleOrEmail ищет по username ИЛИ email. При совпадении с двумя
// разными записями результат зависит от порядка обхода map.
func (s *Storage) AccountByHandleOrEmail(_ context.Context, username, email string) (*models.Account, error) {
	const op = "storage.memory.AccountByHandleOrEmail"

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if (username != "" && a.Username == username) || (email != "" && a.Email == email) {
			return clone(a), nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// AccountByID возвращает копию записи.
func (s *Storage) AccountByID(_ context.Context, id string) (*models.Account, error) {
	const op = "storage.memory.AccountByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return clone(a), nil
}

// SetRefreshToken перезаписывает refresh-токен.
func (s *Storage) SetRefreshToken(_ context.Context, id, token string) error {
	const op = "storage.memory.SetRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	a.RefreshToken = token
	a.UpdatedAt = s.now()

	return nil
}

// RotateRefreshToken заменяет токен, только если текущее значение равно presented.
func (s *Storage) RotateRefreshToken(_ context.Context, id, presented, next string) (bool, error) {
	const op = "storage.memory.RotateRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if presented == "" || a.RefreshToken != presented {
		return false, nil
	}

	a.RefreshToken = next
	a.UpdatedAt = s.now()

	return true, nil
}

// UpdatePassword сохраняет новый хэш пароля.
func (s *Storage) UpdatePassword(_ context.Context, id, passwordHash string) (*models.Account, error) {
	return s.update("storage.memory.UpdatePassword", id, func(a *models.Account) error {
		a.PasswordHash = passwordHash
		return nil
	})
}

// UpdateDetails меняет отображаемое имя и email.
func (s *Storage) UpdateDetails(_ context.Context, id, fullName, email string) (*models.Account, error) {
	return s.update("storage.memory.UpdateDetails", id, func(a *models.Account) error {
		if s.conflict(id, "", email) {
			return storage.ErrAlreadyExists
		}
		a.FullName = fullName
		a.Email = email
		return nil
	})
}

// UpdateAvatar сохраняет ссылку на аватар.
func (s *Storage) UpdateAvatar(_ context.Context, id, url string) (*models.Account, error) {
	return s.update("storage.memory.UpdateAvatar", id, func(a *models.Account) error {
		a.Avatar = url
		return nil
	})
}

// UpdateCoverImage сохраняет ссылку на обложку.
func (s *Storage) UpdateCoverImage(_ context.Context, id, url string) (*models.Account, error) {
	return s.update("storage.memory.UpdateCoverImage", id, func(a *models.Account) error {
		a.CoverImage = url
		return nil
	})
}

func (s *Storage) update(op, id string, apply func(a *models.Account) error) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if err := apply(a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.UpdatedAt = s.now()

	return clone(a), nil
}

// Close ничего не делает: ресурсов нет.
func (s *Storage) Close(_ context.Context) error { return nil }

var _ storage.AccountStorage = (*Storage)(nil)
