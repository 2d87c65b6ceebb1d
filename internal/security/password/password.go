// password хэширует и проверяет пароли через bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmptyPassword - пустой пароль не хэшируется.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrPasswordTooLong - bcrypt принимает не более 72 байт.
	ErrPasswordTooLong = errors.New("password is too long")
)

// Hasher - bcrypt-хэшер с фиксированной стоимостью.
// Безопасен для конкурентного использования.
type Hasher struct {
	cost int
}

// New создаёт Hasher. Стоимость вне [bcrypt.MinCost, bcrypt.MaxCost] прижимается
// к границе, нулевая означает bcrypt.DefaultCost.
func New(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}

	return &Hasher{cost: cost}
}

// Cost возвращает фактическую стоимость хэширования.
func (h *Hasher) Cost() int { return h.cost }

// Hash возвращает bcrypt-хэш пароля.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "security.password.Hash"

	if plain == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(hash), nil
}

// Verify сравнивает пароль с хэшем за постоянное время.
// Несовпадение и повреждённый хэш дают false.
func (h *Hasher) Verify(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
