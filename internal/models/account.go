// models содержит доменные сущности accounts-service.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import "time"

// Account - учётная запись пользователя.
//
// PasswordHash и RefreshToken никогда не сериализуются наружу (json:"-");
// для любых внешних ответов используется Public().
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"cover_image"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Public возвращает копию учётной записи без пароля и refresh-токена.
func (a *Account) Public() *Account {
	if a == nil {
		return nil
	}

	out := *a
	out.PasswordHash = ""
	out.RefreshToken = ""

	return &out
}
