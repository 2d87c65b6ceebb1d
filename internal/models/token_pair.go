package models

import "time"

// TokenPair - пара токенов, выдаваемая при входе и ротации.
//
// Описание:
//   - AccessToken - короткоживущий JWT для доступа к API;
//   - RefreshToken - долгоживущий JWT; действителен, только пока совпадает
//     со значением, сохранённым в учётной записи;
//   - AccessExpiresAt/RefreshExpiresAt - моменты истечения (UTC), нужны для cookie.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
