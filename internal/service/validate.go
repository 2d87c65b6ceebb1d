package service

import (
	"net/mail"
	"strings"
)

// normalizeEmail обрезает пробелы, проверяет формат и приводит к нижнему регистру.
func normalizeEmail(raw string) (string, bool) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}

	return strings.ToLower(email), true
}

// normalizeHandle приводит username к каноничному виду: без пробелов по краям,
// в нижнем регистре.
func normalizeHandle(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// anyBlank сообщает, есть ли среди значений пустые после обрезки пробелов.
func anyBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}

	return false
}
