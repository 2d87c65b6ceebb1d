// redact маскирует персональные данные и секреты перед записью в лог.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен целиком.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	if r := []rune(local); len(r) > 2 {
		return string(r[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Identifier маскирует логин: e-mail редактируется как e-mail,
// имя пользователя сокращается до первой руны.
func Identifier(s string) string {
	if strings.Contains(s, "@") {
		return Email(s)
	}

	r := []rune(s)
	if len(r) == 0 {
		return "***"
	}

	return string(r[:1]) + "***"
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
