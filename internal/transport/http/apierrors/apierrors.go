// apierrors стандартизирует ответы об ошибках HTTP-слоя accounts-service.
// На вход он принимает ошибку сервиса (сентинелы service.Err*), а на выход даёт:
//   - стабильный HTTP-статус для вида ошибки;
//   - короткий машиночитаемый код;
//   - безопасное сообщение без утечки внутренних деталей.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/OnkarJ/youtube-backend/internal/service"
)

// StatusClientClosedRequest - нестандартный код "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError - единый формат ошибки для фронта.
// Code - короткий стабильный код, Message - безопасное описание,
// RequestID - из X-Request-Id для трассировки.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект ответа с ошибкой.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Invalid оборачивает ошибку разбора запроса в ErrValidation с сообщением msg.
func Invalid(msg string) error {
	return &service.Error{Kind: service.ErrValidation, Message: msg}
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - service.Error - статус по виду, сообщение из ошибки;
//   - голый сентинел сервиса - статус по виду, сообщение по умолчанию;
//   - превышение лимита тела - 413;
//   - отмена/таймаут контекста - 499/504;
//   - прочее - 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: APIError{
			Code:    "payload_too_large",
			Message: "request body is too large",
		}}
	}

	status, code, msg, ok := fromService(err)
	if !ok {
		switch {
		case errors.Is(err, context.Canceled):
			return StatusClientClosedRequest, ErrorResponse{Error: APIError{Code: "canceled", Message: "canceled"}}
		case errors.Is(err, context.DeadlineExceeded):
			return http.StatusGatewayTimeout, ErrorResponse{Error: APIError{Code: "deadline_exceeded", Message: "deadline exceeded"}}
		default:
			return internal()
		}
	}

	// Внутренние ошибки отдают только общее сообщение.
	var se *service.Error
	if code != "internal" && errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}

	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// WriteError пишет статус и тело ошибки, добавляя request_id из заголовка.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// fromService - маппинг сентинелов сервиса на HTTP-статус, код и сообщение по умолчанию.
func fromService(err error) (int, string, string, bool) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "invalid_argument", "invalid argument", true
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "already_exists", "already exists", true
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found", true
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated", true
	case errors.Is(err, service.ErrUploadFailed):
		return http.StatusBadGateway, "upload_failed", "upload failed", true
	case errors.Is(err, service.ErrInternal):
		return http.StatusInternalServerError, "internal", "internal error", true
	default:
		return 0, "", "", false
	}
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{Error: APIError{
		Code:    "internal",
		Message: "internal error",
	}}
}
