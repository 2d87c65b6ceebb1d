// handlers содержит REST-обработчики accounts-service.
// Обработчики разбирают запрос, вызывают сервис и пишут единый
// конверт успеха; ошибки уходят через apierrors.WriteError.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/OnkarJ/youtube-backend/internal/config"
	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/service"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/apierrors"
)

// DefaultJSONBodyLimit - лимит JSON-тела по умолчанию (16 KiB).
const DefaultJSONBodyLimit = 16 << 10

// errEmptyBody - тело запроса отсутствует.
var errEmptyBody = apierrors.Invalid("request body is required")

// Accounts - операции сервиса, которые вызывают обработчики.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.Account, error)
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, accountID string) error
	RefreshAccessToken(ctx context.Context, presented string) (models.TokenPair, error)
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
	CurrentAccount(ctx context.Context, accountID string) (*models.Account, error)
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	UpdateAccountDetails(ctx context.Context, accountID, fullName, email string) (*models.Account, error)
	UpdateAvatar(ctx context.Context, accountID string, f *models.StagedFile) (*models.Account, error)
	UpdateCoverImage(ctx context.Context, accountID string, f *models.StagedFile) (*models.Account, error)
}

// Stager - временное размещение входящих файлов.
type Stager interface {
	Stage(role models.MediaRole, originalName, contentType string, r io.Reader) (*models.StagedFile, error)
	Discard(ctx context.Context, files ...*models.StagedFile)
}

// Options - лимиты тел запросов и атрибуты cookie.
type Options struct {
	JSONBodyLimit  int64
	MaxUploadBytes int64
	Cookie         config.CookieConfig
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc    Accounts
	stager Stager
	opts   Options
}

// New создаёт Handlers. Нулевой лимит JSON заменяется DefaultJSONBodyLimit.
func New(svc Accounts, stager Stager, opts Options) *Handlers {
	if opts.JSONBodyLimit <= 0 {
		opts.JSONBodyLimit = DefaultJSONBodyLimit
	}

	return &Handlers{svc: svc, stager: stager, opts: opts}
}

// Response - конверт успешного ответа.
type Response struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Success    bool   `json:"success"`
}

// writeJSON - единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeSuccess оборачивает data в конверт успеха.
func writeSuccess(w http.ResponseWriter, status int, data any, msg string) {
	writeJSON(w, status, Response{
		StatusCode: status,
		Message:    msg,
		Data:       data,
		Success:    status < http.StatusBadRequest,
	})
}

// decodeStrict - строгий JSON-декодер с лимитом тела: неизвестные поля запрещены.
func (h *Handlers) decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.JSONBodyLimit)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}

		return apierrors.Invalid("invalid request body")
	}

	return nil
}
