package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/OnkarJ/youtube-backend/internal/media"
	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/pkg/log"
	"github.com/OnkarJ/youtube-backend/internal/service"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/apierrors"
)

// maxFieldBytes - лимит одного текстового поля multipart-формы.
const maxFieldBytes = 64 << 10

// upload - разобранная multipart-форма.
type upload struct {
	fields map[string]string
	files  models.Attachments
}

// field возвращает первое непустое значение среди перечисленных имён.
func (u *upload) field(names ...string) string {
	for _, n := range names {
		if v := u.fields[n]; v != "" {
			return v
		}
	}

	return ""
}

// readMultipart потоково читает форму: текстовые поля в память, файлы
// разрешённых ролей через Stager. По одному файлу на роль.
// При ошибке уже размещённые файлы удаляются.
func (h *Handlers) readMultipart(w http.ResponseWriter, r *http.Request, roles ...models.MediaRole) (*upload, error) {
	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apierrors.Invalid("multipart/form-data body is required")
	}

	up := &upload{fields: map[string]string{}, files: models.Attachments{}}

	fail := func(err error) (*upload, error) {
		h.stager.Discard(r.Context(), up.files.Files()...)
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return fail(err)
			}
			return fail(apierrors.Invalid("malformed multipart body"))
		}

		name := part.FormName()

		if part.FileName() == "" {
			if name == "" {
				_ = part.Close()
				continue
			}

			b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			_ = part.Close()
			if err != nil {
				return fail(bodyErr(err))
			}
			if len(b) > maxFieldBytes {
				return fail(apierrors.Invalid(fmt.Sprintf("form field %q is too large", name)))
			}

			up.fields[name] = string(b)
			continue
		}

		role := models.MediaRole(name)
		if !slices.Contains(roles, role) {
			_ = part.Close()
			return fail(apierrors.Invalid(fmt.Sprintf("unexpected file field %q", name)))
		}
		if up.files.Get(role) != nil {
			_ = part.Close()
			return fail(apierrors.Invalid(fmt.Sprintf("only one %s file is allowed", role)))
		}

		f, err := h.stager.Stage(role, part.FileName(), part.Header.Get("Content-Type"), part)
		_ = part.Close()
		if err != nil {
			if errors.Is(err, media.ErrEmptyFile) {
				return fail(apierrors.Invalid(fmt.Sprintf("%s file is empty", role)))
			}

			log.From(r.Context()).Warn("stage_upload_failed",
				slog.String("role", role.String()),
				slog.String("err", err.Error()))
			return fail(bodyErr(err))
		}

		up.files[role] = f
	}

	return up, nil
}

// bodyErr классифицирует ошибку чтения тела: превышение лимита - как есть (413),
// обрыв или битая разметка - ошибка клиента, прочее - внутренняя.
func bodyErr(err error) error {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return err
	case errors.Is(err, io.ErrUnexpectedEOF):
		return apierrors.Invalid("malformed multipart body")
	default:
		return fmt.Errorf("read multipart: %w: %w", service.ErrInternal, err)
	}
}
