// media реализует двухфазный приём пользовательских файлов:
// Stager кладёт файл во временный каталог, Publisher переносит его
// в объектное хранилище и всегда удаляет локальную копию.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/pkg/log"
)

var (
	// ErrInvalidRole - роль вложения вне допустимого набора.
	ErrInvalidRole = errors.New("invalid media role")
	// ErrEmptyFile - получен файл нулевой длины.
	ErrEmptyFile = errors.New("empty file")
)

// Stager размещает входящие файлы во временном каталоге.
type Stager struct {
	dir string
	now func() time.Time
}

// NewStager создаёт каталог (при необходимости) и возвращает Stager.
func NewStager(dir string) (*Stager, error) {
	const op = "media.NewStager"

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Stager{dir: abs, now: time.Now}, nil
}

// Dir возвращает абсолютный путь каталога временных файлов.
func (s *Stager) Dir() string { return s.dir }

// maxBaseNameBytes ограничивает клиентскую часть имени временного файла,
// чтобы вместе с суффиксом оно укладывалось в NAME_MAX файловой системы.
const maxBaseNameBytes = 128

// stagedName строит имя "<base>-<unix ms>-<0..1e9>".
func (s *Stager) stagedName(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	base = truncateName(base, maxBaseNameBytes)

	return base + "-" + strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + strconv.Itoa(rand.IntN(1e9))
}

// truncateName обрезает name до limit байт по границе UTF-8 символа.
func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}

	return name[:cut]
}

// Stage записывает содержимое r во временный файл. При ошибке записи
// частично записанный файл удаляется.
func (s *Stager) Stage(role models.MediaRole, originalName, contentType string, r io.Reader) (*models.StagedFile, error) {
	const op = "media.Stage"

	if !role.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	path := filepath.Join(s.dir, s.stagedName(originalName))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = ErrEmptyFile
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.StagedFile{
		Role:         role,
		OriginalName: originalName,
		Path:         path,
		ContentType:  contentType,
		Size:         n,
	}, nil
}

// Discard удаляет временные файлы, отсутствие файла не считается ошибкой.
func (s *Stager) Discard(ctx context.Context, files ...*models.StagedFile) {
	for _, f := range files {
		if f == nil || f.Path == "" {
			continue
		}

		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.From(ctx).Warn("staged_file_remove_failed",
				slog.String("role", f.Role.String()),
				slog.String("err", err.Error()),
			)
		}
	}
}

// Sweep удаляет из каталога файлы старше maxAge, оставшиеся после аварийных
// завершений. Возвращает число удалённых файлов.
func (s *Stager) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	const op = "media.Sweep"

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0

	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}

		if !e.Type().IsRegular() {
			continue
		}

		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}
