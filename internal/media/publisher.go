package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/OnkarJ/youtube-backend/internal/metrics"
	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/pkg/log"
	"github.com/OnkarJ/youtube-backend/internal/storage"

	"github.com/google/uuid"
)

// DefaultPublishTimeout - верхняя граница одной загрузки, если не задана иная.
const DefaultPublishTimeout = 30 * time.Second

var (
	// ErrPublishFailed - удалённое хранилище не приняло файл.
	ErrPublishFailed = errors.New("media publish failed")
	// ErrNoFile - публиковать нечего.
	ErrNoFile = errors.New("no staged file")
	// ErrForeignURL - URL не указывает на объект, опубликованный Publisher.
	ErrForeignURL = errors.New("not a published media url")
)

// Publisher переносит временные файлы в объектное хранилище.
type Publisher struct {
	store   storage.ObjectStorage
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewPublisher создаёт Publisher. Неположительный timeout заменяется DefaultPublishTimeout.
// m может быть nil.
func NewPublisher(store storage.ObjectStorage, timeout time.Duration, m *metrics.Metrics) *Publisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}

	return &Publisher{store: store, timeout: timeout, metrics: m}
}

// objectKey строит ключ "<role>/<uuid><ext>".
func objectKey(f *models.StagedFile) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(f.OriginalName)))
	return path.Join(f.Role.String(), uuid.NewString()+ext)
}

// Publish загружает файл и возвращает его публичный URL. Локальный файл
// удаляется на любом пути выхода, включая ошибку и таймаут.
func (p *Publisher) Publish(ctx context.Context, f *models.StagedFile) (url string, err error) {
	const op = "media.Publish"

	if f == nil || f.Path == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoFile)
	}

	lg := log.From(ctx).With(slog.String("op", op), slog.String("role", f.Role.String()))

	defer func() {
		if rmErr := os.Remove(f.Path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			lg.Warn("staged_file_remove_failed", slog.String("err", rmErr.Error()))
		}
		p.metrics.MediaPublish(f.Role.String(), err)
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	key := objectKey(f)

	url, err = p.store.PutObject(ctx, key, f.Path, f.ContentType)
	if err != nil {
		lg.Error("media_publish_failed",
			slog.String("key", key),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w: %w", op, ErrPublishFailed, err)
	}

	lg.Debug("media_published", slog.String("key", key), slog.Int64("size", f.Size))

	return url, nil
}

// Remove удаляет ранее опубликованный объект по его публичному URL.
func (p *Publisher) Remove(ctx context.Context, publicURL string) error {
	const op = "media.Remove"

	key, err := keyFromURL(publicURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.store.RemoveObject(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Debug("media_removed", slog.String("op", op), slog.String("key", key))

	return nil
}

// keyFromURL восстанавливает ключ "<role>/<name>" из двух последних сегментов пути.
func keyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrForeignURL
	}

	name := path.Base(u.Path)
	role := models.MediaRole(path.Base(path.Dir(u.Path)))
	if strings.HasSuffix(u.Path, "/") || !role.Valid() || name == "." || name == "/" {
		return "", ErrForeignURL
	}

	return path.Join(role.String(), name), nil
}
