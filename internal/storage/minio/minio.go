// minio - основная реализация storage.ObjectStorage на MinIO (S3-совместимое API).
// New нормализует endpoint, настраивает Secure/creds и проверяет наличие бакета.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/OnkarJ/youtube-backend/internal/config"
	"github.com/OnkarJ/youtube-backend/internal/storage"
)

// ObjectStorage - адаптер MinIO для публикации медиафайлов.
type ObjectStorage struct {
	cfg    config.S3Config
	client *mclient.Client
}

// New создаёт клиент MinIO и выполняет fail-fast-проверку бакета.
func New(ctx context.Context, cfg config.S3Config) (*ObjectStorage, error) {
	const op = "storage/minio/New"

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.RootUser, cfg.RootPassword, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &ObjectStorage{cfg: cfg, client: client}, nil
}

// PutObject загружает локальный файл в бакет и возвращает публичный URL объекта.
func (s *ObjectStorage) PutObject(ctx context.Context, key, localPath, contentType string) (string, error) {
	const op = "storage/minio/PutObject"

	_, err := s.client.FPutObject(ctx, s.cfg.Bucket, key, localPath, mclient.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return storage.ObjectURL(s.cfg.PublicBaseURL, s.cfg.Endpoint, s.cfg.Bucket, key), nil
}

// RemoveObject удаляет объект из бакета.
func (s *ObjectStorage) RemoveObject(ctx context.Context, key string) error {
	const op = "storage/minio/RemoveObject"

	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.ObjectStorage = (*ObjectStorage)(nil)
