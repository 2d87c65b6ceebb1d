// s3 - альтернативная реализация storage.ObjectStorage на aws-sdk-go-v2.
// Подходит для AWS S3 и любых S3-совместимых хранилищ (path-style адресация).
package s3

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OnkarJ/youtube-backend/internal/config"
	"github.com/OnkarJ/youtube-backend/internal/storage"
)

// client - подмножество *s3.Client, которым пользуется адаптер.
type client interface {
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, opts ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, opts ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// ObjectStorage - адаптер S3 для публикации медиафайлов.
type ObjectStorage struct {
	cfg    config.S3Config
	client client
}

// New собирает клиент со статическими ключами и собственным endpoint
// и проверяет доступность бакета.
func New(ctx context.Context, cfg config.S3Config) (*ObjectStorage, error) {
	const op = "storage/s3/New"

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser,
			cfg.RootPassword,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cli := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return newWithClient(ctx, cfg, cli)
}

func newWithClient(ctx context.Context, cfg config.S3Config, cli client) (*ObjectStorage, error) {
	const op = "storage/s3/New"

	if _, err := cli.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("%s: bucket %q is not accessible: %w", op, cfg.Bucket, err)
	}

	return &ObjectStorage{cfg: cfg, client: cli}, nil
}

// PutObject загружает локальный файл и возвращает публичный URL объекта.
func (s *ObjectStorage) PutObject(ctx context.Context, key, localPath, contentType string) (string, error) {
	const op = "storage/s3/PutObject"

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	in := &awss3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return storage.ObjectURL(s.cfg.PublicBaseURL, s.cfg.Endpoint, s.cfg.Bucket, key), nil
}

// RemoveObject удаляет объект. DeleteObject в S3 идемпотентен.
func (s *ObjectStorage) RemoveObject(ctx context.Context, key string) error {
	const op = "storage/s3/RemoveObject"

	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

var _ storage.ObjectStorage = (*ObjectStorage)(nil)
