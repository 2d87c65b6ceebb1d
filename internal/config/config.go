// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища учётных записей.
const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Бэкенды объектного хранилища медиа.
const (
	MediaMinio = "minio"
	MediaS3    = "s3"
)

// Config - корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
	Media    MediaConfig    `yaml:"media"`
	S3       S3Config       `yaml:"s3"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// TimeoutConfig - таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"15s"`
}

// HTTPConfig - сетевые настройки HTTP-сервера и лимит JSON-тела.
type HTTPConfig struct {
	Host          string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port          string `yaml:"port" env:"HTTP_PORT" env-default:"8000"`
	JSONBodyLimit int64  `yaml:"json_body_limit" env:"HTTP_JSON_BODY_LIMIT" env-default:"16384"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов и хэширования паролей.
// Секреты access и refresh обязаны различаться.
type AuthConfig struct {
	AccessTokenSecret  string        `yaml:"access_token_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenSecret string        `yaml:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"240h"`
	Issuer             string        `yaml:"issuer" env:"ISSUER" env-default:"accounts-service"`
	BcryptCost         int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// StorageConfig - выбор драйвера хранилища учётных записей.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
}

// MongoConfig - настройки подключения к MongoDB.
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGODB_URL" env-default:"mongodb://localhost:27017/videotube"`
}

// PostgresConfig - настройки подключения к PostgreSQL.
type PostgresConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// MediaConfig - приём и публикация пользовательских файлов.
type MediaConfig struct {
	Backend        string        `yaml:"backend" env:"MEDIA_BACKEND" env-default:"minio"`
	TempDir        string        `yaml:"temp_dir" env:"MEDIA_TEMP_DIR" env-default:"./public/temp"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"MEDIA_PUBLISH_TIMEOUT" env-default:"30s"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"MEDIA_MAX_UPLOAD_BYTES" env-default:"10485760"`
	// StagingMaxAge - возраст, после которого забытый временный файл удаляется janitor'ом.
	StagingMaxAge time.Duration `yaml:"staging_max_age" env:"MEDIA_STAGING_MAX_AGE" env-default:"1h"`
}

// S3Config - настройки S3-совместимого хранилища (MinIO или AWS S3).
type S3Config struct {
	Endpoint      string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://127.0.0.1:9000"`
	RootUser      string `yaml:"root_user" env:"S3_ROOT_USER"`
	RootPassword  string `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket        string `yaml:"bucket" env:"S3_BUCKET" env-default:"media"`
	Region        string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicBaseURL string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
}

// CookieConfig - атрибуты cookie с токенами.
// Secure со значением false задаётся только через COOKIE_SECURE: нулевое
// значение из YAML перекрывается дефолтом.
type CookieConfig struct {
	Secure bool   `yaml:"secure" env:"COOKIE_SECURE" env-default:"true"`
	Domain string `yaml:"domain" env:"COOKIE_DOMAIN"`
}

// MustLoad - обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла поверх накладываются ENV-переменные.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	var (
		out *Config
		err error
	)

	switch {
	case path != "":
		out, err = tryRead(path)
	case os.Getenv("CONFIG_PATH") != "":
		out, err = tryRead(os.Getenv("CONFIG_PATH"))
	default:
		if _, statErr := os.Stat("local.yaml"); statErr == nil {
			out, err = tryRead("local.yaml")
			break
		}

		if envErr := cleanenv.ReadEnv(&cfg); envErr != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", envErr)
		}
		out = &cfg
	}

	if err != nil {
		return nil, err
	}

	if err := out.validate(); err != nil {
		return nil, err
	}

	return out, nil
}

// validate проверяет согласованность значений, которую нельзя выразить тегами.
func (c *Config) validate() error {
	if c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		return fmt.Errorf("config: access and refresh token secrets must differ")
	}

	switch c.Storage.Driver {
	case StorageMongo, StorageMemory:
	case StoragePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("config: postgres.url is required for driver %q", StoragePostgres)
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Media.Backend {
	case MediaMinio, MediaS3:
	default:
		return fmt.Errorf("config: unknown media backend %q", c.Media.Backend)
	}

	if c.Media.PublishTimeout <= 0 {
		return fmt.Errorf("config: media.publish_timeout must be positive")
	}

	return nil
}
