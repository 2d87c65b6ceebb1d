// postgres - альтернативная реализация storage.AccountStorage на PostgreSQL (pgx).
// Схема накатывается встроенными goose-миграциями при подключении.
package postgres

import (
	"context"
	"fmt"

	"github.com/OnkarJ/youtube-backend/internal/storage"
	"github.com/OnkarJ/youtube-backend/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Storage - хранилище учётных записей поверх пула pgx.
type Storage struct {
	db *pgxpool.Pool
}

// New создаёт пул соединений, проверяет его и применяет миграции.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// migrate применяет встроенные миграции через database/sql-обёртку над пулом.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close(_ context.Context) error {
	s.db.Close()
	return nil
}

// Проверка на соответствие интерфейсу AccountStorage.
var _ storage.AccountStorage = (*Storage)(nil)
