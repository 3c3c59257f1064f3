package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	upsertDocumentQuery = `
        INSERT INTO documents (key, value)
        VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET
            value = EXCLUDED.value,
            updated_at = NOW()
    `
	getDocumentQuery    = `SELECT key, value, updated_at FROM documents WHERE key = $1`
	deleteDocumentQuery = `DELETE FROM documents WHERE key = $1`
	listDocumentsQuery  = `SELECT key FROM documents WHERE key LIKE $1 ESCAPE '\' ORDER BY key COLLATE "C"`
	clearDocumentsQuery = `DELETE FROM documents`
)

// document - строка таблицы documents.
type document struct {
	Key       string    `db:"key"`
	Value     []byte    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Postgres - индексированное хранилище: документы в jsonb, префиксные выборки по индексу.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ Adapter = (*Postgres)(nil)

// NewPostgres подключается, проверяет соединение и применяет миграции.
func NewPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is not configured")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := NewMigrator(pool, logger).Up(); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgresFromPool(pool, logger), nil
}

// NewPostgresFromPool использует готовый пул. Схема должна быть уже создана.
func NewPostgresFromPool(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger.Named("PostgresStorage")}
}

func (s *Postgres) Save(ctx context.Context, key string, value any) error {
	b, err := encode(key, value)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertDocumentQuery, key, b); err != nil {
		s.logger.Error("Error saving document", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to save document %s: %w", key, err)
	}
	return nil
}

func (s *Postgres) Load(ctx context.Context, key string, dst any) error {
	var doc document
	if err := pgxscan.Get(ctx, s.pool, &doc, getDocumentQuery, key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound(key)
		}
		s.logger.Error("Error loading document", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to load document %s: %w", key, err)
	}
	return decode(key, doc.Value, dst)
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteDocumentQuery, key); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	if err := pgxscan.Select(ctx, s.pool, &keys, listDocumentsQuery, likePrefix(prefix)); err != nil {
		return nil, fmt.Errorf("failed to list documents %q: %w", prefix, err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (s *Postgres) Clear(ctx context.Context) error {
	tag, err := s.pool.Exec(ctx, clearDocumentsQuery)
	if err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	s.logger.Info("Documents cleared", zap.Int64("rows", tag.RowsAffected()))
	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// likePrefix экранирует спецсимволы LIKE, чтобы префикс совпадал буквально.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
