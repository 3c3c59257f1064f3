// Package storage хранит документы проектов по строковым ключам.
// Значения сериализуются в JSON на границе адаптера, поэтому все бэкенды взаимозаменяемы.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storyreel/internal/models"
)

// Adapter - хранилище ключ -> JSON-документ.
type Adapter interface {
	// Save полностью записывает значение до возврата.
	Save(ctx context.Context, key string, value any) error
	// Load декодирует документ в dst. Отсутствующий ключ - models.ErrNotFound.
	Load(ctx context.Context, key string, dst any) error
	// Delete идемпотентен.
	Delete(ctx context.Context, key string) error
	// List возвращает ключи с префиксом prefix (все ключи при пустом) в лексикографическом порядке.
	List(ctx context.Context, prefix string) ([]string, error)
	Clear(ctx context.Context) error
	Close() error
}

// ValidateKey проверяет ключ: непустые сегменты через "/", без "." и "..".
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("storage key: %w: empty", models.ErrInvalidInput)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `\`+"\x00") {
			return fmt.Errorf("storage key %q: %w", key, models.ErrInvalidInput)
		}
	}
	return nil
}

func encode(key string, value any) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return b, nil
}

func decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("document %s: %w", key, models.ErrNotFound)
}
