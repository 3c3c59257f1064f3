package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"storyreel/internal/models"
)

// Local хранит blob-ы в каталоге на диске.
type Local struct {
	root          string
	publicBaseURL string
	logger        *zap.Logger
}

var _ Store = (*Local)(nil)

func NewLocal(root, publicBaseURL string, logger *zap.Logger) (*Local, error) {
	if root == "" {
		return nil, errors.New("blob root is not configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &Local{root: root, publicBaseURL: publicBaseURL, logger: logger.Named("LocalBlobStore")}, nil
}

// Root возвращает корневой каталог (для раздачи файлов по HTTP).
func (s *Local) Root() string { return s.root }

func (s *Local) Put(_ context.Context, owner string, data []byte, ext string) (string, error) {
	rel, err := ObjectPath(owner, data, ext)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if _, err := os.Stat(full); err == nil {
		// одинаковое содержимое уже сохранено
		return rel, nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".blob-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return "", fmt.Errorf("rename blob: %w", err)
	}
	s.logger.Debug("Blob stored", zap.String("path", rel), zap.Int("size_bytes", len(data)))
	return rel, nil
}

func (s *Local) Get(_ context.Context, relPath string) ([]byte, error) {
	rel, err := cleanRelPath(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", rel, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", rel, err)
	}
	return data, nil
}

// DeleteOwner удаляет все blob-ы владельца. Отсутствие каталога не ошибка.
func (s *Local) DeleteOwner(_ context.Context, owner string) error {
	rel, err := cleanRelPath(owner)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil {
		return fmt.Errorf("delete blobs of %s: %w", owner, err)
	}
	s.logger.Info("Owner blobs deleted", zap.String("owner", owner))
	return nil
}

func (s *Local) URL(relPath string) string {
	return joinURL(s.publicBaseURL, relPath)
}
