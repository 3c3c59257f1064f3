package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

const docExt = ".json"

// File пишет по одному JSON-файлу на ключ: "projects/abc" -> <root>/projects/abc.json.
type File struct {
	root   string
	logger *zap.Logger
}

var _ Adapter = (*File)(nil)

func NewFile(root string, logger *zap.Logger) (*File, error) {
	if root == "" {
		return nil, errors.New("file storage root is not configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &File{root: root, logger: logger.Named("FileStorage")}, nil
}

func (s *File) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key)+docExt)
}

// Save пишет во временный файл, делает fsync и переименовывает: документ либо старый, либо новый целиком.
func (s *File) Save(_ context.Context, key string, value any) error {
	b, err := encode(key, value)
	if err != nil {
		return err
	}
	full := s.path(key)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save %s: create dir: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, ".doc-*")
	if err != nil {
		return fmt.Errorf("save %s: create temp: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: write: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: sync: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: close: %w", key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("save %s: rename: %w", key, err)
	}
	s.logger.Debug("Document saved", zap.String("key", key), zap.Int("size_bytes", len(b)))
	return nil
}

func (s *File) Load(_ context.Context, key string, dst any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(key)
		}
		return fmt.Errorf("load %s: %w", key, err)
	}
	return decode(key, b, dst)
}

// Delete удаляет файл и пустые родительские каталоги до корня.
func (s *File) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	full := s.path(key)
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	s.prune(filepath.Dir(full))
	return nil
}

func (s *File) prune(dir string) {
	root := filepath.Clean(s.root)
	for dir != root && strings.HasPrefix(dir, root) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (s *File) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), docExt) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), docExt)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *File) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return fmt.Errorf("clear storage: %w", err)
		}
	}
	return nil
}

func (s *File) Close() error { return nil }
