// Package blobstore хранит бинарные файлы проектов (изображения) по адресу содержимого.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// Store - хранилище blob-ов. Пути относительные: "<owner>/<sha256>.<ext>".
type Store interface {
	Put(ctx context.Context, owner string, data []byte, ext string) (string, error)
	Get(ctx context.Context, relPath string) ([]byte, error)
	DeleteOwner(ctx context.Context, owner string) error
	URL(relPath string) string
}

// ObjectPath строит относительный путь по хешу содержимого.
func ObjectPath(owner string, data []byte, ext string) (string, error) {
	if owner == "" || strings.ContainsAny(owner, `/\`) || owner == "." || owner == ".." {
		return "", fmt.Errorf("invalid blob owner %q", owner)
	}
	sum := sha256.Sum256(data)
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return path.Join(owner, hex.EncodeToString(sum[:])+"."+ext), nil
}

// cleanRelPath запрещает выход за пределы корня хранилища.
func cleanRelPath(rel string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(rel, `\`, "/"))[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid blob path %q", rel)
	}
	return clean, nil
}

func joinURL(base, rel string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
}
