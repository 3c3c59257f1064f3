package blobstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
)

// MaxDownloadBytes ограничивает размер скачиваемого изображения.
const MaxDownloadBytes = 32 << 20

// Download скачивает файл по URL и определяет расширение по Content-Type или пути.
func Download(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read download body: %w", err)
	}
	if len(data) > MaxDownloadBytes {
		return nil, "", fmt.Errorf("download %s: file exceeds %d bytes", url, MaxDownloadBytes)
	}
	return data, extensionFor(resp.Header.Get("Content-Type"), url), nil
}

func extensionFor(contentType, url string) string {
	switch mt, _, _ := mime.ParseMediaType(contentType); mt {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "video/mp4":
		return "mp4"
	}
	clean, _, _ := strings.Cut(url, "?")
	if ext := strings.TrimPrefix(path.Ext(clean), "."); ext != "" && len(ext) <= 5 {
		return strings.ToLower(ext)
	}
	return "bin"
}
