package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyreel/internal/blobstore"
	"storyreel/internal/models"
)

// ErrImageSaveFailed - ошибка при сохранении полученного изображения.
var ErrImageSaveFailed = errors.New("image save failed")

type SanaConfig struct {
	BaseURL           string
	Timeout           time.Duration
	Ratio             string
	PromptStyleSuffix string
}

// Sana вызывает локальный SANA сервер, который отдает байты изображения,
// и сохраняет их в blob-хранилище проекта.
type Sana struct {
	cfg    SanaConfig
	client *http.Client
	blobs  blobstore.Store
	logger *zap.Logger
}

var _ Generator = (*Sana)(nil)

func NewSana(cfg SanaConfig, blobs blobstore.Store, logger *zap.Logger) *Sana {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Sana{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		blobs:  blobs,
		logger: logger.Named("SanaImage"),
	}
}

// sanaAPIRequest - тело запроса к SANA API.
type sanaAPIRequest struct {
	Prompt string `json:"prompt"`
	Ratio  string `json:"ratio"`
}

func (g *Sana) Generate(ctx context.Context, req Request) (Result, error) {
	log := g.logger.With(zap.String("owner", req.Owner))
	fullPrompt := req.Prompt + g.cfg.PromptStyleSuffix
	ratio := g.cfg.Ratio
	if ratio == "" {
		ratio = "16:9"
	}

	imageData, err := g.callSanaAPI(ctx, fullPrompt, ratio)
	if err != nil {
		log.Error("SANA API call failed", zap.Error(err))
		return Result{}, err
	}
	if len(imageData) == 0 {
		return Result{}, fmt.Errorf("sana: %w: empty image data", models.ErrInvalidProviderResponse)
	}

	owner := req.Owner
	if owner == "" {
		owner = "shared"
	}
	rel, err := g.blobs.Put(ctx, owner, imageData, "jpg")
	if err != nil {
		log.Error("Failed to store image", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %v", ErrImageSaveFailed, err)
	}
	url := g.blobs.URL(rel)
	log.Info("Image stored", zap.String("path", rel), zap.Int("size_bytes", len(imageData)))
	return checkResult("sana", Result{URL: url})
}

func (g *Sana) callSanaAPI(ctx context.Context, prompt, ratio string) ([]byte, error) {
	body, err := json.Marshal(sanaAPIRequest{Prompt: prompt, Ratio: ratio})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	endpointURL := strings.TrimSuffix(g.cfg.BaseURL, "/") + "/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/*")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &models.ProviderError{Provider: "sana", Op: "generate", Message: err.Error()}
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &models.ProviderError{Provider: "sana", Op: "generate", StatusCode: resp.StatusCode, Message: string(bodyBytes)}
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body: %w", readErr)
	}
	return bodyBytes, nil
}
