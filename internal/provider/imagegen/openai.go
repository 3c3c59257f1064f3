package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storyreel/internal/models"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	Quality string
	Style   string
	Timeout time.Duration
}

// OpenAI генерирует изображения через images API.
type OpenAI struct {
	client *openaigo.Client
	cfg    OpenAIConfig
	logger *zap.Logger
}

var _ Generator = (*OpenAI)(nil)

func NewOpenAI(cfg OpenAIConfig, logger *zap.Logger) *OpenAI {
	oc := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}
	if cfg.Model == "" {
		cfg.Model = openaigo.CreateImageModelDallE3
	}
	return &OpenAI{client: openaigo.NewClientWithConfig(oc), cfg: cfg, logger: logger.Named("OpenAIImage")}
}

func (g *OpenAI) Generate(ctx context.Context, req Request) (Result, error) {
	ir := openaigo.ImageRequest{
		Prompt:         req.Prompt,
		Model:          g.cfg.Model,
		N:              1,
		Size:           firstNonEmpty(req.Size, g.cfg.Size, openaigo.CreateImageSize1024x1024),
		Quality:        firstNonEmpty(req.Quality, g.cfg.Quality),
		Style:          firstNonEmpty(req.Style, g.cfg.Style),
		ResponseFormat: openaigo.CreateImageResponseFormatURL,
	}
	start := time.Now()
	resp, err := g.client.CreateImage(ctx, ir)
	if err != nil {
		g.logger.Error("Image generation failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		pe := &models.ProviderError{Provider: "openai", Op: "create image", Message: err.Error()}
		var apiErr *openaigo.APIError
		if errors.As(err, &apiErr) {
			pe.StatusCode = apiErr.HTTPStatusCode
			pe.Message = apiErr.Message
		}
		return Result{}, pe
	}
	if len(resp.Data) == 0 {
		return Result{}, fmt.Errorf("openai: %w: empty data", models.ErrInvalidProviderResponse)
	}
	g.logger.Info("Image generated", zap.Duration("duration", time.Since(start)))
	return checkResult("openai", Result{URL: resp.Data[0].URL, RevisedPrompt: resp.Data[0].RevisedPrompt})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
