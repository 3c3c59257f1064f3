// Package taskapi - общий HTTP-клиент для провайдеров, отвечающих конвертом {code, msg, data}.
package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyreel/internal/models"
)

// Envelope - стандартный ответ провайдера.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Config - параметры подключения к провайдеру.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// Client выполняет запросы и разворачивает конверт ответа.
type Client struct {
	provider   string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		provider:   cfg.Provider,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("provider", cfg.Provider)),
	}
}

// Provider возвращает имя провайдера для сообщений об ошибках.
func (c *Client) Provider() string { return c.provider }

// PostJSON отправляет body и возвращает поле data успешного ответа.
func (c *Client) PostJSON(ctx context.Context, op, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: marshal request: %w", c.provider, op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s %s: create request: %w", c.provider, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, op)
}

// GetJSON выполняет GET с query-параметрами и возвращает поле data.
func (c *Client) GetJSON(ctx context.Context, op, path string, query url.Values) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: create request: %w", c.provider, op, err)
	}
	return c.do(req, op)
}

func (c *Client) do(req *http.Request, op string) (json.RawMessage, error) {
	log := c.logger.With(zap.String("op", op), zap.String("url", req.URL.Path))
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Provider request failed", zap.Error(err))
		return nil, &models.ProviderError{Provider: c.provider, Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("Provider returned non-2xx status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", truncate(body, 512)),
		)
		return nil, &models.ProviderError{
			Provider:   c.provider,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    messageFrom(body, resp.Status),
		}
	}
	if readErr != nil {
		return nil, &models.ProviderError{Provider: c.provider, Op: op, StatusCode: resp.StatusCode, Message: "read body: " + readErr.Error()}
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Error("Failed to decode provider envelope", zap.Error(err))
		return nil, &models.ProviderError{Provider: c.provider, Op: op, StatusCode: resp.StatusCode, Message: "undecodable response body"}
	}
	if env.Code != http.StatusOK {
		log.Warn("Provider returned non-success code", zap.Int("code", env.Code), zap.String("msg", env.Msg))
		return nil, &models.ProviderError{Provider: c.provider, Op: op, StatusCode: resp.StatusCode, Code: env.Code, Message: env.Msg}
	}
	return env.Data, nil
}

// messageFrom извлекает msg из тела ошибки, если оно в формате конверта.
func messageFrom(body []byte, fallback string) string {
	var env Envelope
	if json.Unmarshal(body, &env) == nil && env.Msg != "" {
		return env.Msg
	}
	if s := strings.TrimSpace(string(truncate(body, 200))); s != "" {
		return s
	}
	return fallback
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
