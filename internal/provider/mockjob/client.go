// Package mockjob - провайдер задач без сети для разработки и тестов.
package mockjob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyreel/internal/jobs"
	"storyreel/internal/models"
)

const (
	DefaultDuration       = 30 * time.Second
	DefaultPlaceholderURL = "https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerBlazes.mp4"

	idPrefix = "mock-"
)

type Config struct {
	Duration       time.Duration
	PlaceholderURL string
}

// Client имитирует провайдера: задача завершается по прошествии Duration с момента создания.
// Время создания закодировано в id, поэтому опрос работает и после перезапуска процесса.
type Client struct {
	duration    time.Duration
	placeholder string
	logger      *zap.Logger
	now         func() time.Time
}

var _ jobs.Client = (*Client)(nil)

func New(cfg Config, logger *zap.Logger) *Client {
	c := &Client{
		duration:    cfg.Duration,
		placeholder: cfg.PlaceholderURL,
		logger:      logger.Named("MockJobClient"),
		now:         time.Now,
	}
	if c.duration <= 0 {
		c.duration = DefaultDuration
	}
	if c.placeholder == "" {
		c.placeholder = DefaultPlaceholderURL
	}
	return c
}

// WithClock подменяет источник времени.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

func (c *Client) Kind() models.ProviderKind { return models.ProviderMock }

func (c *Client) CreateTask(_ context.Context, in jobs.Input) (jobs.Status, error) {
	created := c.now()
	id := fmt.Sprintf("%s%d-%s", idPrefix, created.UnixMilli(), uuid.NewString()[:8])
	c.logger.Info("Mock task created", zap.String("job_id", id), zap.Int("prompt_length", len(in.Prompt)))
	return jobs.Status{JobID: id, State: jobs.StateInProgress, Progress: 0, UpdatedAt: created}, nil
}

func (c *Client) GetStatus(_ context.Context, jobID string) (jobs.Status, error) {
	created, err := createdAt(jobID)
	if err != nil {
		return jobs.Status{}, fmt.Errorf("mock job %s: %w", jobID, models.ErrNotFound)
	}
	now := c.now()
	elapsed := now.Sub(created)

	if elapsed >= c.duration {
		return jobs.Status{JobID: jobID, State: jobs.StateCompleted, Progress: 100, ResultURL: c.placeholder, UpdatedAt: now}, nil
	}
	progress := 0
	if elapsed > 0 {
		progress = int(elapsed * 100 / c.duration)
	}
	if progress > 99 {
		progress = 99
	}
	return jobs.Status{JobID: jobID, State: jobs.StateInProgress, Progress: progress, UpdatedAt: now}, nil
}

func createdAt(jobID string) (time.Time, error) {
	rest, ok := strings.CutPrefix(jobID, idPrefix)
	if !ok {
		return time.Time{}, fmt.Errorf("not a mock id")
	}
	millis, _, _ := strings.Cut(rest, "-")
	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
