// Package videojob - клиент асинхронного провайдера генерации видео.
package videojob

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"storyreel/internal/jobs"
	"storyreel/internal/models"
	"storyreel/internal/provider/taskapi"
)

const (
	createPath = "/api/v1/video/generate"
	statusPath = "/api/v1/video/record-info"

	defaultModel    = "veo3_fast"
	defaultDuration = 8
)

// Значения successFlag в ответе record-info.
const (
	flagGenerating     = 0
	flagSuccess        = 1
	flagCreateFailed   = 2
	flagGenerateFailed = 3
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client реализует jobs.Client для видео-провайдера.
type Client struct {
	api    *taskapi.Client
	model  string
	logger *zap.Logger
	now    func() time.Time
}

var _ jobs.Client = (*Client)(nil)

func New(cfg Config, logger *zap.Logger) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		api:    taskapi.New(taskapi.Config{Provider: string(models.ProviderVideo), BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Timeout: cfg.Timeout}, logger),
		model:  model,
		logger: logger.Named("VideoJobClient"),
		now:    time.Now,
	}
}

func (c *Client) Kind() models.ProviderKind { return models.ProviderVideo }

type createRequest struct {
	Prompt      string   `json:"prompt"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
	Model       string   `json:"model"`
	Duration    int      `json:"duration"`
	EnableAudio bool     `json:"enableAudio"`
	AspectRatio string   `json:"aspectRatio,omitempty"`
}

// CreateTask отправляет задачу генерации видео.
func (c *Client) CreateTask(ctx context.Context, in jobs.Input) (jobs.Status, error) {
	req := createRequest{
		Prompt:      in.Prompt,
		Model:       c.model,
		Duration:    in.DurationSeconds,
		EnableAudio: in.Sound,
		AspectRatio: in.Size,
	}
	if in.Model != "" {
		req.Model = in.Model
	}
	if req.Duration <= 0 {
		req.Duration = defaultDuration
	}
	if in.ImageURL != "" {
		req.ImageURLs = []string{in.ImageURL}
	}

	data, err := c.api.PostJSON(ctx, "create task", createPath, req)
	if err != nil {
		return jobs.Status{}, err
	}
	taskID := gjson.GetBytes(data, "taskId").String()
	if taskID == "" {
		return jobs.Status{}, &models.ProviderError{Provider: c.api.Provider(), Op: "create task", Message: "response has no task id"}
	}
	c.logger.Info("Video task created", zap.String("job_id", taskID), zap.String("model", req.Model))
	return jobs.Status{JobID: taskID, State: jobs.StateQueued, Progress: jobs.ProgressFor(jobs.StateQueued), UpdatedAt: c.now()}, nil
}

// GetStatus опрашивает задачу один раз.
func (c *Client) GetStatus(ctx context.Context, jobID string) (jobs.Status, error) {
	data, err := c.api.GetJSON(ctx, "get status", statusPath, url.Values{"taskId": {jobID}})
	if err != nil {
		return jobs.Status{}, err
	}
	return parseStatus(jobID, data, c.now()), nil
}

func parseStatus(jobID string, data []byte, now time.Time) jobs.Status {
	st := jobs.Status{JobID: jobID, UpdatedAt: now}
	flag := gjson.GetBytes(data, "successFlag")

	switch {
	case !flag.Exists():
		st.State = jobs.StateQueued
	case flag.Int() == flagGenerating:
		st.State = jobs.StateInProgress
	case flag.Int() == flagSuccess:
		st.ResultURL = gjson.GetBytes(data, "response.resultUrls.0").String()
		st.State = jobs.SuccessState(st.ResultURL)
	case flag.Int() == flagCreateFailed, flag.Int() == flagGenerateFailed:
		st.State = jobs.StateFailed
		st.Error = strings.TrimSpace(gjson.GetBytes(data, "errorMessage").String())
	default:
		st.State = jobs.StateInProgress
	}
	st.Progress = jobs.ProgressFor(st.State)
	return st
}
