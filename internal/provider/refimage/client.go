// Package refimage - клиент асинхронной генерации изображений по референсам.
package refimage

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"storyreel/internal/jobs"
	"storyreel/internal/models"
	"storyreel/internal/provider/taskapi"
)

const (
	createPath = "/api/v1/jobs/createTask"
	statusPath = "/api/v1/jobs/recordInfo"

	defaultModel = "google/nano-banana-edit"
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client реализует jobs.Client для провайдера референсных изображений.
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
		api:    taskapi.New(taskapi.Config{Provider: string(models.ProviderRefImage), BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Timeout: cfg.Timeout}, logger),
		model:  model,
		logger: logger.Named("RefImageClient"),
		now:    time.Now,
	}
}

func (c *Client) Kind() models.ProviderKind { return models.ProviderRefImage }

type createInput struct {
	Prompt       string   `json:"prompt"`
	ImageURLs    []string `json:"image_urls,omitempty"`
	OutputFormat string   `json:"output_format"`
	ImageSize    string   `json:"image_size,omitempty"`
}

type createRequest struct {
	Model string      `json:"model"`
	Input createInput `json:"input"`
}

// CreateTask создает задачу. Референсы берутся из ImageURLs, а при их отсутствии из ImageURL.
func (c *Client) CreateTask(ctx context.Context, in jobs.Input) (jobs.Status, error) {
	refs := in.ImageURLs
	if len(refs) == 0 && in.ImageURL != "" {
		refs = []string{in.ImageURL}
	}
	req := createRequest{
		Model: c.model,
		Input: createInput{Prompt: in.Prompt, ImageURLs: refs, OutputFormat: "png", ImageSize: in.Size},
	}
	if in.Model != "" {
		req.Model = in.Model
	}

	data, err := c.api.PostJSON(ctx, "create task", createPath, req)
	if err != nil {
		return jobs.Status{}, err
	}
	taskID := gjson.GetBytes(data, "taskId").String()
	if taskID == "" {
		return jobs.Status{}, &models.ProviderError{Provider: c.api.Provider(), Op: "create task", Message: "response has no task id"}
	}
	c.logger.Info("Reference image task created", zap.String("job_id", taskID), zap.Int("references", len(refs)))
	return jobs.Status{JobID: taskID, State: jobs.StateQueued, Progress: jobs.ProgressFor(jobs.StateQueued), UpdatedAt: c.now()}, nil
}

func (c *Client) GetStatus(ctx context.Context, jobID string) (jobs.Status, error) {
	data, err := c.api.GetJSON(ctx, "get status", statusPath, url.Values{"taskId": {jobID}})
	if err != nil {
		return jobs.Status{}, err
	}
	return c.parseStatus(jobID, data), nil
}

func (c *Client) parseStatus(jobID string, data []byte) jobs.Status {
	st := jobs.Status{JobID: jobID, UpdatedAt: c.now()}

	switch gjson.GetBytes(data, "state").String() {
	case "waiting", "queuing", "":
		st.State = jobs.StateQueued
	case "generating":
		st.State = jobs.StateInProgress
	case "success":
		st.ResultURL = c.resultURL(jobID, gjson.GetBytes(data, "resultJson").String())
		st.State = jobs.SuccessState(st.ResultURL)
	case "fail":
		st.State = jobs.StateFailed
		st.Error = gjson.GetBytes(data, "failMsg").String()
	default:
		st.State = jobs.StateInProgress
	}
	st.Progress = jobs.ProgressFor(st.State)
	return st
}

// resultURL разбирает строковое поле resultJson. Невалидный JSON означает, что результата пока нет.
func (c *Client) resultURL(jobID, raw string) string {
	if raw == "" {
		return ""
	}
	if !gjson.Valid(raw) {
		c.logger.Warn("Malformed resultJson in provider response", zap.String("job_id", jobID), zap.Int("length", len(raw)))
		return ""
	}
	return gjson.Get(raw, "resultUrls.0").String()
}
