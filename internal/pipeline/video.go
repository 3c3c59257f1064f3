package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyreel/internal/jobs"
	"storyreel/internal/models"
)

// GenerateOptions - параметры отправки видео-задачи. Пустые поля берутся из настроек движка.
type GenerateOptions struct {
	Provider models.ProviderKind
	// Prompt - промпт вызывающего. Пусто - ComposePrompt.
	Prompt          string
	DurationSeconds int
	// Sound: nil - значение по умолчанию движка.
	Sound       *bool
	ImageURL    string
	AspectRatio string
}

// VideoEngine ведет VideoPipeline через одну асинхронную задачу.
type VideoEngine struct {
	registry *jobs.Registry
	defaults GenerateOptions
	wait     jobs.WaitOptions
	logger   *zap.Logger
	now      func() time.Time
}

func NewVideoEngine(registry *jobs.Registry, defaults GenerateOptions, wait jobs.WaitOptions, logger *zap.Logger) *VideoEngine {
	if defaults.Provider == "" {
		defaults.Provider = models.ProviderMock
	}
	return &VideoEngine{
		registry: registry,
		defaults: defaults,
		wait:     wait,
		logger:   logger.Named("VideoEngine"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Initialize снимает миниатюры со всех готовых слотов. Без готовых слотов - ErrInvalidState.
func (e *VideoEngine) Initialize(sp *models.ScenePipeline, title string) (*models.VideoPipeline, error) {
	completed := sp.CompletedSlots()
	if len(completed) == 0 {
		return nil, fmt.Errorf("initialize video pipeline: %w: no completed scene images", models.ErrInvalidState)
	}
	thumbs := make([]models.VideoSceneThumbnail, 0, len(completed))
	for _, s := range completed {
		number := s.SourceScene.Number
		if s.Manual() || number == 0 {
			number = sp.IndexOf(s.ID) + 1
		}
		thumbs = append(thumbs, models.VideoSceneThumbnail{
			ID:          s.ID,
			SceneNumber: number,
			ImageURL:    s.GeneratedImage.URL,
			Description: s.Description(),
		})
	}
	now := e.now()
	return &models.VideoPipeline{
		Status:          models.VideoIdle,
		SceneThumbnails: thumbs,
		Title:           title,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ComposePrompt: строка заголовка (если есть) и по строке "Scene N: description" на миниатюру.
func (e *VideoEngine) ComposePrompt(vp *models.VideoPipeline) string {
	var lines []string
	if t := strings.TrimSpace(vp.Title); t != "" {
		lines = append(lines, t)
	}
	for _, th := range vp.SceneThumbnails {
		lines = append(lines, fmt.Sprintf("Scene %d: %s", th.SceneNumber, strings.TrimSpace(th.Description)))
	}
	return strings.Join(lines, "\n")
}

func (e *VideoEngine) touch(vp *models.VideoPipeline) {
	vp.UpdatedAt = e.now()
}

// Generate отправляет задачу. Пока предыдущая задача не завершена, новая не создается.
// Ошибка отправки переводит пайплайн в failed и возвращается вызывающему.
func (e *VideoEngine) Generate(ctx context.Context, vp *models.VideoPipeline, opts GenerateOptions) error {
	if vp == nil {
		return fmt.Errorf("generate video: %w: video pipeline not initialized", models.ErrInvalidState)
	}
	if vp.Status == models.VideoGenerating && vp.CurrentJobID != "" {
		return fmt.Errorf("generate video: %w: job %s is still running", models.ErrInvalidState, vp.CurrentJobID)
	}
	opts = e.merge(opts)
	if opts.ImageURL == "" && len(vp.SceneThumbnails) > 0 {
		opts.ImageURL = vp.SceneThumbnails[0].ImageURL
	}

	vp.Status = models.VideoGenerating
	vp.Progress = 0
	vp.Error = ""
	vp.ResultVideo = nil
	vp.CurrentJobID = ""
	vp.Provider = opts.Provider
	vp.ComposedPrompt = strings.TrimSpace(opts.Prompt)
	if vp.ComposedPrompt == "" {
		vp.ComposedPrompt = e.ComposePrompt(vp)
	}
	e.touch(vp)

	st, err := e.registry.Submit(ctx, opts.Provider, jobs.Input{
		Prompt:          vp.ComposedPrompt,
		ImageURL:        opts.ImageURL,
		DurationSeconds: opts.DurationSeconds,
		Sound:           opts.Sound != nil && *opts.Sound,
		Size:            opts.AspectRatio,
	})
	if err != nil {
		vp.Status = models.VideoFailed
		vp.Error = err.Error()
		e.touch(vp)
		e.logger.Error("Video job submission failed", zap.String("provider", string(opts.Provider)), zap.Error(err))
		return fmt.Errorf("generate video: %w", err)
	}

	vp.CurrentJobID = st.JobID
	vp.Progress = st.Progress
	e.touch(vp)
	e.logger.Info("Video job submitted", zap.String("job_id", st.JobID), zap.String("provider", string(opts.Provider)))
	return nil
}

func (e *VideoEngine) merge(opts GenerateOptions) GenerateOptions {
	if opts.Provider == "" {
		opts.Provider = e.defaults.Provider
	}
	if opts.DurationSeconds <= 0 {
		opts.DurationSeconds = e.defaults.DurationSeconds
	}
	if opts.Sound == nil {
		opts.Sound = e.defaults.Sound
	}
	if opts.AspectRatio == "" {
		opts.AspectRatio = e.defaults.AspectRatio
	}
	return opts
}

func (e *VideoEngine) apply(vp *models.VideoPipeline, st jobs.Status) {
	vp.Progress = st.Progress
	switch st.State {
	case jobs.StateCompleted:
		vp.Status = models.VideoCompleted
		vp.Progress = 100
		vp.Error = ""
		vp.ResultVideo = &models.VideoResult{URL: st.ResultURL, JobID: st.JobID, CompletedAt: e.now()}
	case jobs.StateFailed:
		vp.Status = models.VideoFailed
		vp.Error = st.Error
		if vp.Error == "" {
			vp.Error = "video generation failed"
		}
	}
	e.touch(vp)
}

func (e *VideoEngine) requireJob(vp *models.VideoPipeline, op string) error {
	if vp == nil {
		return fmt.Errorf("%s: %w: video pipeline not initialized", op, models.ErrInvalidState)
	}
	if vp.CurrentJobID == "" {
		return fmt.Errorf("%s: %w: no video job submitted", op, models.ErrInvalidState)
	}
	return nil
}

// CheckStatus выполняет один опрос и переносит результат в пайплайн.
func (e *VideoEngine) CheckStatus(ctx context.Context, vp *models.VideoPipeline) (jobs.Status, error) {
	if err := e.requireJob(vp, "check video status"); err != nil {
		return jobs.Status{}, err
	}
	st, err := e.registry.Poll(ctx, vp.Provider, vp.CurrentJobID)
	if err != nil {
		return jobs.Status{}, fmt.Errorf("check video status %s: %w", vp.CurrentJobID, err)
	}
	e.apply(vp, st)
	return st, nil
}

// WaitForCompletion ждет терминального состояния задачи. При таймауте или отмене
// пайплайн остается в generating, чтобы задачу можно было проверить позже.
// Уже завершенный пайплайн возвращается сразу; для failed - сохраненная ошибка.
func (e *VideoEngine) WaitForCompletion(ctx context.Context, vp *models.VideoPipeline, opts jobs.WaitOptions) error {
	if err := e.requireJob(vp, "wait for video"); err != nil {
		return err
	}
	switch vp.Status {
	case models.VideoGenerating:
	case models.VideoCompleted:
		return nil
	case models.VideoFailed:
		return fmt.Errorf("wait for video %s: %w: %s", vp.CurrentJobID, models.ErrGenerationFailed, vp.Error)
	default:
		return fmt.Errorf("wait for video %s: %w: status %s", vp.CurrentJobID, models.ErrInvalidState, vp.Status)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = e.wait.PollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = e.wait.Timeout
	}
	if opts.Clock == nil {
		opts.Clock = e.wait.Clock
	}
	onProgress := opts.OnProgress
	opts.OnProgress = func(st jobs.Status) {
		if !st.State.Terminal() {
			vp.Progress = st.Progress
			e.touch(vp)
		}
		if onProgress != nil {
			onProgress(st)
		}
	}

	st, err := e.registry.Wait(ctx, vp.Provider, vp.CurrentJobID, opts)
	switch {
	case err == nil:
		e.apply(vp, st)
		e.logger.Info("Video completed", zap.String("job_id", vp.CurrentJobID), zap.String("url", st.ResultURL))
		return nil
	case errors.Is(err, models.ErrGenerationFailed):
		e.apply(vp, st)
		return err
	default:
		e.logger.Warn("Video wait interrupted", zap.String("job_id", vp.CurrentJobID), zap.Error(err))
		return err
	}
}

// Reset возвращает пайплайн в idle. Миниатюры сохраняются.
func (e *VideoEngine) Reset(vp *models.VideoPipeline) error {
	if vp == nil {
		return fmt.Errorf("reset video: %w: video pipeline not initialized", models.ErrInvalidState)
	}
	vp.Status = models.VideoIdle
	vp.CurrentJobID = ""
	vp.Provider = ""
	vp.ResultVideo = nil
	vp.Error = ""
	vp.Progress = 0
	vp.ComposedPrompt = ""
	e.touch(vp)
	return nil
}
