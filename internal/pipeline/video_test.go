package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"storyreel/internal/jobs"
	"storyreel/internal/mocks"
	"storyreel/internal/models"
	"storyreel/internal/pipeline"
	"storyreel/internal/provider/imagegen"
	"storyreel/internal/provider/mockjob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stepClock - общие часы для mock-провайдера и ожидания: After сдвигает время мгновенно.
type stepClock struct {
	now    time.Time
	sleeps int
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.sleeps++
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func newVideoEngine(t *testing.T, clock *stepClock) (*pipeline.VideoEngine, *jobs.Registry) {
	t.Helper()
	registry := jobs.NewRegistry(zap.NewNop())
	registry.Register(mockjob.New(mockjob.Config{Duration: 30 * time.Second}, zap.NewNop()).WithClock(clock.Now))
	engine := pipeline.NewVideoEngine(registry, pipeline.GenerateOptions{DurationSeconds: 5},
		jobs.WaitOptions{PollInterval: 5 * time.Second, Timeout: time.Minute, Clock: clock}, zap.NewNop())
	return engine, registry
}

func completedPipeline(t *testing.T) *models.ScenePipeline {
	t.Helper()
	images := mocks.NewMockImageGenerator(t)
	scenes := pipeline.NewSceneEngine(images, zap.NewNop())
	sp, err := scenes.Initialize(threeSceneStory(), 0)
	require.NoError(t, err)

	images.On("Generate", mock.Anything, mock.Anything).Return(imagegen.Result{URL: "https://img/scene2.png"}, nil).Once()
	require.NoError(t, scenes.GenerateSlot(context.Background(), sp, projectWithCharacters(), sp.Slots[1].ID, "proj-1"))
	return sp
}

func TestVideoInitialize_RequiresCompletedSlots(t *testing.T) {
	engine, _ := newVideoEngine(t, &stepClock{now: time.Unix(1_700_000_000, 0)})
	sp, err := pipeline.NewSceneEngine(mocks.NewMockImageGenerator(t), zap.NewNop()).Initialize(threeSceneStory(), 0)
	require.NoError(t, err)

	_, err = engine.Initialize(sp, "Lantern")
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestVideoInitialize_ThumbnailPerCompletedSlot(t *testing.T) {
	engine, _ := newVideoEngine(t, &stepClock{now: time.Unix(1_700_000_000, 0)})
	sp := completedPipeline(t)

	vp, err := engine.Initialize(sp, "Lantern")

	require.NoError(t, err)
	assert.Equal(t, models.VideoIdle, vp.Status)
	require.Len(t, vp.SceneThumbnails, 1)
	assert.Equal(t, 2, vp.SceneThumbnails[0].SceneNumber)
	assert.Equal(t, "https://img/scene2.png", vp.SceneThumbnails[0].ImageURL)
	assert.Equal(t, "Lantern\nScene 2: A lantern is lit.", engine.ComposePrompt(vp))
}

func TestVideoGenerate_WaitsForMockCompletion(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	engine, registry := newVideoEngine(t, clock)
	vp, err := engine.Initialize(completedPipeline(t), "Lantern")
	require.NoError(t, err)

	require.NoError(t, engine.Generate(context.Background(), vp, pipeline.GenerateOptions{}))
	assert.Equal(t, models.VideoGenerating, vp.Status)
	assert.Equal(t, models.ProviderMock, vp.Provider)
	require.NotEmpty(t, vp.CurrentJobID)

	err = engine.Generate(context.Background(), vp, pipeline.GenerateOptions{})
	assert.True(t, errors.Is(err, models.ErrInvalidState))

	clock.now = clock.now.Add(15 * time.Second)
	st, err := engine.CheckStatus(context.Background(), vp)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateInProgress, st.State)
	assert.Equal(t, 50, vp.Progress)

	var progress []int
	err = engine.WaitForCompletion(context.Background(), vp, jobs.WaitOptions{
		OnProgress: func(st jobs.Status) { progress = append(progress, st.Progress) },
	})
	require.NoError(t, err)
	assert.Equal(t, models.VideoCompleted, vp.Status)
	assert.Equal(t, 100, vp.Progress)
	require.NotNil(t, vp.ResultVideo)
	assert.Equal(t, mockjob.DefaultPlaceholderURL, vp.ResultVideo.URL)
	assert.Equal(t, vp.CurrentJobID, vp.ResultVideo.JobID)
	assert.Equal(t, []int{50, 66, 83, 100}, progress)

	rec, err := registry.Get(vp.CurrentJobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateCompleted, rec.Status.State)
}

func TestVideoWait_TimeoutKeepsGenerating(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	registry := jobs.NewRegistry(zap.NewNop())
	registry.Register(mockjob.New(mockjob.Config{Duration: time.Hour}, zap.NewNop()).WithClock(clock.Now))
	engine := pipeline.NewVideoEngine(registry, pipeline.GenerateOptions{},
		jobs.WaitOptions{PollInterval: 5 * time.Second, Timeout: time.Minute, Clock: clock}, zap.NewNop())
	vp, err := engine.Initialize(completedPipeline(t), "")
	require.NoError(t, err)
	require.NoError(t, engine.Generate(context.Background(), vp, pipeline.GenerateOptions{}))

	err = engine.WaitForCompletion(context.Background(), vp, jobs.WaitOptions{})

	assert.True(t, errors.Is(err, models.ErrGenerationTimeout))
	assert.Equal(t, models.VideoGenerating, vp.Status)
	assert.NotEmpty(t, vp.CurrentJobID)
	assert.Equal(t, 13, clock.sleeps)
}

func TestVideoGenerate_SubmitFailure(t *testing.T) {
	client := mocks.NewMockJobClient(t)
	client.On("Kind").Return(models.ProviderVideo)
	client.On("CreateTask", mock.Anything, mock.MatchedBy(func(in jobs.Input) bool {
		return in.ImageURL == "https://img/scene2.png" && in.DurationSeconds == 8
	})).Return(jobs.Status{}, &models.ProviderError{Provider: "video", Op: "create task", StatusCode: 402, Message: "insufficient credits"}).Once()

	registry := jobs.NewRegistry(zap.NewNop())
	registry.Register(client)
	engine := pipeline.NewVideoEngine(registry, pipeline.GenerateOptions{Provider: models.ProviderVideo, DurationSeconds: 8}, jobs.VideoWaitDefaults(), zap.NewNop())
	vp, err := engine.Initialize(completedPipeline(t), "")
	require.NoError(t, err)

	err = engine.Generate(context.Background(), vp, pipeline.GenerateOptions{})

	assert.True(t, errors.Is(err, models.ErrProvider))
	assert.Equal(t, models.VideoFailed, vp.Status)
	assert.Contains(t, vp.Error, "insufficient credits")
	assert.Empty(t, vp.CurrentJobID)
}

func TestVideoWait_ProviderFailure(t *testing.T) {
	client := mocks.NewMockJobClient(t)
	client.On("Kind").Return(models.ProviderVideo)
	client.On("CreateTask", mock.Anything, mock.Anything).
		Return(jobs.Status{JobID: "task-9", State: jobs.StateQueued, Progress: 10}, nil).Once()
	client.On("GetStatus", mock.Anything, "task-9").
		Return(jobs.Status{JobID: "task-9", State: jobs.StateFailed, Error: "content policy"}, nil).Once()

	registry := jobs.NewRegistry(zap.NewNop())
	registry.Register(client)
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	engine := pipeline.NewVideoEngine(registry, pipeline.GenerateOptions{Provider: models.ProviderVideo},
		jobs.WaitOptions{Clock: clock}, zap.NewNop())
	vp, err := engine.Initialize(completedPipeline(t), "")
	require.NoError(t, err)
	require.NoError(t, engine.Generate(context.Background(), vp, pipeline.GenerateOptions{}))
	assert.Equal(t, 10, vp.Progress)

	err = engine.WaitForCompletion(context.Background(), vp, jobs.WaitOptions{})

	assert.True(t, errors.Is(err, models.ErrGenerationFailed))
	assert.Equal(t, models.VideoFailed, vp.Status)
	assert.Equal(t, "content policy", vp.Error)
	assert.Equal(t, 0, clock.sleeps)
}

func TestVideoReset_KeepsThumbnails(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	engine, _ := newVideoEngine(t, clock)
	vp, err := engine.Initialize(completedPipeline(t), "Lantern")
	require.NoError(t, err)
	require.NoError(t, engine.Generate(context.Background(), vp, pipeline.GenerateOptions{}))

	require.NoError(t, engine.Reset(vp))

	assert.Equal(t, models.VideoIdle, vp.Status)
	assert.Empty(t, vp.CurrentJobID)
	assert.Nil(t, vp.ResultVideo)
	assert.Len(t, vp.SceneThumbnails, 1)

	_, err = engine.CheckStatus(context.Background(), vp)
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestVideoGenerate_CallerPromptAndSound(t *testing.T) {
	soundOn, soundOff := true, false
	client := mocks.NewMockJobClient(t)
	client.On("Kind").Return(models.ProviderVideo)
	client.On("CreateTask", mock.Anything, mock.MatchedBy(func(in jobs.Input) bool {
		return in.Prompt == "slow pan over the harbor" && !in.Sound
	})).Return(jobs.Status{JobID: "task-1", State: jobs.StateQueued}, nil).Once()
	client.On("CreateTask", mock.Anything, mock.MatchedBy(func(in jobs.Input) bool {
		return in.Prompt == "Lantern\nScene 2: A lantern is lit." && in.Sound
	})).Return(jobs.Status{JobID: "task-2", State: jobs.StateQueued}, nil).Once()

	registry := jobs.NewRegistry(zap.NewNop())
	registry.Register(client)
	engine := pipeline.NewVideoEngine(registry, pipeline.GenerateOptions{Provider: models.ProviderVideo, Sound: &soundOn},
		jobs.VideoWaitDefaults(), zap.NewNop())
	vp, err := engine.Initialize(completedPipeline(t), "Lantern")
	require.NoError(t, err)

	require.NoError(t, engine.Generate(context.Background(), vp, pipeline.GenerateOptions{
		Prompt: "  slow pan over the harbor ",
		Sound:  &soundOff,
	}))
	assert.Equal(t, "slow pan over the harbor", vp.ComposedPrompt)
	assert.Equal(t, "task-1", vp.CurrentJobID)

	require.NoError(t, engine.Reset(vp))
	require.NoError(t, engine.Generate(context.Background(), vp, pipeline.GenerateOptions{}))
	assert.Equal(t, "Lantern\nScene 2: A lantern is lit.", vp.ComposedPrompt)
	assert.Equal(t, "task-2", vp.CurrentJobID)
}

func TestVideoWait_NotGenerating(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	engine, _ := newVideoEngine(t, clock)
	vp, err := engine.Initialize(completedPipeline(t), "")
	require.NoError(t, err)
	require.NoError(t, engine.Generate(context.Background(), vp, pipeline.GenerateOptions{}))

	vp.Status = models.VideoFailed
	vp.Error = "content policy"
	err = engine.WaitForCompletion(context.Background(), vp, jobs.WaitOptions{})
	assert.True(t, errors.Is(err, models.ErrGenerationFailed))
	assert.Contains(t, err.Error(), "content policy")

	vp.Status = models.VideoIdle
	err = engine.WaitForCompletion(context.Background(), vp, jobs.WaitOptions{})
	assert.True(t, errors.Is(err, models.ErrInvalidState))

	vp.Status = models.VideoCompleted
	assert.NoError(t, engine.WaitForCompletion(context.Background(), vp, jobs.WaitOptions{}))
	assert.Equal(t, 0, clock.sleeps)
}
